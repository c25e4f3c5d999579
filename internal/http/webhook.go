package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"schoolportal/internal/payment"
)

// handleWebhook receives bank transfer notifications. The gateway
// authenticates with "Authorization: Apikey <key>"; an unset key rejects
// everything rather than opening the endpoint.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.webhookAuthorized(r.Header.Get("Authorization")) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// The gateway adds fields over time; unknown ones are not an error.
	var payload payment.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.WebhookTimeout)
	defer cancel()

	result, err := s.payments.Process(ctx, payload)
	if err != nil {
		s.log.Error("webhook processing", zap.Int64("gateway_id", payload.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "processing_failed")
		return
	}

	webhookOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"outcome": string(result.Outcome),
	})
}

func (s *Server) webhookAuthorized(header string) bool {
	if s.cfg.WebhookAPIKey == "" {
		return false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "apikey" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(s.cfg.WebhookAPIKey)) == 1
}

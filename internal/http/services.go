package http

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"schoolportal/internal/model"
	"schoolportal/internal/repository"
)

type serviceEntry struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Active      bool    `json:"active"`
}

func toServiceEntry(entry model.ServiceCatalogEntry) serviceEntry {
	return serviceEntry{
		Code:        entry.Code,
		Name:        entry.Name,
		Description: entry.Description,
		Category:    entry.Category,
		Price:       entry.Price,
		Active:      entry.Active,
	}
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]serviceEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toServiceEntry(entry))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"services": out})
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceEntry
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "invalid_price")
		return
	}

	entry := model.ServiceCatalogEntry{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Active:      req.Active,
	}
	if err := s.catalog.Create(r.Context(), entry); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "service_exists")
			return
		}
		s.log.Error("create service", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, toServiceEntry(entry))
}

func (s *Server) handleParseTimetable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "missing_path")
		return
	}

	raw, err := s.timetable.Parse(r.Context(), req.Path)
	if err != nil {
		s.log.Error("timetable parse", zap.Error(err))
		writeError(w, http.StatusBadGateway, "parse_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_message")
		return
	}

	reply, err := s.chatbot.Complete(r.Context(), req.Message)
	if err != nil {
		s.log.Error("chat completion", zap.Error(err))
		writeError(w, http.StatusBadGateway, "chat_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"schoolportal/internal/crypto"
	"schoolportal/internal/device"
	"schoolportal/internal/model"
)

type userResponse struct {
	ID     string `json:"id"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func toUserResponse(account model.Account) userResponse {
	return userResponse{ID: account.ID, Role: string(account.Role), Active: account.Active}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return
	}

	hash, err := crypto.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	id, err := s.store.NewAccountID(r.Context(), model.RoleStudent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	account := model.Account{
		ID:           id,
		Role:         model.RoleStudent,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		s.log.Error("create account", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	s.log.Info("account registered", zap.String("account", id))
	writeJSON(w, http.StatusCreated, toUserResponse(account))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Token          string       `json:"token"`
	ExpiresAt      time.Time    `json:"expiresAt"`
	User           userResponse `json:"user"`
	DeviceID       string       `json:"deviceId,omitempty"`
	DeviceIDIssued bool         `json:"deviceIdIssued,omitempty"`
}

// handleLogin deliberately reports every credential failure as the same
// invalid_credentials code so callers cannot probe which accounts exist.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	account, err := s.store.GetAccount(r.Context(), req.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		loginAttempts.WithLabelValues("invalid_credentials").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		s.log.Error("login lookup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if !account.Active || crypto.CheckPassword(account.PasswordHash, req.Password) != nil {
		loginAttempts.WithLabelValues("invalid_credentials").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	resp := loginResponse{}
	if account.Role == model.RoleStudent {
		result, err := s.devices.Authorize(r.Context(), account.ID, strings.TrimSpace(req.DeviceID))
		if errors.Is(err, device.ErrLocked) {
			loginAttempts.WithLabelValues("device_locked").Inc()
			writeErrorMessage(w, http.StatusForbidden, "device_locked",
				"this device was recently used by another account and cannot be reused yet")
			return
		}
		if err != nil {
			s.log.Error("device authorize", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		resp.DeviceID = result.DeviceID
		resp.DeviceIDIssued = result.Generated
	}

	issued, err := s.sessions.Issue(r.Context(), account.ID, req.Remember)
	if err != nil {
		s.log.Error("issue session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	loginAttempts.WithLabelValues("success").Inc()
	resp.Token = issued.Token
	resp.ExpiresAt = issued.ExpiresAt
	resp.User = toUserResponse(account)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if err := s.sessions.Destroy(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":      toUserResponse(info.Account),
		"expiresAt": info.ExpiresAt,
	})
}

// handleChangePassword rotates the password and revokes every session,
// including the one making the request.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return
	}

	info := sessionFromContext(r.Context())
	if crypto.CheckPassword(info.Account.PasswordHash, req.CurrentPassword) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword, s.cfg.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if _, err := s.store.UpdateAccountPassword(r.Context(), info.Account.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if err := s.sessions.DestroyAll(r.Context(), info.Account.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Admin account management

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role     string `json:"role"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	role := model.Role(req.Role)
	if !model.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return
	}

	hash, err := crypto.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	id, err := s.store.NewAccountID(r.Context(), role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	account := model.Account{
		ID:           id,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		s.log.Error("create account", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(account))
}

func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	found, err := s.store.SetAccountActive(r.Context(), accountID, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "account_not_found")
		return
	}
	// Kill open sessions so the deactivation takes effect immediately.
	if err := s.sessions.DestroyAll(r.Context(), accountID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return
	}

	hash, err := crypto.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	found, err := s.store.UpdateAccountPassword(r.Context(), accountID, hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "account_not_found")
		return
	}
	if err := s.sessions.DestroyAll(r.Context(), accountID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	info := sessionFromContext(r.Context())
	if info.Account.ID == accountID {
		writeError(w, http.StatusBadRequest, "cannot_delete_self")
		return
	}

	found, err := s.store.DeleteAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "account_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"schoolportal/internal/catalog"
	"schoolportal/internal/chatbot"
	"schoolportal/internal/config"
	"schoolportal/internal/device"
	"schoolportal/internal/model"
	"schoolportal/internal/order"
	"schoolportal/internal/payment"
	"schoolportal/internal/repository"
	"schoolportal/internal/session"
	"schoolportal/internal/timetable"
	"schoolportal/internal/voucher"
)

type Server struct {
	cfg       config.Config
	store     *repository.Store
	sessions  *session.Manager
	devices   *device.Enforcer
	ledger    *order.Ledger
	payments  *payment.Engine
	vouchers  *voucher.Engine
	catalog   *catalog.Service
	timetable *timetable.Parser
	chatbot   *chatbot.Client
	log       *zap.Logger
}

func NewServer(
	cfg config.Config,
	store *repository.Store,
	sessions *session.Manager,
	devices *device.Enforcer,
	ledger *order.Ledger,
	payments *payment.Engine,
	vouchers *voucher.Engine,
	cat *catalog.Service,
	parser *timetable.Parser,
	chat *chatbot.Client,
	log *zap.Logger,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		devices:   devices,
		ledger:    ledger,
		payments:  payments,
		vouchers:  vouchers,
		catalog:   cat,
		timetable: parser,
		chatbot:   chat,
		log:       log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/services", s.handleListServices)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.authMiddleware).Post("/auth/logout", s.handleLogout)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)
	r.With(s.authMiddleware).Post("/auth/password", s.handleChangePassword)

	r.With(s.authMiddleware, s.requireAdmin).Post("/accounts", s.handleCreateAccount)
	r.With(s.authMiddleware, s.requireAdmin).Post("/accounts/{accountID}/deactivate", s.handleDeactivateAccount)
	r.With(s.authMiddleware, s.requireAdmin).Post("/accounts/{accountID}/reset-password", s.handleResetPassword)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/accounts/{accountID}", s.handleDeleteAccount)

	r.With(s.authMiddleware).Post("/orders", s.handleCreateOrder)
	r.With(s.authMiddleware).Get("/orders", s.handleListOrders)
	r.With(s.authMiddleware, s.requireAdmin).Get("/orders/completed", s.handleListCompletedOrders)
	r.With(s.authMiddleware).Get("/orders/{orderCode}", s.handleGetOrder)
	r.With(s.authMiddleware, s.requireAdmin).Patch("/orders/{orderCode}/payment", s.handleUpdateOrderPayment)

	r.With(s.authMiddleware).Post("/vouchers/validate", s.handleValidateVoucher)
	r.With(s.authMiddleware, s.requireAdmin).Post("/vouchers", s.handleCreateVoucher)
	r.With(s.authMiddleware, s.requireAdmin).Get("/vouchers", s.handleListVouchers)

	r.With(s.authMiddleware, s.requireAdmin).Post("/services", s.handleCreateService)
	r.With(s.authMiddleware, s.requireAdmin).Post("/timetable/parse", s.handleParseTimetable)

	r.With(s.authMiddleware).Post("/chat", s.handleChat)

	r.Post("/webhook/payment", s.handleWebhook)

	return r
}

// Auth

type sessionKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		info, err := s.sessions.Validate(r.Context(), token)
		if err != nil {
			if err == session.ErrInvalid {
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, &info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := sessionFromContext(r.Context())
		if info == nil || info.Account.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionFromContext(ctx context.Context) *session.Info {
	value := ctx.Value(sessionKey{})
	info, _ := value.(*session.Info)
	return info
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// JSON helpers

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

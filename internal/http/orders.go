package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"schoolportal/internal/model"
	"schoolportal/internal/order"
	"schoolportal/internal/repository"
)

type orderResponse struct {
	Code            string     `json:"code"`
	AccountID       string     `json:"accountId"`
	ServiceCode     string     `json:"serviceCode"`
	TransactionCode string     `json:"transactionCode"`
	Amount          float64    `json:"amount"`
	PaymentStatus   string     `json:"paymentStatus"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		Code:            o.Code,
		AccountID:       o.AccountID,
		ServiceCode:     o.ServiceCode,
		TransactionCode: o.TransactionCode,
		Amount:          o.Amount,
		PaymentStatus:   string(o.PaymentStatus),
		PaidAt:          o.PaidAt,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
	}
}

func toOrderResponses(orders []model.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type createOrderRequest struct {
	ServiceCode string `json:"serviceCode"`
	VoucherCode string `json:"voucherCode"`
	Notes       string `json:"notes"`
}

type createOrderResponse struct {
	Order          orderResponse `json:"order"`
	DiscountAmount float64       `json:"discountAmount,omitempty"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	req.ServiceCode = strings.TrimSpace(req.ServiceCode)
	if req.ServiceCode == "" {
		writeError(w, http.StatusBadRequest, "missing_service_code")
		return
	}

	entry, err := s.catalog.Lookup(r.Context(), req.ServiceCode)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "service_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !entry.Active {
		writeError(w, http.StatusBadRequest, "service_inactive")
		return
	}

	info := sessionFromContext(r.Context())
	amount := entry.Price
	discount := 0.0

	req.VoucherCode = strings.TrimSpace(req.VoucherCode)
	if req.VoucherCode != "" {
		result, err := s.vouchers.Validate(r.Context(), req.VoucherCode, req.ServiceCode, amount)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		if !result.Valid {
			writeError(w, http.StatusBadRequest, result.Error)
			return
		}
		amount = result.FinalAmount
		discount = result.DiscountAmount
	}

	created, err := s.ledger.Create(r.Context(), info.Account.ID, req.ServiceCode, amount, req.Notes)
	if err != nil {
		if errors.Is(err, order.ErrDuplicateTransactionCode) || repository.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "transaction_code_conflict")
			return
		}
		s.log.Error("create order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	// Usage is consumed only once the order actually exists. Losing the last
	// use to a concurrent redeem at this point is tolerated and logged.
	if req.VoucherCode != "" {
		if err := s.vouchers.Redeem(r.Context(), req.VoucherCode); err != nil {
			s.log.Warn("voucher redeem after order creation",
				zap.String("order", created.Code),
				zap.String("voucher", req.VoucherCode),
				zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Order:          toOrderResponse(created),
		DiscountAmount: discount,
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	info := sessionFromContext(r.Context())

	var status *model.PaymentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed := model.PaymentStatus(raw)
		if !model.ValidPaymentStatus(parsed) {
			writeError(w, http.StatusBadRequest, "invalid_status")
			return
		}
		status = &parsed
	}

	orders, err := s.store.ListOrdersByAccount(r.Context(), info.Account.ID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": toOrderResponses(orders)})
}

func (s *Server) handleListCompletedOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	orders, err := s.store.ListCompletedOrders(r.Context(), limit, (page-1)*limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": toOrderResponses(orders)})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "orderCode")
	info := sessionFromContext(r.Context())

	o, err := s.store.GetOrderByCode(r.Context(), code)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "order_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if o.AccountID != info.Account.ID && info.Account.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (s *Server) handleUpdateOrderPayment(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "orderCode")

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	updated, found, err := s.ledger.UpdatePaymentStatus(r.Context(), code, model.PaymentStatus(req.Status))
	if errors.Is(err, order.ErrInvalidStatus) {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !found {
		// Absent or already finalized; transitions are one-way.
		writeError(w, http.StatusNotFound, "order_not_pending")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

package http

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"schoolportal/internal/model"
	"schoolportal/internal/repository"
)

type validateVoucherRequest struct {
	VoucherCode string  `json:"voucherCode"`
	ServiceCode string  `json:"serviceCode"`
	Amount      float64 `json:"amount"`
}

type validateVoucherResponse struct {
	Valid          bool    `json:"valid"`
	Error          string  `json:"error,omitempty"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalAmount    float64 `json:"finalAmount"`
}

// handleValidateVoucher is a dry run: it never consumes usage.
func (s *Server) handleValidateVoucher(w http.ResponseWriter, r *http.Request) {
	var req validateVoucherRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	req.VoucherCode = strings.TrimSpace(req.VoucherCode)
	req.ServiceCode = strings.TrimSpace(req.ServiceCode)
	if req.VoucherCode == "" || req.ServiceCode == "" || req.Amount < 0 {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	result, err := s.vouchers.Validate(r.Context(), req.VoucherCode, req.ServiceCode, req.Amount)
	if err != nil {
		s.log.Error("validate voucher", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := validateVoucherResponse{
		Valid:          result.Valid,
		Error:          result.Error,
		DiscountAmount: result.DiscountAmount,
		FinalAmount:    result.FinalAmount,
	}
	if !result.Valid {
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type voucherPayload struct {
	Code          string    `json:"code"`
	DiscountType  string    `json:"discountType"`
	DiscountValue float64   `json:"discountValue"`
	MaxDiscount   *float64  `json:"maxDiscount,omitempty"`
	MinOrderValue *float64  `json:"minOrderValue,omitempty"`
	Scope         string    `json:"scope"`
	TargetCode    *string   `json:"targetCode,omitempty"`
	UsageLimit    *int64    `json:"usageLimit,omitempty"`
	UsedCount     int64     `json:"usedCount"`
	ValidFrom     time.Time `json:"validFrom"`
	ValidUntil    time.Time `json:"validUntil"`
	Active        bool      `json:"active"`
}

func toVoucherPayload(v model.Voucher) voucherPayload {
	return voucherPayload{
		Code:          v.Code,
		DiscountType:  string(v.DiscountType),
		DiscountValue: v.DiscountValue,
		MaxDiscount:   v.MaxDiscount,
		MinOrderValue: v.MinOrderValue,
		Scope:         string(v.Scope),
		TargetCode:    v.TargetCode,
		UsageLimit:    v.UsageLimit,
		UsedCount:     v.UsedCount,
		ValidFrom:     v.ValidFrom,
		ValidUntil:    v.ValidUntil,
		Active:        v.Active,
	}
}

func (s *Server) handleCreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing_code")
		return
	}
	discountType := model.DiscountType(req.DiscountType)
	if discountType != model.DiscountPercentage && discountType != model.DiscountFixed {
		writeError(w, http.StatusBadRequest, "invalid_discount_type")
		return
	}
	if req.DiscountValue <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_discount_value")
		return
	}
	scope := model.VoucherScope(req.Scope)
	switch scope {
	case model.ScopeAll:
	case model.ScopeService, model.ScopeCategory:
		if req.TargetCode == nil || strings.TrimSpace(*req.TargetCode) == "" {
			writeError(w, http.StatusBadRequest, "missing_target_code")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_scope")
		return
	}
	if !req.ValidUntil.After(req.ValidFrom) {
		writeError(w, http.StatusBadRequest, "invalid_validity_window")
		return
	}

	v := model.Voucher{
		Code:          req.Code,
		DiscountType:  discountType,
		DiscountValue: req.DiscountValue,
		MaxDiscount:   req.MaxDiscount,
		MinOrderValue: req.MinOrderValue,
		Scope:         scope,
		TargetCode:    req.TargetCode,
		UsageLimit:    req.UsageLimit,
		ValidFrom:     req.ValidFrom,
		ValidUntil:    req.ValidUntil,
		Active:        req.Active,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.InsertVoucher(r.Context(), v); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "voucher_exists")
			return
		}
		s.log.Error("create voucher", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherPayload(v))
}

func (s *Server) handleListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := s.store.ListVouchers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	out := make([]voucherPayload, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, toVoucherPayload(v))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vouchers": out})
}

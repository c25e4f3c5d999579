package voucher

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"schoolportal/internal/model"
)

// ErrExhausted is returned by Redeem when the usage limit is already spent.
var ErrExhausted = errors.New("voucher usage limit reached")

// Validation failure codes surfaced to callers.
const (
	ErrNotFound      = "voucher_not_found"
	ErrInactive      = "voucher_inactive"
	ErrNotStarted    = "voucher_not_started"
	ErrExpired       = "voucher_expired"
	ErrUsageExceeded = "voucher_exhausted"
	ErrBelowMinimum  = "order_below_minimum"
	ErrNotApplicable = "voucher_not_applicable"
)

type Store interface {
	GetVoucherByCode(ctx context.Context, code string) (model.Voucher, error)
	IncrementVoucherUsage(ctx context.Context, code string) (bool, error)
}

type Catalog interface {
	Lookup(ctx context.Context, code string) (model.ServiceCatalogEntry, error)
}

type Result struct {
	Valid          bool
	Error          string
	DiscountAmount float64
	FinalAmount    float64
}

// Engine validates and computes voucher discounts. Validate is read-only;
// usage is consumed only by an explicit Redeem.
type Engine struct {
	store   Store
	catalog Catalog
	now     func() time.Time
}

func NewEngine(store Store, catalog Catalog) *Engine {
	return &Engine{store: store, catalog: catalog, now: time.Now}
}

// Validate runs the eligibility chain and short-circuits at the first
// failure. Infra errors are returned separately from rule failures.
func (e *Engine) Validate(ctx context.Context, voucherCode, serviceCode string, amount float64) (Result, error) {
	v, err := e.store.GetVoucherByCode(ctx, voucherCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return invalid(ErrNotFound), nil
	}
	if err != nil {
		return Result{}, err
	}

	if !v.Active {
		return invalid(ErrInactive), nil
	}

	now := e.now().UTC()
	if now.Before(v.ValidFrom) {
		return invalid(ErrNotStarted), nil
	}
	if now.After(v.ValidUntil) {
		return invalid(ErrExpired), nil
	}

	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return invalid(ErrUsageExceeded), nil
	}

	if v.MinOrderValue != nil && amount < *v.MinOrderValue {
		return invalid(ErrBelowMinimum), nil
	}

	ok, err := e.scopeMatches(ctx, v, serviceCode)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return invalid(ErrNotApplicable), nil
	}

	discount, final := Compute(v, amount)
	return Result{Valid: true, DiscountAmount: discount, FinalAmount: final}, nil
}

// Redeem consumes one use. Called by order creation after the voucher has
// been applied; never called for a mere validation.
func (e *Engine) Redeem(ctx context.Context, code string) error {
	ok, err := e.store.IncrementVoucherUsage(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrExhausted
	}
	return nil
}

func (e *Engine) scopeMatches(ctx context.Context, v model.Voucher, serviceCode string) (bool, error) {
	switch v.Scope {
	case model.ScopeAll:
		return true, nil
	case model.ScopeService:
		return v.TargetCode != nil && *v.TargetCode == serviceCode, nil
	case model.ScopeCategory:
		if v.TargetCode == nil {
			return false, nil
		}
		entry, err := e.catalog.Lookup(ctx, serviceCode)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return entry.Category == *v.TargetCode, nil
	default:
		return false, nil
	}
}

// Compute applies the discount rules: percentage capped at max_discount,
// fixed taken flat, and either way never more than the order amount. The
// final amount is rounded to 2 decimal places.
func Compute(v model.Voucher, amount float64) (discount, final float64) {
	switch v.DiscountType {
	case model.DiscountPercentage:
		discount = amount * v.DiscountValue / 100
		if v.MaxDiscount != nil && discount > *v.MaxDiscount {
			discount = *v.MaxDiscount
		}
	case model.DiscountFixed:
		discount = v.DiscountValue
	}
	if discount > amount {
		discount = amount
	}
	if discount < 0 {
		discount = 0
	}
	discount = round2(discount)
	// Rounding can nudge the discount past the order amount; re-cap so the
	// final amount never goes negative.
	if discount > amount {
		discount = amount
	}
	final = round2(amount - discount)
	return discount, final
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func invalid(code string) Result {
	return Result{Valid: false, Error: code}
}

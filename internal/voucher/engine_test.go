package voucher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"schoolportal/internal/model"
)

type fakeVoucherStore struct {
	vouchers map[string]model.Voucher
}

func (f *fakeVoucherStore) GetVoucherByCode(_ context.Context, code string) (model.Voucher, error) {
	v, ok := f.vouchers[code]
	if !ok {
		return model.Voucher{}, pgx.ErrNoRows
	}
	return v, nil
}

func (f *fakeVoucherStore) IncrementVoucherUsage(_ context.Context, code string) (bool, error) {
	v, ok := f.vouchers[code]
	if !ok {
		return false, nil
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return false, nil
	}
	v.UsedCount++
	f.vouchers[code] = v
	return true, nil
}

type fakeCatalog struct {
	services map[string]model.ServiceCatalogEntry
}

func (f *fakeCatalog) Lookup(_ context.Context, code string) (model.ServiceCatalogEntry, error) {
	entry, ok := f.services[code]
	if !ok {
		return model.ServiceCatalogEntry{}, pgx.ErrNoRows
	}
	return entry, nil
}

var testNow = time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)

func baseVoucher() model.Voucher {
	return model.Voucher{
		Code:          "SPRING10",
		DiscountType:  model.DiscountPercentage,
		DiscountValue: 10,
		Scope:         model.ScopeAll,
		ValidFrom:     testNow.Add(-24 * time.Hour),
		ValidUntil:    testNow.Add(24 * time.Hour),
		Active:        true,
	}
}

func newTestVoucherEngine(store *fakeVoucherStore, catalog *fakeCatalog) *Engine {
	if catalog == nil {
		catalog = &fakeCatalog{services: map[string]model.ServiceCatalogEntry{}}
	}
	e := NewEngine(store, catalog)
	e.now = func() time.Time { return testNow }
	return e
}

func TestValidateChain(t *testing.T) {
	int64p := func(v int64) *int64 { return &v }
	f64p := func(v float64) *float64 { return &v }
	strp := func(s string) *string { return &s }

	cases := []struct {
		name      string
		mutate    func(*model.Voucher)
		service   string
		amount    float64
		wantError string
	}{
		{"valid", nil, "BUS-PASS", 100000, ""},
		{"inactive", func(v *model.Voucher) { v.Active = false }, "BUS-PASS", 100000, ErrInactive},
		{"not started", func(v *model.Voucher) { v.ValidFrom = testNow.Add(time.Hour) }, "BUS-PASS", 100000, ErrNotStarted},
		{"expired", func(v *model.Voucher) { v.ValidUntil = testNow.Add(-time.Hour) }, "BUS-PASS", 100000, ErrExpired},
		{"exhausted", func(v *model.Voucher) { v.UsageLimit = int64p(5); v.UsedCount = 5 }, "BUS-PASS", 100000, ErrUsageExceeded},
		{"below minimum", func(v *model.Voucher) { v.MinOrderValue = f64p(200000) }, "BUS-PASS", 100000, ErrBelowMinimum},
		{"wrong service scope", func(v *model.Voucher) { v.Scope = model.ScopeService; v.TargetCode = strp("LUNCH") }, "BUS-PASS", 100000, ErrNotApplicable},
		{"matching service scope", func(v *model.Voucher) { v.Scope = model.ScopeService; v.TargetCode = strp("BUS-PASS") }, "BUS-PASS", 100000, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := baseVoucher()
			if tc.mutate != nil {
				tc.mutate(&v)
			}
			store := &fakeVoucherStore{vouchers: map[string]model.Voucher{v.Code: v}}
			e := newTestVoucherEngine(store, nil)

			result, err := e.Validate(context.Background(), v.Code, tc.service, tc.amount)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if tc.wantError == "" {
				if !result.Valid {
					t.Fatalf("expected valid, got %q", result.Error)
				}
				return
			}
			if result.Valid || result.Error != tc.wantError {
				t.Fatalf("expected %q, got valid=%v error=%q", tc.wantError, result.Valid, result.Error)
			}
		})
	}
}

func TestValidateUnknownCode(t *testing.T) {
	e := newTestVoucherEngine(&fakeVoucherStore{vouchers: map[string]model.Voucher{}}, nil)
	result, err := e.Validate(context.Background(), "NOPE", "BUS-PASS", 100000)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid || result.Error != ErrNotFound {
		t.Fatalf("got %+v", result)
	}
}

func TestValidateCategoryScope(t *testing.T) {
	strp := func(s string) *string { return &s }
	v := baseVoucher()
	v.Scope = model.ScopeCategory
	v.TargetCode = strp("transport")

	store := &fakeVoucherStore{vouchers: map[string]model.Voucher{v.Code: v}}
	catalog := &fakeCatalog{services: map[string]model.ServiceCatalogEntry{
		"BUS-PASS": {Code: "BUS-PASS", Category: "transport", Price: 150000, Active: true},
		"LUNCH":    {Code: "LUNCH", Category: "meals", Price: 45000, Active: true},
	}}
	e := newTestVoucherEngine(store, catalog)

	result, err := e.Validate(context.Background(), v.Code, "BUS-PASS", 150000)
	if err != nil || !result.Valid {
		t.Fatalf("transport service should match: %+v %v", result, err)
	}

	result, err = e.Validate(context.Background(), v.Code, "LUNCH", 45000)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid || result.Error != ErrNotApplicable {
		t.Fatalf("meals service should not match: %+v", result)
	}
}

func TestValidateDoesNotConsumeUsage(t *testing.T) {
	int64p := func(v int64) *int64 { return &v }
	v := baseVoucher()
	v.UsageLimit = int64p(1)

	store := &fakeVoucherStore{vouchers: map[string]model.Voucher{v.Code: v}}
	e := newTestVoucherEngine(store, nil)

	for i := 0; i < 3; i++ {
		result, err := e.Validate(context.Background(), v.Code, "BUS-PASS", 100000)
		if err != nil || !result.Valid {
			t.Fatalf("validation %d: %+v %v", i, result, err)
		}
	}
	if store.vouchers[v.Code].UsedCount != 0 {
		t.Fatalf("validation consumed usage")
	}
}

func TestRedeem(t *testing.T) {
	int64p := func(v int64) *int64 { return &v }
	v := baseVoucher()
	v.UsageLimit = int64p(1)

	store := &fakeVoucherStore{vouchers: map[string]model.Voucher{v.Code: v}}
	e := newTestVoucherEngine(store, nil)

	if err := e.Redeem(context.Background(), v.Code); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if err := e.Redeem(context.Background(), v.Code); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if store.vouchers[v.Code].UsedCount != 1 {
		t.Fatalf("used count %d", store.vouchers[v.Code].UsedCount)
	}
}

func TestCompute(t *testing.T) {
	f64p := func(v float64) *float64 { return &v }

	cases := []struct {
		name         string
		voucher      model.Voucher
		amount       float64
		wantDiscount float64
		wantFinal    float64
	}{
		{
			"percentage",
			model.Voucher{DiscountType: model.DiscountPercentage, DiscountValue: 10},
			200000, 20000, 180000,
		},
		{
			"percentage capped",
			model.Voucher{DiscountType: model.DiscountPercentage, DiscountValue: 50, MaxDiscount: f64p(30000)},
			200000, 30000, 170000,
		},
		{
			"fixed",
			model.Voucher{DiscountType: model.DiscountFixed, DiscountValue: 25000},
			200000, 25000, 175000,
		},
		{
			"fixed exceeding amount",
			model.Voucher{DiscountType: model.DiscountFixed, DiscountValue: 500000},
			200000, 200000, 0,
		},
		{
			"fixed exceeding fractional amount",
			model.Voucher{DiscountType: model.DiscountFixed, DiscountValue: 20},
			10.125, 10.125, 0,
		},
		{
			"full percentage",
			model.Voucher{DiscountType: model.DiscountPercentage, DiscountValue: 100},
			200000, 200000, 0,
		},
		{
			"rounding",
			model.Voucher{DiscountType: model.DiscountPercentage, DiscountValue: 33},
			99.99, 33, 66.99,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			discount, final := Compute(tc.voucher, tc.amount)
			if discount != tc.wantDiscount || final != tc.wantFinal {
				t.Fatalf("got discount=%v final=%v, want %v/%v", discount, final, tc.wantDiscount, tc.wantFinal)
			}
			if final < 0 {
				t.Fatalf("final amount below zero")
			}
		})
	}
}

func TestComputeBounds(t *testing.T) {
	f64p := func(v float64) *float64 { return &v }

	// Fractional amounts interact with rounding; the caps must hold anyway.
	amounts := []float64{0.004, 10.125, 33.335, 99.999}
	vouchers := []model.Voucher{
		{DiscountType: model.DiscountFixed, DiscountValue: 20},
		{DiscountType: model.DiscountPercentage, DiscountValue: 100},
		{DiscountType: model.DiscountPercentage, DiscountValue: 99.99, MaxDiscount: f64p(50)},
	}
	for _, amount := range amounts {
		for _, v := range vouchers {
			discount, final := Compute(v, amount)
			if discount > amount {
				t.Fatalf("discount %v exceeds amount %v (%s %v)", discount, amount, v.DiscountType, v.DiscountValue)
			}
			if final < 0 {
				t.Fatalf("final %v below zero for amount %v (%s %v)", final, amount, v.DiscountType, v.DiscountValue)
			}
		}
	}
}

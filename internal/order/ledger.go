package order

import (
	"context"
	"errors"
	"time"

	"schoolportal/internal/model"
)

var (
	ErrInvalidStatus            = errors.New("invalid payment status")
	ErrDuplicateTransactionCode = errors.New("duplicate transaction code")
)

type Store interface {
	NextSequence(ctx context.Context, prefix, shard string) (int64, error)
	InsertOrder(ctx context.Context, order model.Order) error
	TransactionCodeExists(ctx context.Context, code string) (bool, error)
	UpdateOrderStatus(ctx context.Context, code string, status model.PaymentStatus, paidAt *time.Time) (model.Order, bool, error)
}

// Ledger owns order creation and status transitions. Insertion remains the
// authority on uniqueness; the pre-check only keeps retries cheap.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

const transactionCodeAttempts = 5

func (l *Ledger) Create(ctx context.Context, accountID, serviceCode string, amount float64, notes string) (model.Order, error) {
	now := l.now().UTC()

	seq, err := l.store.NextSequence(ctx, CodePrefix, DateShard(now))
	if err != nil {
		return model.Order{}, err
	}

	transactionCode, err := l.freeTransactionCode(ctx)
	if err != nil {
		return model.Order{}, err
	}

	order := model.Order{
		Code:            FormatOrderCode(now, seq),
		AccountID:       accountID,
		ServiceCode:     serviceCode,
		TransactionCode: transactionCode,
		Amount:          amount,
		PaymentStatus:   model.PaymentPending,
		Notes:           notes,
		CreatedAt:       now,
	}
	if err := l.store.InsertOrder(ctx, order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// UpdatePaymentStatus transitions a pending order to a final status; pending
// is not a valid target. Unknown (or already finalized) codes return
// found=false rather than an error.
func (l *Ledger) UpdatePaymentStatus(ctx context.Context, code string, status model.PaymentStatus) (model.Order, bool, error) {
	if !model.ValidPaymentStatus(status) || status == model.PaymentPending {
		return model.Order{}, false, ErrInvalidStatus
	}
	var paidAt *time.Time
	if status == model.PaymentCompleted {
		now := l.now().UTC()
		paidAt = &now
	}
	return l.store.UpdateOrderStatus(ctx, code, status, paidAt)
}

func (l *Ledger) freeTransactionCode(ctx context.Context) (string, error) {
	for i := 0; i < transactionCodeAttempts; i++ {
		code, err := NewTransactionCode()
		if err != nil {
			return "", err
		}
		exists, err := l.store.TransactionCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrDuplicateTransactionCode
}

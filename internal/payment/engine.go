package payment

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"schoolportal/internal/model"
)

// Payload is the payment-gateway webhook body. TransferAmount is a pointer
// so a missing field can be told apart from a zero transfer.
type Payload struct {
	ID              int64    `json:"id"`
	Gateway         string   `json:"gateway"`
	TransactionDate string   `json:"transactionDate"`
	AccountNumber   string   `json:"accountNumber"`
	Code            *string  `json:"code"`
	Content         string   `json:"content"`
	TransferType    string   `json:"transferType"`
	TransferAmount  *float64 `json:"transferAmount"`
	Accumulated     float64  `json:"accumulated"`
	ReferenceCode   *string  `json:"referenceCode"`
}

type Outcome string

const (
	// OutcomeCompleted: a pending order was matched and completed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeIgnored: outgoing transfer or required fields absent.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeNoCode: no transaction code could be resolved from the payload.
	OutcomeNoCode Outcome = "no_code"
	// OutcomeNoMatch: code resolved but no pending order carries it (replays
	// of already-completed orders land here).
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeAmountMismatch: order found but the amounts differ beyond
	// tolerance; nothing is mutated.
	OutcomeAmountMismatch Outcome = "amount_mismatch"
)

type Result struct {
	Outcome         Outcome
	TransactionCode string
	OrderCode       string
}

type Ledger interface {
	GetPendingOrderByTransactionCode(ctx context.Context, transactionCode string) (model.Order, error)
	CompletePendingOrder(ctx context.Context, code string, paidAt time.Time) (bool, error)
}

type Recorder interface {
	RecordWebhookEvent(ctx context.Context, event model.WebhookEvent) error
}

// Engine reconciles incoming bank webhooks against pending orders. All
// non-actionable payloads resolve to an acknowledged outcome; only genuine
// processing failures return an error.
type Engine struct {
	ledger    Ledger
	recorder  Recorder
	tolerance float64
	log       *zap.Logger
	now       func() time.Time
}

func NewEngine(ledger Ledger, recorder Recorder, tolerance float64, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{ledger: ledger, recorder: recorder, tolerance: tolerance, log: log, now: time.Now}
}

func (e *Engine) Process(ctx context.Context, payload Payload) (Result, error) {
	result, err := e.process(ctx, payload)
	if err != nil {
		return Result{}, err
	}
	if recErr := e.record(ctx, payload, result); recErr != nil {
		return Result{}, recErr
	}
	return result, nil
}

func (e *Engine) process(ctx context.Context, payload Payload) (Result, error) {
	if strings.ToLower(strings.TrimSpace(payload.TransferType)) != "in" {
		return Result{Outcome: OutcomeIgnored}, nil
	}
	if payload.TransferAmount == nil || strings.TrimSpace(payload.Content) == "" {
		return Result{Outcome: OutcomeIgnored}, nil
	}

	code, ok := resolveTransactionCode(payload)
	if !ok {
		return Result{Outcome: OutcomeNoCode}, nil
	}

	order, err := e.ledger.GetPendingOrderByTransactionCode(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		// Duplicate delivery or an unrelated transfer. Never an error.
		return Result{Outcome: OutcomeNoMatch, TransactionCode: code}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if math.Abs(order.Amount-*payload.TransferAmount) > e.tolerance {
		e.log.Warn("webhook amount mismatch",
			zap.String("order", order.Code),
			zap.Float64("expected", order.Amount),
			zap.Float64("received", *payload.TransferAmount))
		return Result{Outcome: OutcomeAmountMismatch, TransactionCode: code, OrderCode: order.Code}, nil
	}

	completed, err := e.ledger.CompletePendingOrder(ctx, order.Code, e.now().UTC())
	if err != nil {
		return Result{}, err
	}
	if !completed {
		// Lost the race to another delivery of the same webhook.
		return Result{Outcome: OutcomeNoMatch, TransactionCode: code, OrderCode: order.Code}, nil
	}

	e.log.Info("order completed by webhook",
		zap.String("order", order.Code),
		zap.String("transaction_code", code))
	return Result{Outcome: OutcomeCompleted, TransactionCode: code, OrderCode: order.Code}, nil
}

// resolveTransactionCode prefers explicit payload fields over memo parsing.
func resolveTransactionCode(payload Payload) (string, bool) {
	if payload.ReferenceCode != nil {
		if ref := strings.ToUpper(strings.TrimSpace(*payload.ReferenceCode)); ref != "" {
			return ref, true
		}
	}
	if payload.Code != nil {
		if code := strings.ToUpper(strings.TrimSpace(*payload.Code)); code != "" {
			return code, true
		}
	}
	return ExtractTransactionCode(payload.Content)
}

func (e *Engine) record(ctx context.Context, payload Payload, result Result) error {
	if e.recorder == nil {
		return nil
	}
	event := model.WebhookEvent{
		ID:         ksuid.New().String(),
		GatewayID:  payload.ID,
		Gateway:    payload.Gateway,
		Outcome:    string(result.Outcome),
		ReceivedAt: e.now().UTC(),
	}
	if result.OrderCode != "" {
		event.OrderCode = &result.OrderCode
	}
	return e.recorder.RecordWebhookEvent(ctx, event)
}

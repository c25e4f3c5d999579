package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"schoolportal/internal/model"
)

var (
	// ErrLocked means the device belongs to another student and its cool-down
	// has not elapsed.
	ErrLocked = errors.New("device locked to another account")
	// ErrGenerateExhausted means no free device id was found within the retry
	// budget.
	ErrGenerateExhausted = errors.New("device id generation exhausted")
)

// Tx is the registry view inside one transaction. GetForUpdate must take a
// row lock so two concurrent logins cannot both observe a free device.
type Tx interface {
	GetForUpdate(ctx context.Context, deviceID string) (model.Device, error)
	Insert(ctx context.Context, dev model.Device) error
	Update(ctx context.Context, dev model.Device) error
}

type Registry interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	RecordLoginAttempt(ctx context.Context, accountID, deviceID string, now time.Time) error
}

type Result struct {
	DeviceID string
	// Generated is set when the server issued the id; the client should
	// persist it and send it back on subsequent logins.
	Generated bool
}

// Enforcer applies the one-device-per-student policy. Teacher and admin
// logins never reach it.
type Enforcer struct {
	registry    Registry
	rebindAfter time.Duration
	now         func() time.Time
}

func NewEnforcer(registry Registry, rebindAfter time.Duration) *Enforcer {
	return &Enforcer{registry: registry, rebindAfter: rebindAfter, now: time.Now}
}

const generateAttempts = 5

func (e *Enforcer) Authorize(ctx context.Context, accountID, deviceID string) (Result, error) {
	now := e.now().UTC()
	result := Result{DeviceID: deviceID}

	attempt := func() error {
		return e.registry.InTx(ctx, func(tx Tx) error {
			if result.DeviceID == "" {
				id, err := freeDeviceID(ctx, tx)
				if err != nil {
					return err
				}
				result.DeviceID = id
				result.Generated = true
				return tx.Insert(ctx, model.Device{ID: id, AccountID: accountID, LastLogin: now})
			}

			dev, err := tx.GetForUpdate(ctx, result.DeviceID)
			if errors.Is(err, pgx.ErrNoRows) {
				return tx.Insert(ctx, model.Device{ID: result.DeviceID, AccountID: accountID, LastLogin: now})
			}
			if err != nil {
				return err
			}

			if dev.AccountID != accountID {
				if now.Sub(dev.LastLogin) <= e.rebindAfter {
					return ErrLocked
				}
				dev.AccountID = accountID
			}
			dev.LastLogin = now
			return tx.Update(ctx, dev)
		})
	}

	err := attempt()
	if isUniqueViolation(err) {
		// FOR UPDATE locks nothing on an absent row, so two first-time logins
		// with the same id can both reach Insert. The loser re-runs against
		// the committed row and gets the normal owner check.
		err = attempt()
	}

	// The attempt log is written regardless of outcome.
	if result.DeviceID != "" {
		if auditErr := e.registry.RecordLoginAttempt(ctx, accountID, result.DeviceID, now); auditErr != nil && err == nil {
			err = auditErr
		}
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func freeDeviceID(ctx context.Context, tx Tx) (string, error) {
	for i := 0; i < generateAttempts; i++ {
		id := uuid.NewString()
		_, err := tx.GetForUpdate(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrGenerateExhausted
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"schoolportal/internal/device"
	"schoolportal/internal/model"
)

// InTx exposes the device registry under a transaction so the enforcer's
// check-then-act runs against a locked row.
func (s *Store) InTx(ctx context.Context, fn func(device.Tx) error) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&deviceTx{tx: tx})
	})
}

type deviceTx struct {
	tx pgx.Tx
}

func (d *deviceTx) GetForUpdate(ctx context.Context, deviceID string) (model.Device, error) {
	var dev model.Device
	row := d.tx.QueryRow(ctx, `
		SELECT id, account_id, last_login
		FROM devices
		WHERE id = $1
		FOR UPDATE
	`, deviceID)
	err := row.Scan(&dev.ID, &dev.AccountID, &dev.LastLogin)
	return dev, err
}

func (d *deviceTx) Insert(ctx context.Context, dev model.Device) error {
	_, err := d.tx.Exec(ctx, `
		INSERT INTO devices (id, account_id, last_login)
		VALUES ($1, $2, $3)
	`, dev.ID, dev.AccountID, dev.LastLogin)
	return err
}

func (d *deviceTx) Update(ctx context.Context, dev model.Device) error {
	_, err := d.tx.Exec(ctx, `
		UPDATE devices SET account_id = $1, last_login = $2 WHERE id = $3
	`, dev.AccountID, dev.LastLogin, dev.ID)
	return err
}

func (s *Store) RecordLoginAttempt(ctx context.Context, accountID, deviceID string, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO login_attempts (account_id, device_id, attempts, last_login)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (account_id, device_id)
		DO UPDATE SET attempts = login_attempts.attempts + 1, last_login = EXCLUDED.last_login
	`, accountID, deviceID, now)
	return err
}

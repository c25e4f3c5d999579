package repository

import (
	"context"
	"time"

	"schoolportal/internal/model"
)

// NextSequence atomically increments and returns the counter for a
// (prefix, shard) pair, creating it at 1 on first use.
func (s *Store) NextSequence(ctx context.Context, prefix, shard string) (int64, error) {
	var value int64
	row := s.pool.QueryRow(ctx, `
		INSERT INTO counters (prefix, shard, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, shard)
		DO UPDATE SET value = counters.value + 1
		RETURNING value
	`, prefix, shard)
	err := row.Scan(&value)
	return value, err
}

func (s *Store) InsertOrder(ctx context.Context, order model.Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (code, account_id, service_code, transaction_code, amount, payment_status, paid_at, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, order.Code, order.AccountID, order.ServiceCode, order.TransactionCode, order.Amount, order.PaymentStatus, order.PaidAt, order.Notes, order.CreatedAt)
	return err
}

func (s *Store) TransactionCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE transaction_code = $1)
	`, code).Scan(&exists)
	return exists, err
}

const orderColumns = `code, account_id, service_code, transaction_code, amount, payment_status, paid_at, notes, created_at`

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var order model.Order
	err := row.Scan(&order.Code, &order.AccountID, &order.ServiceCode, &order.TransactionCode, &order.Amount, &order.PaymentStatus, &order.PaidAt, &order.Notes, &order.CreatedAt)
	return order, err
}

func (s *Store) GetOrderByCode(ctx context.Context, code string) (model.Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE code = $1
	`, code))
}

// UpdateOrderStatus moves a pending order to the given status. Orders that
// are absent or already finalized match nothing and report found=false.
func (s *Store) UpdateOrderStatus(ctx context.Context, code string, status model.PaymentStatus, paidAt *time.Time) (model.Order, bool, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE orders
		SET payment_status = $2, paid_at = $3
		WHERE code = $1 AND payment_status = 'pending'
		RETURNING `+orderColumns+`
	`, code, status, paidAt)
	order, err := scanOrder(row)
	if err != nil {
		if isNoRows(err) {
			return model.Order{}, false, nil
		}
		return model.Order{}, false, err
	}
	return order, true, nil
}

func (s *Store) ListOrdersByAccount(ctx context.Context, accountID string, status *model.PaymentStatus) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE account_id = $1`
	args := []any{accountID}
	if status != nil {
		query += ` AND payment_status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *Store) ListCompletedOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE payment_status = 'completed'
		ORDER BY paid_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *Store) GetPendingOrderByTransactionCode(ctx context.Context, transactionCode string) (model.Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE transaction_code = $1 AND payment_status = 'pending'
	`, transactionCode))
}

// CompletePendingOrder is the webhook completion path. The pending guard in
// the WHERE clause makes replays a no-op.
func (s *Store) CompletePendingOrder(ctx context.Context, code string, paidAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = 'completed', paid_at = $2
		WHERE code = $1 AND payment_status = 'pending'
	`, code, paidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

package repository

import (
	"context"

	"schoolportal/internal/model"
)

const voucherColumns = `code, discount_type, discount_value, max_discount, min_order_value, scope, target_code, usage_limit, used_count, valid_from, valid_until, active, created_at`

func scanVoucher(row interface{ Scan(...any) error }) (model.Voucher, error) {
	var v model.Voucher
	err := row.Scan(&v.Code, &v.DiscountType, &v.DiscountValue, &v.MaxDiscount, &v.MinOrderValue, &v.Scope, &v.TargetCode, &v.UsageLimit, &v.UsedCount, &v.ValidFrom, &v.ValidUntil, &v.Active, &v.CreatedAt)
	return v, err
}

func (s *Store) GetVoucherByCode(ctx context.Context, code string) (model.Voucher, error) {
	return scanVoucher(s.pool.QueryRow(ctx, `
		SELECT `+voucherColumns+` FROM vouchers WHERE code = $1
	`, code))
}

func (s *Store) InsertVoucher(ctx context.Context, v model.Voucher) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vouchers (`+voucherColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, v.Code, v.DiscountType, v.DiscountValue, v.MaxDiscount, v.MinOrderValue, v.Scope, v.TargetCode, v.UsageLimit, v.UsedCount, v.ValidFrom, v.ValidUntil, v.Active, v.CreatedAt)
	return err
}

func (s *Store) ListVouchers(ctx context.Context) ([]model.Voucher, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+voucherColumns+` FROM vouchers ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vouchers := make([]model.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

// IncrementVoucherUsage consumes one use. The usage-limit guard lives in the
// WHERE clause so the used_count invariant holds under concurrent redeems.
func (s *Store) IncrementVoucherUsage(ctx context.Context, code string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE vouchers
		SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

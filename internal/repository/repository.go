package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"schoolportal/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx runs fn inside a transaction, rolling back on error.
func (s *Store) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// RolePrefix maps a role to the account id prefix.
func RolePrefix(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return "ADM"
	case model.RoleTeacher:
		return "TCH"
	default:
		return "STU"
	}
}

// NewAccountID allocates the next sequential id for a role, e.g. STU000042.
func (s *Store) NewAccountID(ctx context.Context, role model.Role) (string, error) {
	seq, err := s.NextSequence(ctx, "ACC", string(role))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%06d", RolePrefix(role), seq), nil
}

func (s *Store) CreateAccount(ctx context.Context, account model.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, role, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, account.ID, account.Role, account.PasswordHash, account.Active, account.CreatedAt)
	return err
}

func (s *Store) GetAccount(ctx context.Context, id string) (model.Account, error) {
	var account model.Account
	row := s.pool.QueryRow(ctx, `
		SELECT id, role, password_hash, active, created_at
		FROM accounts
		WHERE id = $1
	`, id)
	err := row.Scan(&account.ID, &account.Role, &account.PasswordHash, &account.Active, &account.CreatedAt)
	return account, err
}

func (s *Store) SetAccountActive(ctx context.Context, id string, active bool) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) UpdateAccountPassword(ctx context.Context, id, passwordHash string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE accounts SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) DeleteAccount(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// EnsureOwnerAdmin seeds the bootstrap admin account once at startup. An
// existing row is left untouched so operator password changes survive
// restarts.
func (s *Store) EnsureOwnerAdmin(ctx context.Context, id, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, role, password_hash, active, created_at)
		VALUES ($1, 'admin', $2, TRUE, now())
		ON CONFLICT (id) DO NOTHING
	`, id, passwordHash)
	return err
}

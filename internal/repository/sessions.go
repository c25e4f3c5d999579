package repository

import (
	"context"
	"time"

	"schoolportal/internal/model"
)

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, account_id, remember, expires_at, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, session.TokenHash, session.AccountID, session.Remember, session.ExpiresAt, session.LastUsedAt, session.CreatedAt)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (model.Session, error) {
	var session model.Session
	row := s.pool.QueryRow(ctx, `
		SELECT token_hash, account_id, remember, expires_at, last_used_at, created_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&session.TokenHash, &session.AccountID, &session.Remember, &session.ExpiresAt, &session.LastUsedAt, &session.CreatedAt)
	return session, err
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *Store) DeleteSessionsByAccount(ctx context.Context, accountID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID)
	return err
}

func (s *Store) RenewSession(ctx context.Context, tokenHash string, expiresAt, lastUsedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET expires_at = $1, last_used_at = $2 WHERE token_hash = $3
	`, expiresAt, lastUsedAt, tokenHash)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

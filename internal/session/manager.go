package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"schoolportal/internal/crypto"
	"schoolportal/internal/model"
)

// ErrInvalid covers every failed validation: unknown token, inactive
// account, elapsed expiry. Callers get no finer detail on purpose.
var ErrInvalid = errors.New("invalid session")

type Store interface {
	CreateSession(ctx context.Context, session model.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (model.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteSessionsByAccount(ctx context.Context, accountID string) error
	RenewSession(ctx context.Context, tokenHash string, expiresAt, lastUsedAt time.Time) error
	GetAccount(ctx context.Context, id string) (model.Account, error)
}

type Info struct {
	Account   model.Account
	ExpiresAt time.Time
}

type Issued struct {
	Token     string
	ExpiresAt time.Time
}

type Manager struct {
	store       Store
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

func NewManager(store Store, ttl, rememberTTL time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, rememberTTL: rememberTTL, now: time.Now}
}

// Issue creates a fresh session and invalidates every prior session for the
// account, so at most the newest token is valid.
func (m *Manager) Issue(ctx context.Context, accountID string, remember bool) (Issued, error) {
	if err := m.store.DeleteSessionsByAccount(ctx, accountID); err != nil {
		return Issued{}, err
	}

	token, err := crypto.NewSessionToken(remember)
	if err != nil {
		return Issued{}, err
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.windowFor(remember))
	session := model.Session{
		TokenHash:  crypto.HashToken(token),
		AccountID:  accountID,
		Remember:   remember,
		ExpiresAt:  expiresAt,
		LastUsedAt: now,
		CreatedAt:  now,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return Issued{}, err
	}
	return Issued{Token: token, ExpiresAt: expiresAt}, nil
}

// Validate fails closed and cleans up as a side effect: expired sessions and
// sessions of inactive accounts are deleted when seen. A successful lookup
// slides the expiry forward by the session's full TTL window.
func (m *Manager) Validate(ctx context.Context, token string) (Info, error) {
	tokenHash := crypto.HashToken(token)

	session, err := m.store.GetSessionByTokenHash(ctx, tokenHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Info{}, ErrInvalid
	}
	if err != nil {
		return Info{}, err
	}

	now := m.now().UTC()
	if session.ExpiresAt.Before(now) {
		_ = m.store.DeleteSession(ctx, tokenHash)
		return Info{}, ErrInvalid
	}

	account, err := m.store.GetAccount(ctx, session.AccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = m.store.DeleteSession(ctx, tokenHash)
		return Info{}, ErrInvalid
	}
	if err != nil {
		return Info{}, err
	}
	if !account.Active {
		_ = m.store.DeleteSessionsByAccount(ctx, account.ID)
		return Info{}, ErrInvalid
	}

	// The token prefix carries the remember flag, so the window is picked
	// without consulting the row.
	expiresAt := now.Add(m.windowFor(crypto.IsRememberToken(token)))
	if err := m.store.RenewSession(ctx, tokenHash, expiresAt, now); err != nil {
		return Info{}, err
	}
	return Info{Account: account, ExpiresAt: expiresAt}, nil
}

func (m *Manager) Destroy(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, crypto.HashToken(token))
}

// DestroyAll is invoked on password change and admin reset.
func (m *Manager) DestroyAll(ctx context.Context, accountID string) error {
	return m.store.DeleteSessionsByAccount(ctx, accountID)
}

func (m *Manager) windowFor(remember bool) time.Duration {
	if remember {
		return m.rememberTTL
	}
	return m.ttl
}

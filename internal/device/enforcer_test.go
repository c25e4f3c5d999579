package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"schoolportal/internal/model"
)

type fakeRegistry struct {
	devices  map[string]model.Device
	attempts []model.LoginAttempt
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{devices: make(map[string]model.Device)}
}

func (f *fakeRegistry) InTx(_ context.Context, fn func(Tx) error) error {
	return fn(&fakeTx{registry: f})
}

func (f *fakeRegistry) RecordLoginAttempt(_ context.Context, accountID, deviceID string, now time.Time) error {
	f.attempts = append(f.attempts, model.LoginAttempt{
		AccountID: accountID,
		DeviceID:  deviceID,
		Attempts:  1,
		LastLogin: now,
	})
	return nil
}

type fakeTx struct {
	registry *fakeRegistry
}

func (t *fakeTx) GetForUpdate(_ context.Context, deviceID string) (model.Device, error) {
	dev, ok := t.registry.devices[deviceID]
	if !ok {
		return model.Device{}, pgx.ErrNoRows
	}
	return dev, nil
}

func (t *fakeTx) Insert(_ context.Context, dev model.Device) error {
	t.registry.devices[dev.ID] = dev
	return nil
}

func (t *fakeTx) Update(_ context.Context, dev model.Device) error {
	t.registry.devices[dev.ID] = dev
	return nil
}

const rebindAfter = 7 * 24 * time.Hour

func newTestEnforcer(registry *fakeRegistry, at time.Time) *Enforcer {
	e := NewEnforcer(registry, rebindAfter)
	e.now = func() time.Time { return at }
	return e
}

func TestAuthorizeGeneratesDeviceID(t *testing.T) {
	registry := newFakeRegistry()
	e := newTestEnforcer(registry, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))

	result, err := e.Authorize(context.Background(), "STU000001", "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !result.Generated {
		t.Fatalf("expected a generated device id")
	}
	if result.DeviceID == "" {
		t.Fatalf("empty device id")
	}
	dev, ok := registry.devices[result.DeviceID]
	if !ok || dev.AccountID != "STU000001" {
		t.Fatalf("device not registered to account: %+v", dev)
	}
}

func TestAuthorizeAdoptsUnknownDeviceID(t *testing.T) {
	registry := newFakeRegistry()
	e := newTestEnforcer(registry, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))

	result, err := e.Authorize(context.Background(), "STU000001", "client-chosen-id")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.Generated {
		t.Fatalf("client-supplied id should not be reported as generated")
	}
	if result.DeviceID != "client-chosen-id" {
		t.Fatalf("device id changed: %s", result.DeviceID)
	}
}

func TestAuthorizeSameAccountRepeatLogin(t *testing.T) {
	registry := newFakeRegistry()
	first := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	registry.devices["dev-1"] = model.Device{ID: "dev-1", AccountID: "STU000001", LastLogin: first}

	later := first.Add(48 * time.Hour)
	e := newTestEnforcer(registry, later)

	result, err := e.Authorize(context.Background(), "STU000001", "dev-1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.DeviceID != "dev-1" {
		t.Fatalf("unexpected device id %s", result.DeviceID)
	}
	if !registry.devices["dev-1"].LastLogin.Equal(later) {
		t.Fatalf("last login not bumped")
	}
}

func TestAuthorizeDeniedWithinCoolDown(t *testing.T) {
	registry := newFakeRegistry()
	lastLogin := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	registry.devices["dev-1"] = model.Device{ID: "dev-1", AccountID: "STU000001", LastLogin: lastLogin}

	// Another student tries the same device 6 days later.
	e := newTestEnforcer(registry, lastLogin.Add(6*24*time.Hour))

	_, err := e.Authorize(context.Background(), "STU000002", "dev-1")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if registry.devices["dev-1"].AccountID != "STU000001" {
		t.Fatalf("device owner changed on a denied login")
	}
}

func TestAuthorizeReassignsAfterCoolDown(t *testing.T) {
	registry := newFakeRegistry()
	lastLogin := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	registry.devices["dev-1"] = model.Device{ID: "dev-1", AccountID: "STU000001", LastLogin: lastLogin}

	now := lastLogin.Add(8 * 24 * time.Hour)
	e := newTestEnforcer(registry, now)

	result, err := e.Authorize(context.Background(), "STU000002", "dev-1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.DeviceID != "dev-1" {
		t.Fatalf("unexpected device id %s", result.DeviceID)
	}
	dev := registry.devices["dev-1"]
	if dev.AccountID != "STU000002" {
		t.Fatalf("device not reassigned: %+v", dev)
	}
	if !dev.LastLogin.Equal(now) {
		t.Fatalf("last login not updated on reassignment")
	}
}

// racingRegistry simulates a concurrent first-time login: the first
// transaction sees no row, but by the time it inserts, a rival login has
// committed the same device id.
type racingRegistry struct {
	*fakeRegistry
	rival model.Device
	raced bool
}

func (r *racingRegistry) InTx(_ context.Context, fn func(Tx) error) error {
	if !r.raced {
		r.raced = true
		return fn(&racingTx{registry: r})
	}
	return fn(&fakeTx{registry: r.fakeRegistry})
}

type racingTx struct {
	registry *racingRegistry
}

func (t *racingTx) GetForUpdate(_ context.Context, _ string) (model.Device, error) {
	return model.Device{}, pgx.ErrNoRows
}

func (t *racingTx) Insert(_ context.Context, _ model.Device) error {
	t.registry.devices[t.registry.rival.ID] = t.registry.rival
	return &pgconn.PgError{Code: "23505"}
}

func (t *racingTx) Update(_ context.Context, dev model.Device) error {
	t.registry.devices[dev.ID] = dev
	return nil
}

func TestAuthorizeRetriesLostInsertRace(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	registry := &racingRegistry{
		fakeRegistry: newFakeRegistry(),
		rival:        model.Device{ID: "dev-1", AccountID: "STU000001", LastLogin: now},
	}
	e := NewEnforcer(registry, rebindAfter)
	e.now = func() time.Time { return now }

	// The retry finds the rival's fresh row and denies instead of surfacing
	// the unique violation.
	_, err := e.Authorize(context.Background(), "STU000002", "dev-1")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked after retry, got %v", err)
	}
	if !registry.raced {
		t.Fatalf("race path not exercised")
	}
	if registry.devices["dev-1"].AccountID != "STU000001" {
		t.Fatalf("rival's device reassigned")
	}
}

func TestAuthorizeRetriesLostInsertRaceSameAccount(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	registry := &racingRegistry{
		fakeRegistry: newFakeRegistry(),
		rival:        model.Device{ID: "dev-1", AccountID: "STU000001", LastLogin: now},
	}
	e := NewEnforcer(registry, rebindAfter)
	e.now = func() time.Time { return now }

	// Same account on both sides of the race: the retry succeeds.
	result, err := e.Authorize(context.Background(), "STU000001", "dev-1")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if result.DeviceID != "dev-1" {
		t.Fatalf("unexpected device id %s", result.DeviceID)
	}
}

func TestAuthorizeRecordsAttemptEvenWhenDenied(t *testing.T) {
	registry := newFakeRegistry()
	lastLogin := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	registry.devices["dev-1"] = model.Device{ID: "dev-1", AccountID: "STU000001", LastLogin: lastLogin}

	e := newTestEnforcer(registry, lastLogin.Add(time.Hour))

	_, err := e.Authorize(context.Background(), "STU000002", "dev-1")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if len(registry.attempts) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(registry.attempts))
	}
	if registry.attempts[0].AccountID != "STU000002" || registry.attempts[0].DeviceID != "dev-1" {
		t.Fatalf("wrong audit row: %+v", registry.attempts[0])
	}
}

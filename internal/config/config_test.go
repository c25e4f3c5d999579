package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.HTTPAddr)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("expected 1h session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.RememberSessionTTL != 30*24*time.Hour {
		t.Fatalf("expected 30d remember ttl, got %s", cfg.RememberSessionTTL)
	}
	if cfg.DeviceRebindAfter != 7*24*time.Hour {
		t.Fatalf("expected 7d rebind window, got %s", cfg.DeviceRebindAfter)
	}
	if cfg.AmountTolerance != 1000 {
		t.Fatalf("expected tolerance 1000, got %f", cfg.AmountTolerance)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("DEVICE_REBIND_AFTER_SECONDS", "3600")
	t.Setenv("AMOUNT_TOLERANCE", "500")
	t.Setenv("BCRYPT_COST", "10")

	cfg := Load()
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h, got %s", cfg.SessionTTL)
	}
	if cfg.DeviceRebindAfter != time.Hour {
		t.Fatalf("expected 1h from seconds fallback, got %s", cfg.DeviceRebindAfter)
	}
	if cfg.AmountTolerance != 500 {
		t.Fatalf("expected 500, got %f", cfg.AmountTolerance)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("expected cost 10, got %d", cfg.BcryptCost)
	}
}

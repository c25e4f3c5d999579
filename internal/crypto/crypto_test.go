package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret", 4)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestPasswordHashingSalted(t *testing.T) {
	first, err := HashPassword("secret", 4)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	second, err := HashPassword("secret", 4)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if first == second {
		t.Fatalf("expected salted hashes to differ")
	}
}

func TestSessionTokenPrefix(t *testing.T) {
	standard, err := NewSessionToken(false)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if standard[0] != SessionPrefixStandard {
		t.Fatalf("expected standard prefix, got %c", standard[0])
	}
	if IsRememberToken(standard) {
		t.Fatalf("standard token flagged as remember")
	}

	remember, err := NewSessionToken(true)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if !IsRememberToken(remember) {
		t.Fatalf("remember token not flagged")
	}
	if remember == standard {
		t.Fatalf("expected unique tokens")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatalf("expected deterministic hash")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatalf("expected distinct hashes")
	}
}

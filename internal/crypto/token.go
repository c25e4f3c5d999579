package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const (
	SessionPrefixStandard = 's'
	SessionPrefixRemember = 'r'
)

// NewSessionToken returns an opaque session token. The first character
// encodes whether the session is a "remember" session so validation can pick
// the right sliding-renewal window without a schema lookup.
func NewSessionToken(remember bool) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	prefix := string(SessionPrefixStandard)
	if remember {
		prefix = string(SessionPrefixRemember)
	}
	return prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func IsRememberToken(token string) bool {
	return len(token) > 0 && token[0] == SessionPrefixRemember
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

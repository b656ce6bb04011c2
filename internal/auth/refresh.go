package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is the opaque long-lived credential returned to the client.
// Only the SHA-256 hash of Raw is persisted; a stolen database row cannot
// be replayed as a session.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// NewRefreshToken returns a cryptographically random opaque token and its
// expiration, ttlMin minutes from now.
func NewRefreshToken(ttlMin int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string. This is the at-rest representation.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewResetToken returns a random single-use token for password reset links.
func NewResetToken() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

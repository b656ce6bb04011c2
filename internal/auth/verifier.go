package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avialex/api/internal/config"
)

// ErrInvalidToken is the single failure returned for any bad bearer token:
// malformed structure, unknown key id, signature mismatch, wrong issuer or
// audience, or expiry outside the clock-skew tolerance. Collapsing causes
// keeps the verifier from granting partial trust or leaking which check
// failed.
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier validates access tokens against the key ring.
// Verification is purely computational; the ring is an in-memory structure
// and no I/O happens here.
type TokenVerifier struct {
	ring     config.KeyRing
	audience string
	leeway   time.Duration
}

// NewTokenVerifier builds a verifier with the given clock-skew tolerance.
func NewTokenVerifier(ring config.KeyRing, audience string, clockSkew time.Duration) *TokenVerifier {
	return &TokenVerifier{ring: ring, audience: audience, leeway: clockSkew}
}

// Verify parses and validates a compact token and returns its claims.
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.keyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuerName),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// keyFor resolves HMAC key material from the token's kid header. The header
// is read before any signature check (a structural parse, not trust); the
// signature is then verified against the resolved key.
func (v *TokenVerifier) keyFor(t *jwt.Token) (interface{}, error) {
	kid, ok := t.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, errors.New("missing kid header")
	}
	key, ok := v.ring.Lookup(kid)
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return deriveKey(key.Secret), nil
}

// Package auth issues and verifies the HS256 access tokens used by the API.
// Signing keys come from the configured key ring; the operator-supplied
// secret is digested with SHA-256 before use as HMAC key material so key
// length and entropy are uniform regardless of what the operator typed.
package auth

import (
	"crypto/sha256"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/model"
)

// TokenIssuerName is the fixed iss claim on every access token.
const TokenIssuerName = "avialex"

// AccessTokenTTL is the fixed lifetime of an access token.
const AccessTokenTTL = 15 * time.Minute

// notBeforeBackdate shifts nbf slightly into the past to absorb clock
// drift between this service and verifying clients.
const notBeforeBackdate = 5 * time.Second

// Claims is the decoded body of an access token.
type Claims struct {
	Roles   []string `json:"roles"`
	Domains []string `json:"domains"`
	jwt.RegisteredClaims
}

// TokenIssuer signs new access tokens with the ring's primary key.
type TokenIssuer struct {
	ring     config.KeyRing
	audience string
	now      func() time.Time
}

// NewTokenIssuer builds an issuer over the given key ring and audience.
func NewTokenIssuer(ring config.KeyRing, audience string) *TokenIssuer {
	return &TokenIssuer{ring: ring, audience: audience, now: time.Now}
}

// Issue builds and signs an access token for the user. It returns the
// compact token and its expiry as epoch milliseconds. Issuing fails with a
// configuration error when the ring holds no keys.
func (i *TokenIssuer) Issue(u model.User) (string, int64, error) {
	key, err := i.ring.Primary()
	if err != nil {
		return "", 0, err
	}
	now := i.now().UTC()
	exp := now.Add(AccessTokenTTL)
	claims := Claims{
		Roles:   PlatformRoles(u.Type),
		Domains: DomainRoles(u.Type),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuerName,
			Subject:   strconv.FormatUint(u.ID, 10),
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-notBeforeBackdate)),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	// Stamp the key id into the header so the verifier can find the exact
	// key this token was signed with.
	tok.Header["kid"] = key.ID
	signed, err := tok.SignedString(deriveKey(key.Secret))
	if err != nil {
		return "", 0, err
	}
	return signed, exp.UnixMilli(), nil
}

// deriveKey turns a configured secret into HMAC key material. Issuer and
// verifier must apply the same digest or no token ever validates.
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

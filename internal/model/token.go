package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. Each refresh
// token belongs to a user and carries metadata for expiry and revocation.
// The opaque value handed to the client is not stored; only its SHA-256 hash,
// and the hash never leaves the server.
type RefreshToken struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"` // nil while the token is active
	UserAgent string     `json:"user_agent"`
	IPAddress string     `json:"ip_address"`
	CreatedAt time.Time  `json:"created_at"`
}

// PasswordResetToken is a short-lived, single-use credential mailed to a
// user who forgot their password.
type PasswordResetToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

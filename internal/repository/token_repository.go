package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avialex/api/internal/model"
)

// TokenRepo persists and validates refresh tokens. Only SHA-256 hashes of
// the opaque values are stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a refresh token row. UserAgent and IP are best-effort
// session metadata and may be empty.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time, userAgent, ip string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, user_agent, ip_address) VALUES (?,?,?,?,?)",
		userID, tokenHash, exp, userAgent, ip)
	return err
}

// Validate returns the owning user id if a non-revoked, non-expired token
// exists for the hash. Missing, revoked and expired tokens all fail with
// ErrNotFound so callers cannot distinguish the cases.
func (r *TokenRepo) Validate(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if revokedAt.Valid {
		return 0, ErrNotFound
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked. Revoking an already-revoked token
// is a no-op, not an error.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// ListActiveForUser returns the user's live sessions, newest first.
func (r *TokenRepo) ListActiveForUser(ctx context.Context, userID uint64) ([]model.RefreshToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, user_agent, ip_address, created_at"+
			" FROM refresh_tokens WHERE user_id=? AND revoked_at IS NULL AND expires_at > NOW()"+
			" ORDER BY created_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RefreshToken
	for rows.Next() {
		var (
			t       model.RefreshToken
			revoked sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked,
			&t.UserAgent, &t.IPAddress, &t.CreatedAt); err != nil {
			return nil, err
		}
		if revoked.Valid {
			t.RevokedAt = &revoked.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RevokeAllForUser revokes every active token the user owns ("log out
// everywhere").
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

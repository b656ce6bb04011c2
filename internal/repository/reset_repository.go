package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avialex/api/internal/model"
)

// ResetRepo persists single-use password reset tokens.
type ResetRepo struct{ DB *sql.DB }

func NewResetRepo(db *sql.DB) *ResetRepo { return &ResetRepo{DB: db} }

// Store inserts a reset token for the user.
func (r *ResetRepo) Store(ctx context.Context, userID uint64, token string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, exp)
	return err
}

// Validate returns the owning user id for an unused, unexpired token.
// Missing, used and expired tokens all fail with ErrNotFound.
func (r *ResetRepo) Validate(ctx context.Context, token string) (uint64, error) {
	var t model.PasswordResetToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token, expires_at, used, created_at FROM password_reset_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if t.Used || time.Now().UTC().After(t.ExpiresAt) {
		return 0, ErrNotFound
	}
	return t.UserID, nil
}

// MarkUsed consumes the token so it cannot be replayed.
func (r *ResetRepo) MarkUsed(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used=1 WHERE token=?", token)
	return err
}

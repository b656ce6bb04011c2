package repository

import (
	"context"
	"database/sql"
)

// RevokedJtiRepo stores the ids (jti claim) of access tokens revoked before
// their natural expiry. Consulted by the JWT middleware after signature
// verification, so a signed-out access token stops working immediately.
type RevokedJtiRepo struct{ DB *sql.DB }

func NewRevokedJtiRepo(db *sql.DB) *RevokedJtiRepo { return &RevokedJtiRepo{DB: db} }

// IsRevoked reports whether the jti has been revoked.
func (r *RevokedJtiRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM revoked_jti WHERE jti=?)", jti).Scan(&exists)
	return exists, err
}

// Revoke records the jti. Idempotent: revoking twice leaves one row.
func (r *RevokedJtiRepo) Revoke(ctx context.Context, jti string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO revoked_jti (jti) VALUES (?)", jti)
	return err
}

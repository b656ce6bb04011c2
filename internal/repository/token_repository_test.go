package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestTokenRepoValidate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	exp := time.Now().UTC().Add(time.Hour)
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("somehash").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(42, exp, nil))

	uid, err := repo.Validate(context.Background(), "somehash")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoValidateUniformFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	// Missing row.
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err := repo.Validate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Revoked row.
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(42, time.Now().Add(time.Hour), time.Now()))
	_, err = repo.Validate(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrNotFound)

	// Expired row.
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("expired").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(42, time.Now().Add(-time.Hour), nil))
	_, err = repo.Validate(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoStore(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	exp := time.Now().UTC().Add(time.Hour)
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(uint64(42), "somehash", exp, "test-agent", "127.0.0.1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Store(context.Background(), 42, "somehash", exp, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoRevokeIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	// Second revoke matches zero rows; still no error.
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW").
		WithArgs("somehash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW").
		WithArgs("somehash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RevokeByHash(context.Background(), "somehash"))
	require.NoError(t, repo.RevokeByHash(context.Background(), "somehash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoRevokeAllForUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW").
		WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeAllForUser(context.Background(), 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokedJtiRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRevokedJtiRepo(db)

	mock.ExpectExec("INSERT IGNORE INTO revoked_jti").
		WithArgs("some-jti").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Revoke(context.Background(), "some-jti"))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("some-jti").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	revoked, err := repo.IsRevoked(context.Background(), "some-jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("other-jti").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	revoked, err = repo.IsRevoked(context.Background(), "other-jti")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

package database

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/avialex/api/internal/database/migrations"
)

// Migrate applies all pending schema migrations embedded in the binary.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

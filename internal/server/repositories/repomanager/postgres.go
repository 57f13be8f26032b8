package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ava-vs/chunkvault/internal/dbx"
	"github.com/ava-vs/chunkvault/internal/server/migrations"
	"github.com/ava-vs/chunkvault/internal/server/repositories/keygrants"
	"github.com/ava-vs/chunkvault/internal/server/repositories/products"
	"github.com/ava-vs/chunkvault/internal/server/repositories/receipts"
	"github.com/ava-vs/chunkvault/internal/server/repositories/transfers"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Products returns a products.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Products(db dbx.DBTX) products.Repository {
	return products.NewPostgresRepository(db)
}

// Transfers returns a transfers.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Transfers(db dbx.DBTX) transfers.Repository {
	return transfers.NewPostgresRepository(db)
}

// KeyGrants returns a keygrants.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) KeyGrants(db dbx.DBTX) keygrants.Repository {
	return keygrants.NewPostgresRepository(db)
}

// Receipts returns a receipts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Receipts(db dbx.DBTX) receipts.Repository {
	return receipts.NewPostgresRepository(db)
}

// RunMigrations applies embedded goose migrations against db.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}

// OpenDB opens a pgx-backed database/sql handle for the given DSN.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

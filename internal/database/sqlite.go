package database

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/config"
	apperrors "github.com/kyvra-tech/xandeum-pnodes-tracker-backend/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewSQLiteDB opens the tracker database and applies pending migrations.
// Migrations are idempotent, so this is safe on every startup.
func NewSQLiteDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDatabaseConnection, err)
	}

	// SQLite serializes writers on its own; WAL keeps readers off the
	// writer's lock and busy_timeout absorbs the rest, so the pool stays
	// unbounded and API reads never queue behind a refresh cycle.
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// dsn enables WAL so API reads stay concurrent with refresh-cycle writes.
func dsn(url string) string {
	if strings.Contains(url, "?") {
		return url
	}
	return fmt.Sprintf("file:%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000", url)
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

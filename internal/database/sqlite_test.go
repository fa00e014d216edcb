package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kyvra-tech/xandeum-pnodes-tracker-backend/internal/config"
)

func TestNewSQLiteDB_CreatesSchema(t *testing.T) {
	db, err := NewSQLiteDB(&config.DatabaseConfig{
		URL: filepath.Join(t.TempDir(), "schema_test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"nodes", "fleet_snapshots", "node_history"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}
}

func TestNewSQLiteDB_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen_test.db")
	cfg := &config.DatabaseConfig{URL: path}

	db, err := NewSQLiteDB(cfg)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO nodes (pubkey, address) VALUES ('pk1', '203.0.113.7:9001')`,
	); err != nil {
		t.Fatalf("Failed to insert row: %v", err)
	}
	db.Close()

	// Second open must no-op the migrations and keep existing data.
	db, err = NewSQLiteDB(cfg)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
		t.Fatalf("Failed to count nodes: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected data to survive reopen, got %d rows", count)
	}
}

func TestNewSQLiteDB_ReadsDuringOpenWriteTransaction(t *testing.T) {
	db, err := NewSQLiteDB(&config.DatabaseConfig{
		URL: filepath.Join(t.TempDir(), "concurrent_test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(
		`INSERT INTO nodes (pubkey, address) VALUES ('pk1', '203.0.113.7:9001')`,
	); err != nil {
		t.Fatalf("Failed to insert row: %v", err)
	}

	// Hold an uncommitted write on one connection; WAL readers must still
	// get their snapshot instead of queueing behind it.
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO nodes (pubkey, address) VALUES ('pk2', '198.51.100.4:9001')`,
	); err != nil {
		t.Fatalf("Failed to insert in transaction: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
			done <- err
			return
		}
		if count != 1 {
			t.Errorf("Expected reader snapshot of 1 row, got %d", count)
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Concurrent read failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Concurrent read blocked behind open write transaction")
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "plain file path gets pragmas",
			url:  "pnodes.db",
			want: "file:pnodes.db?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000",
		},
		{
			name: "explicit DSN left alone",
			url:  "pnodes.db?_journal=DELETE",
			want: "pnodes.db?_journal=DELETE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dsn(tt.url); got != tt.want {
				t.Errorf("dsn(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

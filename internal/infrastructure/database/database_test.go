package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestOpen verifies the file, its directory and the pool settings.
func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "data", "fbp.db")
	db, err := Open(context.Background(), Config{
		Path:        dbPath,
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("database file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != filePermissions {
		t.Errorf("file mode = %o, want %o", perm, filePermissions)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	var mode string
	if err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

// TestHealthCheck verifies the check passes while open and fails once closed.
func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() after Close succeeded")
	}

	var nilDB *DB
	if err := nilDB.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// TestBeginTx verifies committed readings persist and rolled back ones do not.
func TestBeginTx(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE readings (id INTEGER PRIMARY KEY, pulses INTEGER NOT NULL)"); err != nil {
		t.Fatalf("CREATE TABLE error = %v", err)
	}

	tests := []struct {
		name   string
		pulses int
		commit bool
		want   int
	}{
		{"commit", 12, true, 1},
		{"rollback", 34, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("BeginTx() error = %v", err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO readings (pulses) VALUES (?)", tt.pulses); err != nil {
				t.Fatalf("INSERT error = %v", err)
			}
			if tt.commit {
				err = tx.Commit()
			} else {
				err = tx.Rollback()
			}
			if err != nil {
				t.Fatalf("finishing transaction: %v", err)
			}

			var count int
			if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings WHERE pulses = ?", tt.pulses).Scan(&count); err != nil {
				t.Fatalf("SELECT error = %v", err)
			}
			if count != tt.want {
				t.Errorf("rows with %d pulses = %d, want %d", tt.pulses, count, tt.want)
			}
		})
	}
}

// TestStats verifies the pool is sized from the configuration.
func TestStats(t *testing.T) {
	tests := []struct {
		name         string
		maxOpenConns int
		want         int
	}{
		{"configured", 3, 3},
		{"zero uses default", 0, defaultMaxOpenConns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Open(context.Background(), Config{
				Path:         filepath.Join(t.TempDir(), "stats.db"),
				WALMode:      true,
				BusyTimeout:  5,
				MaxOpenConns: tt.maxOpenConns,
			})
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer db.Close() //nolint:errcheck // Test cleanup

			if got := db.Stats().MaxOpenConnections; got != tt.want {
				t.Errorf("MaxOpenConnections = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestOpenEmptyPath verifies a missing path is rejected.
func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Error("Open() with empty path error = nil, want error")
	}
}

// TestDedicatedConnection verifies a pinned connection coexists with pool
// users, which is how the data layer and the log sink share the database.
func TestDedicatedConnection(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}

	if _, err := conn.ExecContext(ctx, "CREATE TABLE pinned (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("CREATE TABLE on pinned connection error = %v", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() while connection pinned error = %v", err)
	}
	if got := db.Stats().InUse; got != 1 {
		t.Errorf("InUse = %d, want 1", got)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("conn.Close() error = %v", err)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "fbp.db")

	db, err := Open(context.Background(), Config{
		Path:         dbPath,
		WALMode:      true,
		BusyTimeout:  5,
		MaxOpenConns: 4,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	return db
}

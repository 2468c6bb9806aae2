package migrate

import (
	"context"
	"database/sql"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestRunUpCreatesKVEntries(t *testing.T) {
	ctx := context.Background()
	sqlDB := openSQLite(t)

	if err := Run(ctx, sqlDB, "sqlite", "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}

	if _, err := sqlDB.ExecContext(ctx,
		"INSERT INTO kv_entries (entry_key, entry_value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		"bakehouse:s1:cart", []byte(`[]`)); err != nil {
		t.Fatalf("insert into kv_entries: %v", err)
	}

	version, err := Version(ctx, sqlDB, "sqlite")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 20260301120000 {
		t.Fatalf("unexpected version %d", version)
	}

	if err := MigrateToVersion(ctx, sqlDB, "sqlite", "0"); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if _, err := sqlDB.ExecContext(ctx, "SELECT 1 FROM kv_entries"); err == nil {
		t.Fatal("expected kv_entries to be dropped")
	}
}

func TestDialect(t *testing.T) {
	if d, err := Dialect("postgres"); err != nil || d != "postgres" {
		t.Fatalf("unexpected postgres dialect %q %v", d, err)
	}
	if d, err := Dialect("sqlite"); err != nil || d != "sqlite3" {
		t.Fatalf("unexpected sqlite dialect %q %v", d, err)
	}
	if _, err := Dialect("mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestRunRequiresDB(t *testing.T) {
	if err := Run(context.Background(), nil, "sqlite", "up"); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

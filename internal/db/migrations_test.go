package db_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p42rthicle/shoku/internal/db"
)

func TestApplyMigrationsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "shoku.db")
	sqldb, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("first apply migrations: %v", err)
	}
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("second apply migrations: %v", err)
	}

	var migrationCount int
	if err := sqldb.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&migrationCount); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if migrationCount != 3 {
		t.Fatalf("expected 3 migration versions, got %d", migrationCount)
	}
	version, err := db.SchemaVersion(sqldb)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 3 || version != db.LatestVersion() {
		t.Fatalf("expected schema version 3 (latest %d), got %d", db.LatestVersion(), version)
	}

	for _, table := range []string{"food_items", "logged_entries", "app_config"} {
		var count int
		if err := sqldb.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count); err != nil {
			t.Fatalf("check %s table: %v", table, err)
		}
		if count != 1 {
			t.Fatalf("expected %s table to exist", table)
		}
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db file to exist: %v", err)
	}
}

func TestFoodItemNameIsUnique(t *testing.T) {
	t.Parallel()

	sqldb, err := db.Open(filepath.Join(t.TempDir(), "shoku.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer sqldb.Close()
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := sqldb.Exec(`INSERT INTO food_items(name, frequency) VALUES('Apple', 1)`); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if _, err := sqldb.Exec(`INSERT INTO food_items(name, frequency) VALUES('Apple', 1)`); err == nil {
		t.Fatalf("expected unique constraint violation")
	}
	// Names are case-sensitive.
	if _, err := sqldb.Exec(`INSERT INTO food_items(name, frequency) VALUES('apple', 1)`); err != nil {
		t.Fatalf("insert lowercase variant: %v", err)
	}
}

func TestLoggedEntriesRejectUnknownMeal(t *testing.T) {
	t.Parallel()

	sqldb, err := db.Open(filepath.Join(t.TempDir(), "shoku.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer sqldb.Close()
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	_, err = sqldb.Exec(`INSERT INTO logged_entries(food_name, quantity, unit, calories, protein, date, meal) VALUES('Tea', 1, 'cup', 2, 0, '2024-01-01', 'brunch')`)
	if err == nil {
		t.Fatalf("expected meal check constraint violation")
	}
}

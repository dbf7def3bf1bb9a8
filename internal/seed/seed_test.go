package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/autoworth/autoworth/internal/db"
	"github.com/autoworth/autoworth/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	wantFirstRun := len(defaultMultipliers) + len(defaultTrims) + len(defaultFeatures)

	for i := 0; i < 10; i++ {
		stats, err := Run(database)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != wantFirstRun {
				t.Fatalf("expected %d inserts in first run, got %d", wantFirstRun, stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM market_multipliers WHERE zip = ?`, "90210", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM trim_adjustments WHERE make = ? AND model = ?`, []any{"Toyota", "Camry"}, 3)
	assertCount(t, database, `SELECT COUNT(*) FROM feature_catalog`, nil, len(defaultFeatures))

	var percent float64
	if err := database.QueryRow(`SELECT percent FROM market_multipliers WHERE zip = ?`, "90210").Scan(&percent); err != nil {
		t.Fatalf("query 90210 multiplier: %v", err)
	}
	if percent <= 0 {
		t.Fatalf("expected a positive multiplier for 90210, got %v", percent)
	}
}

func TestRunPreservesAdminEdits(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-edit-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := Run(database); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	if _, err := database.Exec(`UPDATE market_multipliers SET percent = 9.5 WHERE zip = '90210'`); err != nil {
		t.Fatalf("apply admin edit: %v", err)
	}

	if _, err := Run(database); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	var percent float64
	if err := database.QueryRow(`SELECT percent FROM market_multipliers WHERE zip = '90210'`).Scan(&percent); err != nil {
		t.Fatalf("query edited multiplier: %v", err)
	}
	if percent != 9.5 {
		t.Fatalf("seed overwrote an admin edit: percent=%v, want 9.5", percent)
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}

package seed

import (
	"database/sql"
	"fmt"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type multiplierRow struct {
	zip     string
	region  string
	percent float64
}

// defaultMultipliers are the starter regional rows; real data is managed
// through the admin endpoints.
var defaultMultipliers = []multiplierRow{
	{"90210", "Los Angeles / Beverly Hills, CA", 4},
	{"10001", "Manhattan, NY", 3},
	{"94105", "San Francisco, CA", 3.5},
	{"60601", "Chicago, IL", 1.5},
	{"73301", "Austin, TX", 1},
	{"59901", "Kalispell, MT", -2},
	{"67501", "Hutchinson, KS", -1.5},
}

type trimRow struct {
	make    string
	model   string
	trim    string
	percent float64
}

var defaultTrims = []trimRow{
	{"Toyota", "Camry", "LE", 0},
	{"Toyota", "Camry", "SE", 2},
	{"Toyota", "Camry", "XSE", 4},
	{"Honda", "Accord", "Sport", 2.5},
	{"Honda", "Accord", "Touring", 5},
	{"Ford", "F-150", "XLT", 2},
	{"Ford", "F-150", "Lariat", 6},
}

type featureRow struct {
	id       string
	name     string
	category string
	percent  float64
}

var defaultFeatures = []featureRow{
	{"leather_seats", "Leather seats", "comfort", 2},
	{"sunroof", "Sunroof / moonroof", "comfort", 1.5},
	{"navigation", "Navigation system", "tech", 1},
	{"premium_audio", "Premium audio", "tech", 2},
	{"adaptive_cruise", "Adaptive cruise control", "safety", 2},
	{"blind_spot_monitor", "Blind-spot monitor", "safety", 1},
	{"heated_seats", "Heated seats", "comfort", 1},
	{"camera_360", "360-degree camera", "safety", 2},
}

// Run executes the startup seed in an idempotent way: rows that already exist
// are left untouched so admin edits survive restarts.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedMultipliers(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := seedTrims(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := seedFeatures(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedMultipliers(tx *sql.Tx, stats *Stats) error {
	for _, row := range defaultMultipliers {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM market_multipliers WHERE zip = ?)`, row.zip).Scan(&exists); err != nil {
			return fmt.Errorf("check multiplier existence: %w", err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO market_multipliers (zip, region, percent)
			VALUES (?, ?, ?)
		`, row.zip, row.region, row.percent); err != nil {
			return fmt.Errorf("insert multiplier %s: %w", row.zip, err)
		}
		stats.Inserts++
	}
	return nil
}

func seedTrims(tx *sql.Tx, stats *Stats) error {
	for _, row := range defaultTrims {
		var exists bool
		if err := tx.QueryRow(`
			SELECT EXISTS(
				SELECT 1 FROM trim_adjustments
				WHERE make = ? AND model = ? AND "trim" = ?
				LIMIT 1
			)
		`, row.make, row.model, row.trim).Scan(&exists); err != nil {
			return fmt.Errorf("check trim existence: %w", err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO trim_adjustments (make, model, "trim", percent)
			VALUES (?, ?, ?, ?)
		`, row.make, row.model, row.trim, row.percent); err != nil {
			return fmt.Errorf("insert trim %s %s %s: %w", row.make, row.model, row.trim, err)
		}
		stats.Inserts++
	}
	return nil
}

func seedFeatures(tx *sql.Tx, stats *Stats) error {
	for _, row := range defaultFeatures {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM feature_catalog WHERE id = ?)`, row.id).Scan(&exists); err != nil {
			return fmt.Errorf("check feature existence: %w", err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO feature_catalog (id, name, category, percent)
			VALUES (?, ?, ?, ?)
		`, row.id, row.name, row.category, row.percent); err != nil {
			return fmt.Errorf("insert feature %s: %w", row.id, err)
		}
		stats.Inserts++
	}
	return nil
}

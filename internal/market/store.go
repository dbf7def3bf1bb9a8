// Package market resolves regional multipliers, trim percentages, and the
// premium feature catalog from persisted lookup tables.
package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Multiplier is one regional market row: a signed percentage keyed by ZIP.
type Multiplier struct {
	ZIP     string  `json:"zip"`
	Region  string  `json:"region"`
	Percent float64 `json:"percent"`
}

// TrimRow is one make/model/trim percentage row.
type TrimRow struct {
	ID      int64   `json:"id"`
	Make    string  `json:"make"`
	Model   string  `json:"model"`
	Trim    string  `json:"trim"`
	Percent float64 `json:"percent"`
}

// Feature is one premium-feature catalog entry.
type Feature struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Percent  float64 `json:"percent"`
}

// Store reads and writes the market lookup tables.
type Store struct {
	db *sql.DB
}

// NewStore constructs a Store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Multiplier returns the signed regional percentage for a ZIP code. An empty
// ZIP returns 0 without touching the database; an unknown ZIP returns 0.
func (s *Store) Multiplier(ctx context.Context, zip string) (float64, error) {
	if zip == "" {
		return 0, nil
	}

	var percent float64
	err := s.db.QueryRowContext(ctx, `
		SELECT percent FROM market_multipliers WHERE zip = ?
	`, zip).Scan(&percent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query market multiplier: %w", err)
	}
	return percent, nil
}

// DollarImpact converts a percentage multiplier into the dollar adjustment
// for a given base price.
func DollarImpact(basePrice, percent float64) float64 {
	return basePrice * percent / 100
}

// TrimPercent returns the percentage for a make/model/trim combination and
// whether the combination exists. Matching is case-insensitive.
func (s *Store) TrimPercent(ctx context.Context, mk, model, trim string) (float64, bool, error) {
	var percent float64
	err := s.db.QueryRowContext(ctx, `
		SELECT percent
		FROM trim_adjustments
		WHERE lower(make) = ? AND lower(model) = ? AND lower("trim") = ?
	`, strings.ToLower(mk), strings.ToLower(model), strings.ToLower(trim)).Scan(&percent)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query trim adjustment: %w", err)
	}
	return percent, true, nil
}

// FeaturePercents returns the persisted feature catalog as id -> percent.
func (s *Store) FeaturePercents(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, percent FROM feature_catalog`)
	if err != nil {
		return nil, fmt.Errorf("query feature catalog: %w", err)
	}
	defer rows.Close()

	catalog := make(map[string]float64)
	for rows.Next() {
		var id string
		var percent float64
		if err := rows.Scan(&id, &percent); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		catalog[id] = percent
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature catalog: %w", err)
	}
	return catalog, nil
}

// ListMultipliers returns every regional multiplier row, ordered by ZIP.
func (s *Store) ListMultipliers(ctx context.Context) ([]Multiplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT zip, COALESCE(region, ''), percent
		FROM market_multipliers
		ORDER BY zip
	`)
	if err != nil {
		return nil, fmt.Errorf("query market multipliers: %w", err)
	}
	defer rows.Close()

	multipliers := make([]Multiplier, 0)
	for rows.Next() {
		var m Multiplier
		if err := rows.Scan(&m.ZIP, &m.Region, &m.Percent); err != nil {
			return nil, fmt.Errorf("scan market multiplier: %w", err)
		}
		multipliers = append(multipliers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market multipliers: %w", err)
	}
	return multipliers, nil
}

// UpsertMultiplier creates or replaces the multiplier row for a ZIP.
func (s *Store) UpsertMultiplier(ctx context.Context, m Multiplier) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_multipliers (zip, region, percent)
		VALUES (?, ?, ?)
		ON CONFLICT(zip) DO UPDATE SET
			region = excluded.region,
			percent = excluded.percent,
			updated_at = CURRENT_TIMESTAMP
	`, m.ZIP, m.Region, m.Percent)
	if err != nil {
		return fmt.Errorf("upsert market multiplier: %w", err)
	}
	return nil
}

// ListTrims returns every trim adjustment row.
func (s *Store) ListTrims(ctx context.Context) ([]TrimRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, make, model, "trim", percent
		FROM trim_adjustments
		ORDER BY make, model, "trim"
	`)
	if err != nil {
		return nil, fmt.Errorf("query trim adjustments: %w", err)
	}
	defer rows.Close()

	trims := make([]TrimRow, 0)
	for rows.Next() {
		var t TrimRow
		if err := rows.Scan(&t.ID, &t.Make, &t.Model, &t.Trim, &t.Percent); err != nil {
			return nil, fmt.Errorf("scan trim adjustment: %w", err)
		}
		trims = append(trims, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trim adjustments: %w", err)
	}
	return trims, nil
}

// UpsertTrim creates or replaces the row for a make/model/trim combination.
func (s *Store) UpsertTrim(ctx context.Context, t TrimRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trim_adjustments (make, model, "trim", percent)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(make, model, "trim") DO UPDATE SET
			percent = excluded.percent,
			updated_at = CURRENT_TIMESTAMP
	`, t.Make, t.Model, t.Trim, t.Percent)
	if err != nil {
		return fmt.Errorf("upsert trim adjustment: %w", err)
	}
	return nil
}

// ListFeatures returns the full feature catalog.
func (s *Store) ListFeatures(ctx context.Context) ([]Feature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(category, ''), percent
		FROM feature_catalog
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query feature catalog: %w", err)
	}
	defer rows.Close()

	features := make([]Feature, 0)
	for rows.Next() {
		var f Feature
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.Percent); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return features, nil
}

// UpsertFeature creates or replaces a feature catalog entry.
func (s *Store) UpsertFeature(ctx context.Context, f Feature) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feature_catalog (id, name, category, percent)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			percent = excluded.percent,
			updated_at = CURRENT_TIMESTAMP
	`, f.ID, f.Name, f.Category, f.Percent)
	if err != nil {
		return fmt.Errorf("upsert feature: %w", err)
	}
	return nil
}

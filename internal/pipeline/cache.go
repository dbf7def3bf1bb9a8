package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/autoworth/autoworth/internal/valuation"
)

// Cache is a read-through result cache keyed by VIN, one row per VIN with
// last-writer-wins semantics.
type Cache struct {
	db *sql.DB
}

// NewCache constructs a Cache over an open database.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Get returns the cached result for a VIN when one exists and is younger than
// maxAge relative to now.
func (c *Cache) Get(ctx context.Context, vin string, maxAge time.Duration, now time.Time) (*valuation.Result, bool, error) {
	var resultJSON string
	var createdAt time.Time
	err := c.db.QueryRowContext(ctx, `
		SELECT result_json, created_at
		FROM pipeline_cache
		WHERE vin = ?
	`, vin).Scan(&resultJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query pipeline cache: %w", err)
	}

	if now.Sub(createdAt) > maxAge {
		return nil, false, nil
	}

	var result valuation.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, true, nil
}

// Put stores or replaces the cached result for a VIN.
func (c *Cache) Put(ctx context.Context, vin string, result valuation.Result, now time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for cache: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO pipeline_cache (vin, result_json, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(vin) DO UPDATE SET
			result_json = excluded.result_json,
			created_at = excluded.created_at
	`, vin, string(resultJSON), now.UTC())
	if err != nil {
		return fmt.Errorf("upsert pipeline cache: %w", err)
	}
	return nil
}

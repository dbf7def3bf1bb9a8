// Package pipeline sequences a VIN-based valuation: decode, enrichment,
// valuation, market-comp aggregation. Every stage outcome is appended to an
// audit trail that is returned to the caller whether or not the run succeeds.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/autoworth/autoworth/internal/valuation"
)

// Stage identifies one pipeline step in the audit trail.
type Stage string

const (
	StageVINDecode         Stage = "vin_decode"
	StageEnrichment        Stage = "vin_enrichment"
	StageRequestPrepared   Stage = "valuation_request_prepared"
	StageRequestCreated    Stage = "valuation_request_created"
	StageMarketAggregation Stage = "market_aggregation"
	StageComplete          Stage = "valuation_complete"
	StageCachedResult      Stage = "cached_result"
)

// Status is the outcome of one stage.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// AuditEntry is one timestamped stage outcome.
type AuditEntry struct {
	Stage   Stage          `json:"stage"`
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	At      time.Time      `json:"at"`
}

// Vehicle is the identity decoded from a VIN.
type Vehicle struct {
	Make         string
	Model        string
	Year         int
	Trim         string
	BodyStyle    string
	FuelType     string
	Transmission string
}

// Enrichment is the supplemental record fetched (or served from the
// enrichment provider's own cache) for a VIN.
type Enrichment struct {
	Cached     bool
	Trim       string
	FuelType   string
	Features   []string
	Warranty   string
	OpenRecall bool
	RecallRisk string
	Resolved   bool
}

// CompSummary aggregates comparable market listings for a vehicle.
type CompSummary struct {
	Count   int
	Lowest  float64
	Median  float64
	Highest float64
}

// VINDecoder resolves a VIN into a vehicle identity.
type VINDecoder interface {
	Decode(ctx context.Context, vin string) (Vehicle, error)
}

// Enricher fetches supplemental vehicle history for a VIN.
type Enricher interface {
	Enrich(ctx context.Context, vin string, v Vehicle) (Enrichment, error)
}

// CompAggregator gathers comparable listings for a vehicle.
type CompAggregator interface {
	Aggregate(ctx context.Context, v Vehicle) (CompSummary, error)
}

// Request is the caller-supplied portion of a pipeline run.
type Request struct {
	VIN       string `json:"vin"`
	Mileage   int    `json:"mileage"`
	Condition string `json:"condition"`
	ZIPCode   string `json:"zipCode"`
}

// Outcome is the result of one pipeline run. Stage failures never surface as
// Go errors; Success is false and Error carries the message while Trail holds
// whatever stages completed.
type Outcome struct {
	RequestID string            `json:"requestId"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Cached    bool              `json:"cached"`
	Result    *valuation.Result `json:"result,omitempty"`
	Trail     []AuditEntry      `json:"auditTrail"`
}

// DefaultCacheMaxAge is the window within which a prior result for the same
// VIN short-circuits the pipeline.
const DefaultCacheMaxAge = 168 * time.Hour

// Runner executes the valuation pipeline. Enricher and Comps are optional;
// absent collaborators record a skipped stage. Cache is optional as well.
type Runner struct {
	Decoder  VINDecoder
	Enricher Enricher
	Comps    CompAggregator
	Engine   *valuation.Engine
	Cache    *Cache
	MaxAge   time.Duration
	Logger   *slog.Logger

	// Now is overridable for tests.
	Now func() time.Time
}

// NewRunner constructs a Runner with the default cache window.
func NewRunner(decoder VINDecoder, enricher Enricher, comps CompAggregator, engine *valuation.Engine, cache *Cache, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Decoder:  decoder,
		Enricher: enricher,
		Comps:    comps,
		Engine:   engine,
		Cache:    cache,
		MaxAge:   DefaultCacheMaxAge,
		Logger:   logger,
		Now:      time.Now,
	}
}

type run struct {
	trail []AuditEntry
	now   func() time.Time
}

func (r *run) append(stage Stage, status Status, message string, data map[string]any) {
	r.trail = append(r.trail, AuditEntry{
		Stage:   stage,
		Status:  status,
		Message: message,
		Data:    data,
		At:      r.now(),
	})
}

// Run executes the pipeline for one request. A decode or enrichment failure
// aborts the remaining stages (the partial trail is still returned); a
// market-aggregation failure is recorded and the run continues.
func (r *Runner) Run(ctx context.Context, req Request) Outcome {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	rn := &run{now: now}
	out := Outcome{RequestID: uuid.NewString()}

	if req.VIN == "" {
		rn.append(StageVINDecode, StatusFailed, "no VIN supplied", nil)
		out.Error = "no VIN supplied"
		out.Trail = rn.trail
		return out
	}

	if cached, ok := r.lookupCache(ctx, req.VIN, now()); ok {
		rn.append(StageCachedResult, StatusSuccess,
			fmt.Sprintf("returning cached valuation for VIN %s", req.VIN), nil)
		out.Success = true
		out.Cached = true
		out.Result = cached
		out.Trail = rn.trail
		return out
	}

	vehicle, err := r.Decoder.Decode(ctx, req.VIN)
	if err != nil {
		rn.append(StageVINDecode, StatusFailed, err.Error(), nil)
		out.Error = fmt.Sprintf("vin decode failed: %v", err)
		out.Trail = rn.trail
		return out
	}
	rn.append(StageVINDecode, StatusSuccess,
		fmt.Sprintf("decoded %d %s %s", vehicle.Year, vehicle.Make, vehicle.Model), nil)

	var enrichment Enrichment
	if r.Enricher == nil {
		rn.append(StageEnrichment, StatusSkipped, "no enrichment provider configured", nil)
	} else {
		enrichment, err = r.Enricher.Enrich(ctx, req.VIN, vehicle)
		if err != nil {
			rn.append(StageEnrichment, StatusFailed, err.Error(), nil)
			out.Error = fmt.Sprintf("vin enrichment failed: %v", err)
			out.Trail = rn.trail
			return out
		}
		source := "triggered"
		if enrichment.Cached {
			source = "cached"
		}
		rn.append(StageEnrichment, StatusSuccess, "enrichment record "+source, nil)
	}

	input := buildInput(req, vehicle, enrichment)
	rn.append(StageRequestPrepared, StatusSuccess, "valuation request prepared", nil)

	result, err := r.Engine.Valuate(ctx, input)
	if err != nil {
		rn.append(StageRequestCreated, StatusFailed, err.Error(), nil)
		out.Error = fmt.Sprintf("valuation failed: %v", err)
		out.Trail = rn.trail
		return out
	}
	rn.append(StageRequestCreated, StatusSuccess,
		fmt.Sprintf("estimated value %.0f from base %.0f", result.EstimatedValue, result.BasePrice), nil)

	if r.Comps == nil {
		rn.append(StageMarketAggregation, StatusSkipped, "no comp aggregator configured", nil)
	} else if comps, aggErr := r.Comps.Aggregate(ctx, vehicle); aggErr != nil {
		// Degrade: the base-table estimate stands.
		r.Logger.Warn("market aggregation failed", "vin", req.VIN, "error", aggErr)
		rn.append(StageMarketAggregation, StatusFailed, aggErr.Error(), nil)
	} else if comps.Count > 0 && comps.Median > 0 {
		input.BasePrice = comps.Median
		revalued, revErr := r.Engine.Valuate(ctx, input)
		if revErr != nil {
			rn.append(StageMarketAggregation, StatusFailed, revErr.Error(), nil)
		} else {
			result = revalued
			rn.append(StageMarketAggregation, StatusSuccess,
				fmt.Sprintf("re-valued against %d comparable listings", comps.Count),
				map[string]any{"count": comps.Count, "median": comps.Median,
					"lowest": comps.Lowest, "highest": comps.Highest})
		}
	} else {
		rn.append(StageMarketAggregation, StatusSuccess, "no comparable listings found", nil)
	}

	rn.append(StageComplete, StatusSuccess,
		fmt.Sprintf("final estimate %.0f", result.EstimatedValue),
		map[string]any{"estimatedValue": result.EstimatedValue, "confidence": result.Confidence})

	r.storeCache(ctx, req.VIN, result, now())

	out.Success = true
	out.Result = &result
	out.Trail = rn.trail
	return out
}

func (r *Runner) lookupCache(ctx context.Context, vin string, now time.Time) (*valuation.Result, bool) {
	if r.Cache == nil {
		return nil, false
	}
	maxAge := r.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultCacheMaxAge
	}
	cached, ok, err := r.Cache.Get(ctx, vin, maxAge, now)
	if err != nil {
		r.Logger.Warn("pipeline cache read failed", "vin", vin, "error", err)
		return nil, false
	}
	return cached, ok
}

func (r *Runner) storeCache(ctx context.Context, vin string, result valuation.Result, now time.Time) {
	if r.Cache == nil {
		return
	}
	if err := r.Cache.Put(ctx, vin, result, now); err != nil {
		r.Logger.Warn("pipeline cache write failed", "vin", vin, "error", err)
	}
}

// buildInput merges the caller request, the decoded identity, and the
// enrichment record into one valuation input. Enrichment wins over decode for
// the fields both may carry.
func buildInput(req Request, v Vehicle, e Enrichment) valuation.Input {
	trim := v.Trim
	if e.Trim != "" {
		trim = e.Trim
	}
	fuel := v.FuelType
	if e.FuelType != "" {
		fuel = e.FuelType
	}

	return valuation.Input{
		VIN:            req.VIN,
		Make:           v.Make,
		Model:          v.Model,
		Year:           v.Year,
		Mileage:        req.Mileage,
		Condition:      valuation.NormalizeCondition(req.Condition),
		ZIPCode:        req.ZIPCode,
		Trim:           trim,
		FuelType:       valuation.NormalizeFuelType(fuel),
		Transmission:   v.Transmission,
		BodyStyle:      valuation.NormalizeBodyStyle(v.BodyStyle),
		Features:       e.Features,
		Warranty:       valuation.NormalizeWarranty(e.Warranty),
		OpenRecall:     e.OpenRecall,
		RecallRisk:     valuation.RecallRisk(e.RecallRisk),
		RecallResolved: e.Resolved,
	}
}

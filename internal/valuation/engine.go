package valuation

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// BasePriceSource supplies a base market value for a vehicle when the request
// does not carry one.
type BasePriceSource func(ctx context.Context, make, model string, year, mileage int) (float64, error)

// StaticBasePrice returns a source that always answers with v.
func StaticBasePrice(v float64) BasePriceSource {
	return func(context.Context, string, string, int, int) (float64, error) {
		return v, nil
	}
}

// MarketSource resolves regional, trim, and feature data from persisted
// tables. Implementations return zero values for unknown keys rather than
// errors; errors are reserved for lookup failures.
type MarketSource interface {
	Multiplier(ctx context.Context, zip string) (float64, error)
	TrimPercent(ctx context.Context, make, model, trim string) (float64, bool, error)
	FeaturePercents(ctx context.Context) (map[string]float64, error)
}

// Engine composes the factor calculators into a valuation. Market and
// BasePrice are optional; a nil market source skips location/trim lookups and
// falls back to the built-in feature catalog, a nil base-price source falls
// back to DefaultBasePrice.
type Engine struct {
	market    MarketSource
	basePrice BasePriceSource
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(market MarketSource, basePrice BasePriceSource, logger *slog.Logger) *Engine {
	if basePrice == nil {
		basePrice = StaticBasePrice(DefaultBasePrice)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		market:    market,
		basePrice: basePrice,
		logger:    logger,
		now:       time.Now,
	}
}

// Adjustments runs every applicable calculator against the input in fixed
// order: mileage, condition, location, trim, accidents, features, title,
// fuel, seasonal, warranty, recalls, color, driving behavior. The order of
// the returned slice is the invocation order, not significance. Lookup
// failures degrade to a zero contribution and are logged, never raised.
func (e *Engine) Adjustments(ctx context.Context, in Input, basePrice float64) []Adjustment {
	season := in.Season
	if season == "" {
		season = SeasonOf(e.now())
	}

	multiplier := e.resolveMultiplier(ctx, in.ZIPCode)
	trimPct, trimFound := e.resolveTrim(ctx, in)
	catalog := e.resolveFeatureCatalog(ctx, in)

	rows := []*Adjustment{
		mileageAdjustment(in, basePrice),
		conditionAdjustment(in, basePrice),
		locationAdjustment(in, basePrice, multiplier),
		trimAdjustment(in, basePrice, trimPct, trimFound),
		accidentAdjustment(in, basePrice),
		featureAdjustment(in, basePrice, catalog),
		titleAdjustment(in, basePrice),
		fuelAdjustment(in, basePrice),
		seasonalAdjustment(in, basePrice, season),
		warrantyAdjustment(in, basePrice),
		recallAdjustment(in, basePrice),
		colorAdjustment(in, basePrice),
		drivingAdjustment(in, basePrice),
	}

	adjustments := make([]Adjustment, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			adjustments = append(adjustments, *row)
		}
	}
	return adjustments
}

// Valuate validates the request, resolves a base price, and produces the full
// valuation result.
func (e *Engine) Valuate(ctx context.Context, in Input) (Result, error) {
	if in.Mileage < 0 {
		return Result{}, &ValidationError{Field: "mileage", Reason: "must not be negative"}
	}
	if in.ZIPCode != "" && !validZIP(in.ZIPCode) {
		return Result{}, &ValidationError{Field: "zipCode", Reason: "must be a 5-digit ZIP code"}
	}

	basePrice := in.BasePrice
	if basePrice <= 0 {
		resolved, err := e.basePrice(ctx, in.Make, in.Model, in.Year, in.Mileage)
		if err != nil {
			e.logger.Warn("base price lookup failed, using default",
				"make", in.Make, "model", in.Model, "error", err)
			resolved = DefaultBasePrice
		}
		basePrice = resolved
	}
	if basePrice <= 0 {
		return Result{}, &ValidationError{Field: "basePrice", Reason: "must be positive"}
	}

	adjustments := e.Adjustments(ctx, in, basePrice)
	estimated := FinalValue(basePrice, adjustments)
	confidence := e.confidence(in)
	low, high := priceRange(estimated, confidence)

	return Result{
		EstimatedValue: estimated,
		BasePrice:      basePrice,
		Adjustments:    adjustments,
		PriceLow:       low,
		PriceHigh:      high,
		Confidence:     confidence,
	}, nil
}

// FinalValue sums the already-scaled dollar impacts onto the base price and
// applies the minimum-value floor.
func FinalValue(basePrice float64, adjustments []Adjustment) float64 {
	total := basePrice
	for _, a := range adjustments {
		total += a.Impact
	}
	return math.Max(MinimumValue, math.Round(total))
}

const baseConfidence = 75

// confidence scores how much of the optional input was supplied. It is a
// completeness heuristic, not a statistical interval.
func (e *Engine) confidence(in Input) int {
	score := baseConfidence
	if in.hasCoreFields() {
		score += 5
	}
	if in.ZIPCode != "" {
		score += 3
	}
	if in.AIConditionScore > 0 {
		score += 5
	}
	if len(in.Features) > 0 {
		score += 2
	}
	if in.VIN != "" {
		score += 2
	}
	if in.Trim != "" {
		score += 2
	}
	if in.OpenRecall && !in.RecallResolved && in.RecallRisk == RecallRiskHigh {
		score -= recallConfidencePenalty
	}
	if score > 100 {
		score = 100
	}
	if score < 30 {
		score = 30
	}
	return score
}

// priceRange brackets the estimate with a band whose half-width shrinks from
// 10% at base confidence to 5% at full confidence.
func priceRange(estimated float64, confidence int) (low, high float64) {
	spread := 0.10 - 0.05*float64(confidence-baseConfidence)/float64(100-baseConfidence)
	if spread > 0.10 {
		spread = 0.10
	}
	if spread < 0.05 {
		spread = 0.05
	}
	return math.Round(estimated * (1 - spread)), math.Round(estimated * (1 + spread))
}

func (e *Engine) resolveMultiplier(ctx context.Context, zip string) float64 {
	if zip == "" || e.market == nil {
		return 0
	}
	multiplier, err := e.market.Multiplier(ctx, zip)
	if err != nil {
		e.logger.Warn("market multiplier lookup failed, using 0", "zip", zip, "error", err)
		return 0
	}
	return multiplier
}

func (e *Engine) resolveTrim(ctx context.Context, in Input) (float64, bool) {
	if in.Trim == "" || e.market == nil {
		return 0, false
	}
	pct, found, err := e.market.TrimPercent(ctx, in.Make, in.Model, in.Trim)
	if err != nil {
		e.logger.Warn("trim lookup failed, skipping trim adjustment",
			"make", in.Make, "model", in.Model, "trim", in.Trim, "error", err)
		return 0, false
	}
	return pct, found
}

func (e *Engine) resolveFeatureCatalog(ctx context.Context, in Input) map[string]float64 {
	if len(in.Features) == 0 || e.market == nil {
		return nil
	}
	catalog, err := e.market.FeaturePercents(ctx)
	if err != nil || len(catalog) == 0 {
		if err != nil {
			e.logger.Warn("feature catalog lookup failed, using built-in catalog", "error", err)
		}
		return nil
	}
	return catalog
}

func validZIP(zip string) bool {
	if len(zip) != 5 {
		return false
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

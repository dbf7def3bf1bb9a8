package valuation_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoworth/autoworth/internal/valuation"
)

// mockMarket implements valuation.MarketSource with overridable funcs.
type mockMarket struct {
	multiplierFunc func(ctx context.Context, zip string) (float64, error)
	trimFunc       func(ctx context.Context, make, model, trim string) (float64, bool, error)
	featuresFunc   func(ctx context.Context) (map[string]float64, error)
}

func (m *mockMarket) Multiplier(ctx context.Context, zip string) (float64, error) {
	if m.multiplierFunc != nil {
		return m.multiplierFunc(ctx, zip)
	}
	return 0, nil
}

func (m *mockMarket) TrimPercent(ctx context.Context, make, model, trim string) (float64, bool, error) {
	if m.trimFunc != nil {
		return m.trimFunc(ctx, make, model, trim)
	}
	return 0, false, nil
}

func (m *mockMarket) FeaturePercents(ctx context.Context) (map[string]float64, error) {
	if m.featuresFunc != nil {
		return m.featuresFunc(ctx)
	}
	return nil, nil
}

func TestValuate_EmptyFactorSetReturnsBasePrice(t *testing.T) {
	engine := valuation.NewEngine(nil, nil, nil)

	res, err := engine.Valuate(context.Background(), valuation.Input{BasePrice: 12500})
	require.NoError(t, err)

	assert.Equal(t, 12500.0, res.EstimatedValue)
	assert.Equal(t, 12500.0, res.BasePrice)
	assert.Empty(t, res.Adjustments)
}

func TestValuate_CamryScenario(t *testing.T) {
	market := &mockMarket{
		multiplierFunc: func(_ context.Context, zip string) (float64, error) {
			require.Equal(t, "90210", zip)
			return 4, nil
		},
	}
	engine := valuation.NewEngine(market, nil, nil)

	in := valuation.Input{
		Make:      "Toyota",
		Model:     "Camry",
		Year:      2018,
		Mileage:   30000,
		Condition: valuation.NormalizeCondition("Good"),
		ZIPCode:   "90210",
		BasePrice: 15000,
		Season:    valuation.SeasonSpring,
	}

	res, err := engine.Valuate(context.Background(), in)
	require.NoError(t, err)

	// 30,000 miles sits in the neutral band and "good" is the neutral
	// condition, so location is the only row.
	require.Len(t, res.Adjustments, 1)
	assert.Equal(t, "location", res.Adjustments[0].Factor)
	assert.Equal(t, 600.0, res.Adjustments[0].Impact)
	assert.Equal(t, 15600.0, res.EstimatedValue)
}

func TestValuate_AdjustmentOrderIsFixed(t *testing.T) {
	market := &mockMarket{
		multiplierFunc: func(context.Context, string) (float64, error) { return 2, nil },
		trimFunc: func(context.Context, string, string, string) (float64, bool, error) {
			return 3, true, nil
		},
	}
	engine := valuation.NewEngine(market, nil, nil)

	in := valuation.Input{
		Make:          "Honda",
		Model:         "Accord",
		Year:          2016,
		Mileage:       120000,
		Condition:     valuation.ConditionFair,
		ZIPCode:       "10001",
		Trim:          "Touring",
		FuelType:      valuation.FuelHybrid,
		AccidentCount: 1,
		Features:      []string{"sunroof"},
		TitleStatus:   valuation.TitleRebuilt,
		BasePrice:     18000,
		Season:        valuation.SeasonSummer,
	}

	res, err := engine.Valuate(context.Background(), in)
	require.NoError(t, err)

	factors := make([]string, 0, len(res.Adjustments))
	for _, a := range res.Adjustments {
		factors = append(factors, a.Factor)
	}
	assert.Equal(t, []string{
		"mileage", "condition", "location", "trim",
		"accidents", "features", "title", "fuel",
	}, factors)
}

func TestValuate_MarketLookupFailureDegradesToZero(t *testing.T) {
	market := &mockMarket{
		multiplierFunc: func(context.Context, string) (float64, error) {
			return 0, fmt.Errorf("backend unavailable")
		},
	}
	engine := valuation.NewEngine(market, nil, nil)

	res, err := engine.Valuate(context.Background(), valuation.Input{
		ZIPCode:   "90210",
		BasePrice: 10000,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Adjustments)
	assert.Equal(t, 10000.0, res.EstimatedValue)
}

func TestValuate_ValidationErrors(t *testing.T) {
	engine := valuation.NewEngine(nil, nil, nil)

	_, err := engine.Valuate(context.Background(), valuation.Input{Mileage: -1, BasePrice: 10000})
	var verr *valuation.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mileage", verr.Field)

	_, err = engine.Valuate(context.Background(), valuation.Input{ZIPCode: "abc", BasePrice: 10000})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "zipCode", verr.Field)

	_, err = engine.Valuate(context.Background(), valuation.Input{
		BasePrice: -5,
	})
	// A negative request base price falls through to the default source, so
	// this succeeds; a zero-returning source is the invalid case.
	require.NoError(t, err)

	zeroSource := valuation.StaticBasePrice(0)
	engine = valuation.NewEngine(nil, zeroSource, nil)
	_, err = engine.Valuate(context.Background(), valuation.Input{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "basePrice", verr.Field)
}

func TestValuate_FloorApplied(t *testing.T) {
	engine := valuation.NewEngine(nil, nil, nil)

	res, err := engine.Valuate(context.Background(), valuation.Input{
		BasePrice:   3500,
		TitleStatus: valuation.TitleSalvage,
	})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, res.EstimatedValue)
}

func TestValuate_DefaultBasePriceWhenUnsupplied(t *testing.T) {
	engine := valuation.NewEngine(nil, nil, nil)

	res, err := engine.Valuate(context.Background(), valuation.Input{})
	require.NoError(t, err)
	assert.Equal(t, float64(valuation.DefaultBasePrice), res.BasePrice)
}

func TestConfidence_MonotoneAndCapped(t *testing.T) {
	engine := valuation.NewEngine(nil, nil, nil)
	ctx := context.Background()

	steps := []valuation.Input{
		{BasePrice: 10000},
		{BasePrice: 10000, Make: "Toyota", Model: "Camry", Year: 2018, Mileage: 30000, Condition: valuation.ConditionGood},
		{BasePrice: 10000, Make: "Toyota", Model: "Camry", Year: 2018, Mileage: 30000, Condition: valuation.ConditionGood, ZIPCode: "90210"},
		{BasePrice: 10000, Make: "Toyota", Model: "Camry", Year: 2018, Mileage: 30000, Condition: valuation.ConditionGood, ZIPCode: "90210", AIConditionScore: 82},
		{BasePrice: 10000, Make: "Toyota", Model: "Camry", Year: 2018, Mileage: 30000, Condition: valuation.ConditionGood, ZIPCode: "90210", AIConditionScore: 82, Features: []string{"sunroof"}},
		{BasePrice: 10000, Make: "Toyota", Model: "Camry", Year: 2018, Mileage: 30000, Condition: valuation.ConditionGood, ZIPCode: "90210", AIConditionScore: 82, Features: []string{"sunroof"}, VIN: "4T1B11HK5JU000001", Trim: "SE"},
	}

	prev := 0
	for i, in := range steps {
		res, err := engine.Valuate(ctx, in)
		require.NoError(t, err, "step %d", i)
		assert.GreaterOrEqual(t, res.Confidence, prev, "step %d", i)
		assert.LessOrEqual(t, res.Confidence, 100, "step %d", i)
		prev = res.Confidence
	}
}

func TestPriceRange_BracketsEstimateAndNarrowsWithConfidence(t *testing.T) {
	engine := valuation.NewEngine(nil, nil, nil)
	ctx := context.Background()

	sparse, err := engine.Valuate(ctx, valuation.Input{BasePrice: 20000})
	require.NoError(t, err)

	full, err := engine.Valuate(ctx, valuation.Input{
		BasePrice: 20000, Make: "Toyota", Model: "Camry", Year: 2018,
		Mileage: 45000, Condition: valuation.ConditionGood, ZIPCode: "90210",
		AIConditionScore: 90, Features: []string{"sunroof"},
		VIN: "4T1B11HK5JU000001", Trim: "SE", Season: valuation.SeasonSpring,
	})
	require.NoError(t, err)

	for _, res := range []valuation.Result{sparse, full} {
		assert.Less(t, res.PriceLow, res.EstimatedValue)
		assert.Greater(t, res.PriceHigh, res.EstimatedValue)
	}

	sparseWidth := (sparse.PriceHigh - sparse.PriceLow) / sparse.EstimatedValue
	fullWidth := (full.PriceHigh - full.PriceLow) / full.EstimatedValue
	assert.Greater(t, full.Confidence, sparse.Confidence)
	assert.Less(t, fullWidth, sparseWidth)
}

func TestRecallLowersConfidence(t *testing.T) {
	engine := valuation.NewEngine(nil, nil, nil)
	ctx := context.Background()

	clean, err := engine.Valuate(ctx, valuation.Input{BasePrice: 10000})
	require.NoError(t, err)

	recalled, err := engine.Valuate(ctx, valuation.Input{
		BasePrice:  10000,
		OpenRecall: true,
		RecallRisk: valuation.RecallRiskHigh,
	})
	require.NoError(t, err)

	assert.Less(t, recalled.Confidence, clean.Confidence)
	require.Len(t, recalled.Adjustments, 1)
	assert.Equal(t, "recalls", recalled.Adjustments[0].Factor)
}

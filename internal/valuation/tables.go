package valuation

import "math"

// This file is the single source of truth for the pricing rule tables. The
// values are business constants, not derived quantities; change them only with
// a pricing sign-off.

const (
	// MinimumValue is the floor applied to every final estimate.
	MinimumValue = 3000

	// DefaultBasePrice is the fallback base market value used when no
	// base-price source is wired and the request carries none.
	DefaultBasePrice = 20000

	// featureCapPercent caps the combined premium-feature adjustment.
	featureCapPercent = 15
)

// mileageBand maps mileages up to and including Max to a percentage.
type mileageBand struct {
	Max     int
	Percent float64
}

var mileageBands = []mileageBand{
	{Max: 29999, Percent: 2.5},
	{Max: 60000, Percent: 0},
	{Max: 100000, Percent: -5},
	{Max: 150000, Percent: -10},
	{Max: math.MaxInt, Percent: -15},
}

func mileagePercent(mileage int) float64 {
	for _, b := range mileageBands {
		if mileage <= b.Max {
			return b.Percent
		}
	}
	return 0
}

var conditionPercents = map[Condition]float64{
	ConditionExcellent: 5,
	ConditionVeryGood:  2.5,
	ConditionGood:      0,
	ConditionFair:      -7.5,
	ConditionPoor:      -15,
}

// titleBand maps title severity bands (inclusive upper bound) to a percentage
// and the category it represents.
type titleBand struct {
	Max     int
	Percent float64
	Name    string
}

var titleBands = []titleBand{
	{Max: 0, Percent: 0, Name: "clean"},
	{Max: 25, Percent: -30, Name: "rebuilt"},
	{Max: 50, Percent: -25, Name: "lemon/buyback"},
	{Max: 75, Percent: -20, Name: "theft-recovered"},
	{Max: 100, Percent: -50, Name: "salvage/flood"},
}

func titleBandFor(band int) titleBand {
	for _, b := range titleBands {
		if band <= b.Max {
			return b
		}
	}
	return titleBands[len(titleBands)-1]
}

// accidentPercent escalates with the number of reported accidents.
func accidentPercent(count int) float64 {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return -6
	case count == 2:
		return -10
	default:
		return -15
	}
}

const (
	frameDamagePercent   = -5
	majorAccidentPercent = -3
)

// defaultFeaturePercents is the built-in premium feature catalog, used when
// no persisted catalog is available.
var defaultFeaturePercents = map[string]float64{
	"leather_seats":      2,
	"sunroof":            1.5,
	"navigation":         1,
	"premium_audio":      2,
	"adaptive_cruise":    2,
	"blind_spot_monitor": 1,
	"heated_seats":       1,
	"camera_360":         2,
}

var fuelPercents = map[FuelType]float64{
	FuelElectric:     8,
	FuelPluginHybrid: 6,
	FuelHybrid:       5,
	FuelDiesel:       3,
}

// seasonalPercents crosses body style with the current season. Rows absent
// from the table are neutral.
var seasonalPercents = map[BodyStyle]map[Season]float64{
	BodyConvertible: {
		SeasonWinter: -5,
		SeasonSpring: 4,
		SeasonSummer: 8,
		SeasonFall:   -2,
	},
	BodySUV: {
		SeasonWinter: 6,
		SeasonSpring: 0,
		SeasonSummer: 0,
		SeasonFall:   3,
	},
	BodyTruck: {
		SeasonWinter: 5,
		SeasonSpring: 2,
		SeasonSummer: 1,
		SeasonFall:   3,
	},
	BodySports: {
		SeasonWinter: -4,
		SeasonSpring: 3,
		SeasonSummer: 5,
		SeasonFall:   0,
	},
	BodySedan: {
		SeasonWinter: 0,
		SeasonSpring: 1,
		SeasonSummer: 0,
		SeasonFall:   0,
	},
}

var warrantyPercents = map[WarrantyType]float64{
	WarrantyFactory:  4,
	WarrantyCPO:      6,
	WarrantyExtended: 2,
}

const (
	recallPercent           = -5
	recallConfidencePenalty = 10
)

var neutralColors = map[string]bool{
	"white":  true,
	"black":  true,
	"silver": true,
	"gray":   true,
	"grey":   true,
}

var demandColors = map[string]bool{
	"red":  true,
	"blue": true,
}

var unusualColors = map[string]bool{
	"green":  true,
	"yellow": true,
	"orange": true,
	"purple": true,
	"brown":  true,
	"gold":   true,
}

// drivingPercent maps a 1-100 telematics score to a small percentage.
func drivingPercent(score int) float64 {
	switch {
	case score >= 90:
		return 1
	case score >= 70:
		return 0
	case score >= 50:
		return -1
	default:
		return -2
	}
}

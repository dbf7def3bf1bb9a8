package valuation

import (
	"fmt"
	"math"
	"strings"
)

// Each calculator takes the request and the base price and returns either one
// Adjustment or nil when its triggering field is absent. Calculators never
// fail: unrecognized enum values are neutral and produce no row.

// dollars converts a percentage of the base price to a whole-dollar impact.
func dollars(basePrice, percent float64) float64 {
	return math.Round(basePrice * percent / 100)
}

func percentAdjustment(factor, label string, percent, basePrice float64, description string) *Adjustment {
	return &Adjustment{
		Factor:      factor,
		Label:       label,
		Impact:      dollars(basePrice, percent),
		Percent:     percent,
		Description: description,
	}
}

func mileageAdjustment(in Input, basePrice float64) *Adjustment {
	if in.Mileage <= 0 {
		return nil
	}
	pct := mileagePercent(in.Mileage)
	if pct == 0 {
		return nil
	}
	return percentAdjustment("mileage", "Mileage", pct, basePrice,
		fmt.Sprintf("%d miles on the odometer", in.Mileage))
}

func conditionAdjustment(in Input, basePrice float64) *Adjustment {
	pct, ok := conditionPercents[in.Condition]
	if !ok || pct == 0 {
		return nil
	}
	return percentAdjustment("condition", "Condition", pct, basePrice,
		fmt.Sprintf("Overall condition rated %s", in.Condition))
}

// locationAdjustment applies the regional multiplier resolved by the engine.
func locationAdjustment(in Input, basePrice, multiplier float64) *Adjustment {
	if in.ZIPCode == "" || multiplier == 0 {
		return nil
	}
	return percentAdjustment("location", "Location", multiplier, basePrice,
		fmt.Sprintf("Regional demand near ZIP %s", in.ZIPCode))
}

// trimAdjustment applies the trim percentage resolved by the engine; found is
// false when the make/model/trim combination has no table entry.
func trimAdjustment(in Input, basePrice, pct float64, found bool) *Adjustment {
	if in.Trim == "" || !found {
		return nil
	}
	return percentAdjustment("trim", "Trim level", pct, basePrice,
		fmt.Sprintf("%s %s %s trim", in.Make, in.Model, in.Trim))
}

func accidentAdjustment(in Input, basePrice float64) *Adjustment {
	if in.AccidentCount <= 0 {
		return nil
	}
	pct := accidentPercent(in.AccidentCount)
	desc := fmt.Sprintf("%d reported accident(s)", in.AccidentCount)
	if in.FrameDamage {
		pct += frameDamagePercent
		desc += ", frame damage"
	}
	if in.MajorAccident {
		pct += majorAccidentPercent
		desc += ", major severity"
	}
	return percentAdjustment("accidents", "Accident history", pct, basePrice, desc)
}

// featureAdjustment sums the recognized premium features against the supplied
// catalog, capping the combined percentage at featureCapPercent.
func featureAdjustment(in Input, basePrice float64, catalog map[string]float64) *Adjustment {
	if len(in.Features) == 0 {
		return nil
	}
	if catalog == nil {
		catalog = defaultFeaturePercents
	}

	total := 0.0
	matched := 0
	for _, f := range in.Features {
		key := strings.ToLower(strings.TrimSpace(f))
		if pct, ok := catalog[key]; ok {
			total += pct
			matched++
		}
	}
	if matched == 0 || total == 0 {
		return nil
	}

	capped := false
	if total > featureCapPercent {
		total = featureCapPercent
		capped = true
	}

	desc := fmt.Sprintf("%d premium feature(s)", matched)
	if capped {
		desc += " (capped)"
	}
	return percentAdjustment("features", "Premium features", total, basePrice, desc)
}

func titleAdjustment(in Input, basePrice float64) *Adjustment {
	band := in.effectiveTitleBand()
	if band <= 0 {
		return nil
	}
	tb := titleBandFor(band)
	if tb.Percent == 0 {
		return nil
	}
	return percentAdjustment("title", "Title status", tb.Percent, basePrice,
		fmt.Sprintf("Title branded %s", tb.Name))
}

func fuelAdjustment(in Input, basePrice float64) *Adjustment {
	pct, ok := fuelPercents[in.FuelType]
	if !ok || pct == 0 {
		return nil
	}
	return percentAdjustment("fuel", "Fuel type", pct, basePrice,
		fmt.Sprintf("%s powertrain", in.FuelType))
}

func seasonalAdjustment(in Input, basePrice float64, season Season) *Adjustment {
	row, ok := seasonalPercents[in.BodyStyle]
	if !ok {
		return nil
	}
	pct := row[season]
	if pct == 0 {
		return nil
	}
	return percentAdjustment("seasonal", "Seasonal demand", pct, basePrice,
		fmt.Sprintf("%s demand in %s", in.BodyStyle, season))
}

func warrantyAdjustment(in Input, basePrice float64) *Adjustment {
	pct, ok := warrantyPercents[in.Warranty]
	if !ok || pct == 0 {
		return nil
	}
	return percentAdjustment("warranty", "Warranty", pct, basePrice,
		fmt.Sprintf("Active %s warranty", in.Warranty))
}

func recallAdjustment(in Input, basePrice float64) *Adjustment {
	if !in.OpenRecall || in.RecallResolved || in.RecallRisk != RecallRiskHigh {
		return nil
	}
	return percentAdjustment("recalls", "Open recall", recallPercent, basePrice,
		"Unresolved high-risk safety recall")
}

func colorAdjustment(in Input, basePrice float64) *Adjustment {
	color := strings.ToLower(strings.TrimSpace(in.Color))
	if color == "" || neutralColors[color] {
		return nil
	}
	var pct float64
	switch {
	case demandColors[color]:
		pct = 1
	case unusualColors[color]:
		pct = -1.5
	default:
		return nil
	}
	return percentAdjustment("color", "Exterior color", pct, basePrice,
		fmt.Sprintf("Market demand for %s", color))
}

func drivingAdjustment(in Input, basePrice float64) *Adjustment {
	if in.DrivingScore <= 0 {
		return nil
	}
	pct := drivingPercent(in.DrivingScore)
	if pct == 0 {
		return nil
	}
	return percentAdjustment("driving", "Driving behavior", pct, basePrice,
		fmt.Sprintf("Telematics driving score %d", in.DrivingScore))
}

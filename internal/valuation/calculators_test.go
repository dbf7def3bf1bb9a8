package valuation

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestMileageAdjustmentBands(t *testing.T) {
	cases := []struct {
		mileage int
		impact  float64
	}{
		{25000, 500},   // +2.5% of 20000
		{29999, 500},   // last mile of the low band
		{30000, 0},     // 30k-60k is neutral
		{60000, 0},     // upper edge of the neutral band
		{60001, -1000}, // -5%
		{100000, -1000},
		{100001, -2000}, // -10%
		{150000, -2000},
		{150001, -3000}, // -15%
	}

	for _, tc := range cases {
		adj := mileageAdjustment(Input{Mileage: tc.mileage}, 20000)
		if tc.impact == 0 {
			if adj != nil {
				t.Fatalf("mileage %d: expected no row, got %+v", tc.mileage, adj)
			}
			continue
		}
		if adj == nil {
			t.Fatalf("mileage %d: expected a row", tc.mileage)
		}
		nearlyEqual(t, "impact", adj.Impact, tc.impact)
	}
}

func TestMileageAdjustmentAbsent(t *testing.T) {
	if adj := mileageAdjustment(Input{}, 20000); adj != nil {
		t.Fatalf("expected nil for absent mileage, got %+v", adj)
	}
}

func TestConditionAdjustmentTable(t *testing.T) {
	base := 10000.0

	if adj := conditionAdjustment(Input{Condition: ConditionExcellent}, base); adj == nil || adj.Impact != 500 {
		t.Fatalf("excellent: got %+v, want +500", adj)
	}
	if adj := conditionAdjustment(Input{Condition: ConditionGood}, base); adj != nil {
		t.Fatalf("good is neutral, got %+v", adj)
	}
	if adj := conditionAdjustment(Input{Condition: ConditionFair}, base); adj == nil || adj.Impact != -750 {
		t.Fatalf("fair: got %+v, want -750", adj)
	}
	if adj := conditionAdjustment(Input{Condition: ConditionPoor}, base); adj == nil || adj.Impact != -1500 {
		t.Fatalf("poor: got %+v, want -1500", adj)
	}
	if adj := conditionAdjustment(Input{Condition: NormalizeCondition("Totally Wrecked")}, base); adj != nil {
		t.Fatalf("unknown condition must be neutral, got %+v", adj)
	}
}

func TestTitleAdjustmentBands(t *testing.T) {
	base := 20000.0

	if adj := titleAdjustment(Input{TitleBand: 0}, base); adj != nil {
		t.Fatalf("clean title must produce no row, got %+v", adj)
	}
	if adj := titleAdjustment(Input{TitleBand: 100}, base); adj == nil || adj.Impact != -10000 {
		t.Fatalf("band 100 must be exactly -50%%, got %+v", adj)
	}
	if adj := titleAdjustment(Input{TitleBand: 13}, base); adj == nil || adj.Impact != -6000 {
		t.Fatalf("rebuilt band: got %+v, want -6000", adj)
	}
	if adj := titleAdjustment(Input{TitleStatus: TitleSalvage}, base); adj == nil || adj.Impact != -10000 {
		t.Fatalf("enumerated salvage must match band 76-100, got %+v", adj)
	}
	if adj := titleAdjustment(Input{TitleStatus: TitleClean}, base); adj != nil {
		t.Fatalf("enumerated clean must produce no row, got %+v", adj)
	}
}

func TestAccidentAdjustmentEscalation(t *testing.T) {
	base := 10000.0

	if adj := accidentAdjustment(Input{}, base); adj != nil {
		t.Fatalf("zero accidents must produce no row, got %+v", adj)
	}

	one := accidentAdjustment(Input{AccidentCount: 1}, base)
	two := accidentAdjustment(Input{AccidentCount: 2}, base)
	three := accidentAdjustment(Input{AccidentCount: 3}, base)
	five := accidentAdjustment(Input{AccidentCount: 5}, base)

	nearlyEqual(t, "one accident", one.Impact, -600)
	nearlyEqual(t, "two accidents", two.Impact, -1000)
	nearlyEqual(t, "three accidents", three.Impact, -1500)
	nearlyEqual(t, "five accidents", five.Impact, -1500)

	frame := accidentAdjustment(Input{AccidentCount: 1, FrameDamage: true}, base)
	nearlyEqual(t, "frame damage", frame.Impact, -1100)

	major := accidentAdjustment(Input{AccidentCount: 1, FrameDamage: true, MajorAccident: true}, base)
	nearlyEqual(t, "major severity", major.Impact, -1400)
}

func TestFeatureAdjustmentCap(t *testing.T) {
	base := 10000.0
	all := []string{
		"leather_seats", "sunroof", "navigation", "premium_audio",
		"adaptive_cruise", "blind_spot_monitor", "heated_seats", "camera_360",
		"leather_seats", "premium_audio", "camera_360", "adaptive_cruise",
	}

	adj := featureAdjustment(Input{Features: all}, base, nil)
	if adj == nil {
		t.Fatal("expected a feature row")
	}
	nearlyEqual(t, "capped total", adj.Impact, 0.15*base)
	nearlyEqual(t, "capped percent", adj.Percent, 15)
}

func TestFeatureAdjustmentUnknownFeaturesSkipped(t *testing.T) {
	adj := featureAdjustment(Input{Features: []string{"ashtray", "cupholders"}}, 10000, nil)
	if adj != nil {
		t.Fatalf("unrecognized features must produce no row, got %+v", adj)
	}

	adj = featureAdjustment(Input{Features: []string{"sunroof", "ashtray"}}, 10000, nil)
	if adj == nil {
		t.Fatal("expected a row for the recognized feature")
	}
	nearlyEqual(t, "single feature", adj.Impact, 150)
}

func TestFuelAdjustmentTable(t *testing.T) {
	base := 10000.0

	if adj := fuelAdjustment(Input{FuelType: FuelElectric}, base); adj == nil || adj.Impact != 800 {
		t.Fatalf("electric: got %+v, want +800", adj)
	}
	if adj := fuelAdjustment(Input{FuelType: FuelHybrid}, base); adj == nil || adj.Impact != 500 {
		t.Fatalf("hybrid: got %+v, want +500", adj)
	}
	if adj := fuelAdjustment(Input{FuelType: FuelDiesel}, base); adj == nil || adj.Impact != 300 {
		t.Fatalf("diesel: got %+v, want +300", adj)
	}
	if adj := fuelAdjustment(Input{FuelType: FuelGasoline}, base); adj != nil {
		t.Fatalf("gasoline is neutral, got %+v", adj)
	}
}

func TestSeasonalAdjustmentMatrix(t *testing.T) {
	base := 10000.0

	summer := seasonalAdjustment(Input{BodyStyle: BodyConvertible}, base, SeasonSummer)
	nearlyEqual(t, "convertible summer", summer.Impact, 800)

	winter := seasonalAdjustment(Input{BodyStyle: BodyConvertible}, base, SeasonWinter)
	nearlyEqual(t, "convertible winter", winter.Impact, -500)

	if adj := seasonalAdjustment(Input{BodyStyle: BodySedan}, base, SeasonSummer); adj != nil {
		t.Fatalf("sedan summer is neutral, got %+v", adj)
	}
	if adj := seasonalAdjustment(Input{}, base, SeasonSummer); adj != nil {
		t.Fatalf("unknown body style is neutral, got %+v", adj)
	}
}

func TestRecallAdjustment(t *testing.T) {
	base := 10000.0

	open := recallAdjustment(Input{OpenRecall: true, RecallRisk: RecallRiskHigh}, base)
	if open == nil {
		t.Fatal("unresolved high-risk recall must produce a row")
	}
	nearlyEqual(t, "recall impact", open.Impact, -500)

	if adj := recallAdjustment(Input{OpenRecall: true, RecallRisk: RecallRiskLow}, base); adj != nil {
		t.Fatalf("low-risk recall must produce no row, got %+v", adj)
	}
	if adj := recallAdjustment(Input{OpenRecall: true, RecallRisk: RecallRiskHigh, RecallResolved: true}, base); adj != nil {
		t.Fatalf("resolved recall must produce no row, got %+v", adj)
	}
}

func TestWarrantyAdjustmentTable(t *testing.T) {
	base := 10000.0

	if adj := warrantyAdjustment(Input{Warranty: WarrantyCPO}, base); adj == nil || adj.Impact != 600 {
		t.Fatalf("cpo: got %+v, want +600", adj)
	}
	if adj := warrantyAdjustment(Input{Warranty: WarrantyNone}, base); adj != nil {
		t.Fatalf("no warranty is neutral, got %+v", adj)
	}
}

func TestColorAdjustment(t *testing.T) {
	base := 10000.0

	if adj := colorAdjustment(Input{Color: "White"}, base); adj != nil {
		t.Fatalf("neutral color must produce no row, got %+v", adj)
	}
	if adj := colorAdjustment(Input{Color: "red"}, base); adj == nil || adj.Impact != 100 {
		t.Fatalf("red: got %+v, want +100", adj)
	}
	if adj := colorAdjustment(Input{Color: "purple"}, base); adj == nil || adj.Impact != -150 {
		t.Fatalf("purple: got %+v, want -150", adj)
	}
	if adj := colorAdjustment(Input{Color: "taupe"}, base); adj != nil {
		t.Fatalf("unlisted color must produce no row, got %+v", adj)
	}
}

package valuation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Condition is the normalized vehicle condition grade.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionVeryGood  Condition = "very-good"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
	ConditionUnknown   Condition = ""
)

// conditionAliases maps raw user/decoder strings to normalized conditions.
var conditionAliases = map[string]Condition{
	"excellent": ConditionExcellent,
	"like new":  ConditionExcellent,
	"very-good": ConditionVeryGood,
	"very good": ConditionVeryGood,
	"verygood":  ConditionVeryGood,
	"good":      ConditionGood,
	"average":   ConditionGood,
	"fair":      ConditionFair,
	"rough":     ConditionFair,
	"poor":      ConditionPoor,
}

// NormalizeCondition maps a raw condition string to a Condition. Unrecognized
// input yields ConditionUnknown, which the engine treats as neutral.
func NormalizeCondition(raw string) Condition {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ConditionUnknown
	}
	if c, ok := conditionAliases[key]; ok {
		return c
	}
	return ConditionUnknown
}

// TitleStatus is the enumerated title brand of a vehicle.
type TitleStatus string

const (
	TitleClean         TitleStatus = "clean"
	TitleRebuilt       TitleStatus = "rebuilt"
	TitleLemon         TitleStatus = "lemon"
	TitleTheftRecovery TitleStatus = "theft_recovery"
	TitleSalvage       TitleStatus = "salvage"
	TitleUnknown       TitleStatus = ""
)

// NormalizeTitleStatus maps a raw title brand string to a TitleStatus.
func NormalizeTitleStatus(raw string) TitleStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "clean":
		return TitleClean
	case "rebuilt", "reconstructed":
		return TitleRebuilt
	case "lemon", "buyback", "lemon_buyback":
		return TitleLemon
	case "theft_recovery", "theft-recovery", "theft recovered":
		return TitleTheftRecovery
	case "salvage", "flood":
		return TitleSalvage
	}
	return TitleUnknown
}

// Band returns the 0-100 severity band midpoint for an enumerated title
// status, so enumerated and banded inputs share one adjustment table.
func (t TitleStatus) Band() int {
	switch t {
	case TitleRebuilt:
		return 13
	case TitleLemon:
		return 38
	case TitleTheftRecovery:
		return 63
	case TitleSalvage:
		return 88
	}
	return 0
}

// FuelType is the normalized powertrain fuel type.
type FuelType string

const (
	FuelGasoline     FuelType = "gasoline"
	FuelDiesel       FuelType = "diesel"
	FuelHybrid       FuelType = "hybrid"
	FuelPluginHybrid FuelType = "plugin_hybrid"
	FuelElectric     FuelType = "electric"
	FuelUnknown      FuelType = ""
)

// NormalizeFuelType maps a raw fuel string to a FuelType.
func NormalizeFuelType(raw string) FuelType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gasoline", "gas", "petrol":
		return FuelGasoline
	case "diesel":
		return FuelDiesel
	case "hybrid":
		return FuelHybrid
	case "plugin_hybrid", "plug-in hybrid", "phev":
		return FuelPluginHybrid
	case "electric", "ev", "bev":
		return FuelElectric
	}
	return FuelUnknown
}

// BodyStyle is the normalized body style used by the seasonal demand table.
type BodyStyle string

const (
	BodySedan       BodyStyle = "sedan"
	BodySUV         BodyStyle = "suv"
	BodyTruck       BodyStyle = "truck"
	BodyConvertible BodyStyle = "convertible"
	BodySports      BodyStyle = "sports"
	BodyUnknown     BodyStyle = ""
)

// NormalizeBodyStyle maps a raw body style string to a BodyStyle.
func NormalizeBodyStyle(raw string) BodyStyle {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sedan", "hatchback", "wagon":
		return BodySedan
	case "suv", "crossover", "minivan":
		return BodySUV
	case "truck", "pickup":
		return BodyTruck
	case "convertible", "roadster":
		return BodyConvertible
	case "sports", "coupe":
		return BodySports
	}
	return BodyUnknown
}

// WarrantyType is the active warranty coverage on the vehicle.
type WarrantyType string

const (
	WarrantyNone     WarrantyType = "none"
	WarrantyFactory  WarrantyType = "factory"
	WarrantyCPO      WarrantyType = "cpo"
	WarrantyExtended WarrantyType = "extended"
)

// NormalizeWarranty maps a raw warranty string to a WarrantyType.
func NormalizeWarranty(raw string) WarrantyType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "factory", "manufacturer":
		return WarrantyFactory
	case "cpo", "certified", "certified_preowned":
		return WarrantyCPO
	case "extended", "aftermarket":
		return WarrantyExtended
	}
	return WarrantyNone
}

// Season is a calendar season used by the seasonal demand table.
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
)

// SeasonOf returns the season for a point in time (northern hemisphere,
// whole-month boundaries).
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

// RecallRisk classifies an open recall.
type RecallRisk string

const (
	RecallRiskHigh RecallRisk = "high"
	RecallRiskLow  RecallRisk = "low"
	RecallRiskNone RecallRisk = ""
)

// Input is one valuation request. Optional fields left at their zero value
// simply skip the corresponding adjustment.
type Input struct {
	VIN          string
	Make         string
	Model        string
	Year         int
	Mileage      int
	Condition    Condition
	ZIPCode      string
	Trim         string
	FuelType     FuelType
	Transmission string
	BodyStyle    BodyStyle
	Color        string

	AccidentCount int
	FrameDamage   bool
	MajorAccident bool

	// TitleBand is the 0-100 severity encoding; 0 means clean. When
	// TitleStatus is set it takes precedence via its band midpoint.
	TitleBand   int
	TitleStatus TitleStatus

	Features []string
	Warranty WarrantyType

	OpenRecall     bool
	RecallRisk     RecallRisk
	RecallResolved bool

	// AIConditionScore is an optional 0-100 photo-derived condition score;
	// 0 means absent. It only influences the confidence score.
	AIConditionScore float64

	// DrivingScore is an optional 1-100 telematics score; 0 means absent.
	DrivingScore int

	// BasePrice overrides the injected base-price source when positive.
	BasePrice float64

	// Season overrides the clock-derived season when set. Used by tests and
	// by callers replaying historical requests.
	Season Season
}

// hasCoreFields reports whether the identification and usage fields that
// anchor a valuation are all present.
func (in Input) hasCoreFields() bool {
	return in.Make != "" && in.Model != "" && in.Year > 0 && in.Mileage > 0 && in.Condition != ConditionUnknown
}

// effectiveTitleBand resolves the enumerated status and the numeric band into
// a single 0-100 value.
func (in Input) effectiveTitleBand() int {
	if in.TitleStatus != TitleUnknown {
		return in.TitleStatus.Band()
	}
	return in.TitleBand
}

// Adjustment is one applied pricing factor: a signed dollar impact on the
// base price plus the percentage and description it came from. Impact is
// already scaled by the base price and is never re-scaled downstream.
type Adjustment struct {
	Factor      string  `json:"factor"`
	Label       string  `json:"label"`
	Impact      float64 `json:"impact"`
	Percent     float64 `json:"percent"`
	Description string  `json:"description"`
}

// MarshalJSON emits the legacy field aliases (name, value, percentAdjustment)
// alongside the canonical fields. The aliases exist only on the wire; nothing
// in this module reads them back.
func (a Adjustment) MarshalJSON() ([]byte, error) {
	type wire struct {
		Factor      string  `json:"factor"`
		Label       string  `json:"label"`
		Impact      float64 `json:"impact"`
		Percent     float64 `json:"percent"`
		Description string  `json:"description"`
		Name        string  `json:"name"`
		Value       float64 `json:"value"`
		PercentAdj  float64 `json:"percentAdjustment"`
	}
	return json.Marshal(wire{
		Factor:      a.Factor,
		Label:       a.Label,
		Impact:      a.Impact,
		Percent:     a.Percent,
		Description: a.Description,
		Name:        a.Label,
		Value:       a.Impact,
		PercentAdj:  a.Percent,
	})
}

// Result is the outcome of one valuation.
type Result struct {
	EstimatedValue float64      `json:"estimatedValue"`
	BasePrice      float64      `json:"basePrice"`
	Adjustments    []Adjustment `json:"adjustments"`
	PriceLow       float64      `json:"priceLow"`
	PriceHigh      float64      `json:"priceHigh"`
	Confidence     int          `json:"confidenceScore"`
}

// ValidationError reports a structurally invalid required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

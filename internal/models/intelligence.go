package models

import "time"

// MarketVelocity is the qualitative speed-of-leasing tier for a unit.
type MarketVelocity string

const (
	VelocityHot    MarketVelocity = "hot"
	VelocityNormal MarketVelocity = "normal"
	VelocitySlow   MarketVelocity = "slow"
	VelocityStale  MarketVelocity = "stale"
)

// ConcessionCategory classifies what kind of incentive a listing advertises.
type ConcessionCategory string

const (
	ConcessionNone          ConcessionCategory = "none"
	ConcessionFreeRent      ConcessionCategory = "free_rent"
	ConcessionRentDiscount  ConcessionCategory = "rent_discount"
	ConcessionDepositWaiver ConcessionCategory = "deposit_waiver"
	ConcessionOther         ConcessionCategory = "other"
)

// ConcessionUrgency grades how motivated the landlord appears.
type ConcessionUrgency string

const (
	UrgencyNone       ConcessionUrgency = "none"
	UrgencyStandard   ConcessionUrgency = "standard"
	UrgencyAggressive ConcessionUrgency = "aggressive"
	UrgencyDesperate  ConcessionUrgency = "desperate"
)

// RentTrend is the direction of a unit's recent asking-price changes.
type RentTrend string

const (
	TrendIncreasing RentTrend = "increasing"
	TrendStable     RentTrend = "stable"
	TrendDecreasing RentTrend = "decreasing"
)

// MarketPosition places a unit's price relative to the candidate batch.
type MarketPosition string

const (
	PositionBelowMarket MarketPosition = "below_market"
	PositionAtMarket    MarketPosition = "at_market"
	PositionAboveMarket MarketPosition = "above_market"
)

// NegotiationTier maps the 1-10 negotiation score to a named band.
type NegotiationTier string

const (
	TierLow       NegotiationTier = "low"
	TierMedium    NegotiationTier = "medium"
	TierHigh      NegotiationTier = "high"
	TierExcellent NegotiationTier = "excellent"
)

// ConcessionAnalysis is the parsed view of a unit's concession field,
// derived fresh each scoring pass.
type ConcessionAnalysis struct {
	Value    float64            `json:"value"`
	Category ConcessionCategory `json:"category"`
	Urgency  ConcessionUrgency  `json:"urgency"`
}

// MarketStats are aggregate statistics over one candidate batch.
type MarketStats struct {
	AvgRent         float64 `json:"avg_rent"`
	MedianRent      float64 `json:"median_rent"`
	AvgDaysOnMarket float64 `json:"avg_days_on_market"`
	AvgRentPerSqft  float64 `json:"avg_rent_per_sqft"`
}

// Percentiles holds the 10/25/50/75/90 breakpoints of one distribution.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// PropertyGroupStats aggregates the batch's units per property. Grouping is
// by property name string, matching the upstream data feeds; duplicate names
// across cities are conflated. Known limitation, kept until the feeds carry
// a stable property identifier.
type PropertyGroupStats struct {
	AvailableUnits  int     `json:"available_units"`
	AvgDaysOnMarket float64 `json:"avg_days_on_market"`
	AvgRent         float64 `json:"avg_rent"`
}

// MarketContext is the shared, read-only market snapshot built once per
// scoring invocation over the current candidate set (not the whole market).
type MarketContext struct {
	Stats                  MarketStats                   `json:"stats"`
	RentPercentiles        *Percentiles                  `json:"rent_percentiles"`
	DaysOnMarketPercentiles *Percentiles                 `json:"days_on_market_percentiles"`
	RentPerSqftPercentiles *Percentiles                  `json:"rent_per_sqft_percentiles"`
	PropertyStats          map[string]PropertyGroupStats `json:"property_stats"`
}

// MarketIntelligence is the enriched per-unit record the scoring pipeline
// produces. It is never mutated after creation; the next pass replaces it.
type MarketIntelligence struct {
	UnitID       string `json:"unit_id"`
	PropertyName string `json:"property_name"`
	UnitNumber   string `json:"unit_number"`
	Address      string `json:"address"`
	ZipCode      string `json:"zip_code"`

	CurrentRent   float64 `json:"current_rent"`
	EffectiveRent float64 `json:"effective_rent"`
	RentPerSqft   float64 `json:"rent_per_sqft"`

	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	SquareFeet int     `json:"square_feet"`

	DaysOnMarket   int            `json:"days_on_market"`
	FirstSeen      string         `json:"first_seen"`
	MarketVelocity MarketVelocity `json:"market_velocity"`

	Concession ConcessionAnalysis `json:"concession"`

	RentTrend         RentTrend `json:"rent_trend"`
	RentChangePercent float64   `json:"rent_change_percent"`

	MarketPosition MarketPosition `json:"market_position"`
	PercentileRank int            `json:"percentile_rank"`

	AmenityScore    int `json:"amenity_score"`
	LocationScore   int `json:"location_score"`
	ManagementScore int `json:"management_score"`

	NegotiationPotential int     `json:"negotiation_potential"`
	UrgencyScore         int     `json:"urgency_score"`
	LeaseProbability     float64 `json:"lease_probability"`

	DataFreshness   string  `json:"data_freshness"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ExpectedOutcome is the negotiation outcome estimate for one score band.
type ExpectedOutcome struct {
	DiscountPercent    float64 `json:"expected_discount_percent"`
	DiscountAmount     float64 `json:"expected_discount_amount"`
	SuccessProbability float64 `json:"success_probability"`
	ConcessionValue    float64 `json:"expected_concession_value"`
	DurationDays       int     `json:"negotiation_duration_days"`
}

// NegotiationStrategy is a pure function of one MarketIntelligence plus the
// shared MarketContext.
type NegotiationStrategy struct {
	Score          int             `json:"score"`
	Potential      NegotiationTier `json:"potential"`
	Tactics        []string        `json:"tactics"`
	OptimalTiming  string          `json:"optimal_timing"`
	LeveragePoints []string        `json:"leverage_points"`
	Risks          []string        `json:"risks"`
	ExpectedOutcome ExpectedOutcome `json:"expected_outcome"`
}

// Recommendation is one ranked output row.
type Recommendation struct {
	Intelligence MarketIntelligence `json:"intelligence"`

	ValueScore      float64 `json:"value_score"`
	TimingScore     float64 `json:"timing_score"`
	QualityScore    float64 `json:"quality_score"`
	PreferenceScore float64 `json:"preference_score"`
	TotalScore      float64 `json:"total_score"`

	Insights []string `json:"insights"`
	Reasons  []string `json:"recommendation_reasons"`
}

// SkippedUnit reports a unit dropped from a batch because it could not be
// converted to MarketIntelligence. It never aborts the batch.
type SkippedUnit struct {
	UnitID string `json:"unit_id"`
	Reason string `json:"reason"`
}

// PriceForecast is the heuristic forward price estimate for a unit.
type PriceForecast struct {
	CurrentPrice        float64 `json:"current_price"`
	PredictedPrice30d   float64 `json:"predicted_price_30d"`
	PredictedPrice60d   float64 `json:"predicted_price_60d"`
	PredictedPrice90d   float64 `json:"predicted_price_90d"`
	PriceDropProbability float64 `json:"price_drop_probability"`
	ExpectedDropAmount  float64 `json:"expected_drop_amount"`
	Confidence          float64 `json:"confidence"`
}

// LeaseForecast estimates how quickly a unit will lease.
type LeaseForecast struct {
	PredictedDays int     `json:"predicted_days_to_lease"`
	Probability7  float64 `json:"probability_7_days"`
	Probability14 float64 `json:"probability_14_days"`
	Probability30 float64 `json:"probability_30_days"`
	MarketAverage float64 `json:"market_average"`
	RelativeSpeed string  `json:"relative_speed"`
}

// ConcessionForecast estimates the odds of concessions appearing.
type ConcessionForecast struct {
	Probability            float64   `json:"concession_probability"`
	ExpectedValue          float64   `json:"expected_concession_value"`
	OptimalNegotiationDate time.Time `json:"optimal_negotiation_date"`
	HasConcessions         bool      `json:"current_has_concessions"`
	Recommendation         string    `json:"recommendation"`
}

// OfferProbabilities holds the success estimates per offer tier.
type OfferProbabilities struct {
	Aggressive   float64 `json:"aggressive"`
	Moderate     float64 `json:"moderate"`
	Conservative float64 `json:"conservative"`
}

// OfferForecast recommends opening offers for negotiation.
type OfferForecast struct {
	CurrentAsking     float64            `json:"current_asking"`
	AggressiveOffer   float64            `json:"aggressive_offer"`
	ModerateOffer     float64            `json:"moderate_offer"`
	ConservativeOffer float64            `json:"conservative_offer"`
	MaxLikelyDiscount float64            `json:"max_likely_discount"`
	SuccessProbabilities OfferProbabilities `json:"success_probabilities"`
	Recommendation    string             `json:"recommendation"`
}

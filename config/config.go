package config

import (
	"fmt"
	"math"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		// Port the HTTP API listens on
		Port int `env:"SERVER_PORT" envDefault:"5250"`

		// Path to the sqlite database file
		DBPath string `env:"DB_PATH" envDefault:"database/apartmentiq.db"`
	}

	Scoring ScoringConfig

	// BatchProcessing configuration for the listing ingest pipeline
	BatchProcessing struct {
		// Maximum number of listings to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Maximum time to wait before processing a non-full batch (in seconds)
		MaxBatchWaitTime int `env:"BATCH_WAIT_TIME" envDefault:"30"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	Scheduler struct {
		// Hours between periodic rescoring runs
		RescoreIntervalHours int `env:"RESCORE_INTERVAL_HOURS" envDefault:"24"`

		// Whether to run a scoring pass immediately on startup
		RunOnStartup bool `env:"RESCORE_ON_STARTUP" envDefault:"true"`
	}

	Alerts struct {
		Enabled  bool   `env:"TELEGRAM_ENABLED" envDefault:"false"`
		BotToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:""`
		ChatID   string `env:"TELEGRAM_CHAT_ID" envDefault:""`

		// Minimum negotiation score for a unit to trigger a deal alert
		MinNegotiationScore int `env:"ALERT_MIN_NEGOTIATION_SCORE" envDefault:"8"`
	}
}

// ScoringConfig holds every tunable used by the scoring pipeline. All values
// ship with the defaults the heuristics were calibrated against; they are
// exposed here rather than hardcoded so scoring stays reproducible and
// testable in isolation.
type ScoringConfig struct {
	// Fallback monthly rent used to value "N months free" concessions when
	// the listing itself gives no figure.
	AssumedMonthlyRent float64 `env:"SCORING_ASSUMED_MONTHLY_RENT" envDefault:"1500"`

	// Fallback value assigned to a waived deposit.
	AssumedDepositValue float64 `env:"SCORING_ASSUMED_DEPOSIT" envDefault:"1000"`

	// Square footage assumed when a unit does not report one.
	DefaultSquareFeet int `env:"SCORING_DEFAULT_SQFT" envDefault:"800"`

	// Market velocity cut points, in days on market.
	VelocityHotDays    int `env:"VELOCITY_HOT_DAYS" envDefault:"3"`
	VelocityNormalDays int `env:"VELOCITY_NORMAL_DAYS" envDefault:"10"`
	VelocitySlowDays   int `env:"VELOCITY_SLOW_DAYS" envDefault:"20"`

	// Concession urgency cut points, in days on market.
	UrgencyStandardDays   int `env:"URGENCY_STANDARD_DAYS" envDefault:"7"`
	UrgencyAggressiveDays int `env:"URGENCY_AGGRESSIVE_DAYS" envDefault:"14"`
	UrgencyDesperateDays  int `env:"URGENCY_DESPERATE_DAYS" envDefault:"30"`

	// Negotiation sub-score weights. Must sum to 1.
	WeightDaysOnMarket      float64 `env:"NEG_WEIGHT_DAYS_ON_MARKET" envDefault:"0.25"`
	WeightPriceHistory      float64 `env:"NEG_WEIGHT_PRICE_HISTORY" envDefault:"0.20"`
	WeightConcessions       float64 `env:"NEG_WEIGHT_CONCESSIONS" envDefault:"0.20"`
	WeightMarketPosition    float64 `env:"NEG_WEIGHT_MARKET_POSITION" envDefault:"0.15"`
	WeightSeasonality       float64 `env:"NEG_WEIGHT_SEASONALITY" envDefault:"0.10"`
	WeightPropertyOccupancy float64 `env:"NEG_WEIGHT_PROPERTY_OCCUPANCY" envDefault:"0.10"`

	// Composite recommendation weights. Must sum to 1.
	WeightValue      float64 `env:"REC_WEIGHT_VALUE" envDefault:"0.30"`
	WeightTiming     float64 `env:"REC_WEIGHT_TIMING" envDefault:"0.25"`
	WeightQuality    float64 `env:"REC_WEIGHT_QUALITY" envDefault:"0.25"`
	WeightPreference float64 `env:"REC_WEIGHT_PREFERENCE" envDefault:"0.20"`

	// Amenity keyword lists used by the quality scorer and the feature
	// extractor.
	PremiumAmenities  []string `env:"PREMIUM_AMENITIES" envSeparator:"," envDefault:"pool,gym,concierge,rooftop,spa,sauna"`
	StandardAmenities []string `env:"STANDARD_AMENITIES" envSeparator:"," envDefault:"parking,laundry,storage,elevator"`
	AmenityFeatures   []string `env:"AMENITY_FEATURES" envSeparator:"," envDefault:"pool,gym,parking,laundry,dishwasher,balcony,patio,storage,ac,heating,hardwood,carpet,pet_friendly,elevator,doorman,concierge,rooftop,garden"`

	// Number of units scored concurrently during a ranking pass.
	ScoringWorkers int `env:"SCORING_WORKERS" envDefault:"4"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects malformed weights and thresholds. A config that fails here
// is fatal at startup; scoring never begins with it.
func (s *ScoringConfig) Validate() error {
	if s.AssumedMonthlyRent <= 0 {
		return fmt.Errorf("assumed monthly rent must be positive, got %.2f", s.AssumedMonthlyRent)
	}
	if s.AssumedDepositValue < 0 {
		return fmt.Errorf("assumed deposit value must not be negative, got %.2f", s.AssumedDepositValue)
	}
	if s.DefaultSquareFeet <= 0 {
		return fmt.Errorf("default square feet must be positive, got %d", s.DefaultSquareFeet)
	}

	if !(s.VelocityHotDays < s.VelocityNormalDays && s.VelocityNormalDays < s.VelocitySlowDays) {
		return fmt.Errorf("velocity cut points must be strictly increasing: %d, %d, %d",
			s.VelocityHotDays, s.VelocityNormalDays, s.VelocitySlowDays)
	}
	if !(s.UrgencyStandardDays < s.UrgencyAggressiveDays && s.UrgencyAggressiveDays < s.UrgencyDesperateDays) {
		return fmt.Errorf("urgency cut points must be strictly increasing: %d, %d, %d",
			s.UrgencyStandardDays, s.UrgencyAggressiveDays, s.UrgencyDesperateDays)
	}

	negWeights := []float64{
		s.WeightDaysOnMarket, s.WeightPriceHistory, s.WeightConcessions,
		s.WeightMarketPosition, s.WeightSeasonality, s.WeightPropertyOccupancy,
	}
	if err := checkWeights("negotiation", negWeights); err != nil {
		return err
	}

	recWeights := []float64{s.WeightValue, s.WeightTiming, s.WeightQuality, s.WeightPreference}
	if err := checkWeights("recommendation", recWeights); err != nil {
		return err
	}

	if s.ScoringWorkers < 1 {
		return fmt.Errorf("scoring workers must be at least 1, got %d", s.ScoringWorkers)
	}
	return nil
}

func checkWeights(name string, weights []float64) error {
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s weights must not be negative, got %.3f", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("%s weights must sum to 1, got %.3f", name, sum)
	}
	return nil
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1500.0, cfg.Scoring.AssumedMonthlyRent)
	assert.Equal(t, 1000.0, cfg.Scoring.AssumedDepositValue)
	assert.Equal(t, 800, cfg.Scoring.DefaultSquareFeet)
	assert.Equal(t, 3, cfg.Scoring.VelocityHotDays)
	assert.Equal(t, 10, cfg.Scoring.VelocityNormalDays)
	assert.Equal(t, 20, cfg.Scoring.VelocitySlowDays)
	assert.Equal(t, 0.25, cfg.Scoring.WeightDaysOnMarket)
	assert.Equal(t, 0.30, cfg.Scoring.WeightValue)
	assert.Contains(t, cfg.Scoring.PremiumAmenities, "pool")
	assert.Contains(t, cfg.Scoring.StandardAmenities, "elevator")
	assert.Len(t, cfg.Scoring.AmenityFeatures, 18)
}

func TestScoringConfig_Validate(t *testing.T) {
	valid := func() ScoringConfig {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg.Scoring
	}

	t.Run("default config is valid", func(t *testing.T) {
		s := valid()
		assert.NoError(t, s.Validate())
	})

	t.Run("negotiation weights must sum to one", func(t *testing.T) {
		s := valid()
		s.WeightDaysOnMarket = 0.5
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negotiation weights")
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		s := valid()
		s.WeightValue = -0.1
		s.WeightTiming = 0.65
		assert.Error(t, s.Validate())
	})

	t.Run("velocity cut points must increase", func(t *testing.T) {
		s := valid()
		s.VelocityNormalDays = 2
		assert.Error(t, s.Validate())
	})

	t.Run("urgency cut points must increase", func(t *testing.T) {
		s := valid()
		s.UrgencyDesperateDays = 10
		assert.Error(t, s.Validate())
	})

	t.Run("assumed rent must be positive", func(t *testing.T) {
		s := valid()
		s.AssumedMonthlyRent = 0
		assert.Error(t, s.Validate())
	})
}

package intel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartmentiq/server/internal/models"
)

func TestFeatureExtractor_PropertyFeatures(t *testing.T) {
	cfg := testScoringConfig(t)
	extractor := NewFeatureExtractor(cfg)

	t.Run("defaults for missing attributes", func(t *testing.T) {
		features := extractor.PropertyFeatures(&models.Property{})
		require.Len(t, features, 10+len(cfg.AmenityFeatures))
		assert.Equal(t, 2000.0, features[0]) // year built
		assert.Equal(t, 50.0, features[3])   // walk score
		assert.Equal(t, 3.0, features[6])    // rating
	})

	t.Run("amenity encoding", func(t *testing.T) {
		prop := &models.Property{Amenities: []string{"Rooftop Pool", "Fitness Gym"}}
		features := extractor.PropertyFeatures(prop)

		encoding := features[8 : 8+len(cfg.AmenityFeatures)]
		for i, amenity := range cfg.AmenityFeatures {
			switch amenity {
			case "pool", "gym", "rooftop":
				assert.Equal(t, 1.0, encoding[i], amenity)
			default:
				assert.Equal(t, 0.0, encoding[i], amenity)
			}
		}
	})

	t.Run("coordinates pass through", func(t *testing.T) {
		lat, lng := 30.27, -97.74
		prop := &models.Property{Latitude: &lat, Longitude: &lng}
		features := extractor.PropertyFeatures(prop)
		n := len(features)
		assert.Equal(t, lat, features[n-2])
		assert.Equal(t, lng, features[n-1])
	})
}

func TestFeatureExtractor_UnitFeatures(t *testing.T) {
	cfg := testScoringConfig(t)
	extractor := NewFeatureExtractor(cfg)
	extractor.now = fixedClock(time.March)

	t.Run("missing square feet falls back to default", func(t *testing.T) {
		unit := &models.Unit{CurrentPrice: 1600, IsAvailable: true}
		features := extractor.UnitFeatures(unit)
		require.Len(t, features, 10)
		assert.Equal(t, float64(cfg.DefaultSquareFeet), features[2])
		assert.Equal(t, 1600.0/float64(cfg.DefaultSquareFeet), features[5])
		assert.Equal(t, 1.0, features[6]) // availability flag
	})

	t.Run("effective rent discount is capped", func(t *testing.T) {
		effective := 500.0
		unit := &models.Unit{CurrentPrice: 2000, EffectiveRent: &effective}
		features := extractor.UnitFeatures(unit)
		assert.Equal(t, 0.5, features[9])
	})

	t.Run("zero price uses assumed rent", func(t *testing.T) {
		features := extractor.UnitFeatures(&models.Unit{})
		assert.Equal(t, cfg.AssumedMonthlyRent, features[4])
	})
}

func TestFeatureExtractor_MarketFeatures(t *testing.T) {
	extractor := NewFeatureExtractor(testScoringConfig(t))

	mi := &models.MarketIntelligence{
		DaysOnMarket:      45,
		RentChangePercent: -6.5,
		MarketVelocity:    models.VelocityStale,
		UrgencyScore:      8,
		LeaseProbability:  0.4,
	}
	features := extractor.MarketFeatures(mi)
	require.Len(t, features, 11)

	assert.Equal(t, 45.0, features[0])
	assert.Equal(t, 0.0, features[1]) // not new
	assert.Equal(t, 0.0, features[2]) // not over 60 days
	assert.Equal(t, -6.5, features[3])
	assert.Equal(t, 1.0, features[4]) // steep drop flag
	assert.Equal(t, []float64{0, 0, 0, 1}, features[5:9])
	assert.Equal(t, 0.8, features[9])
	assert.Equal(t, 0.4, features[10])
}

func TestFeatureExtractor_UserFeatures(t *testing.T) {
	cfg := testScoringConfig(t)
	extractor := NewFeatureExtractor(cfg)
	extractor.now = fixedClock(time.March)

	t.Run("empty preferences use neutral defaults", func(t *testing.T) {
		features := extractor.UserFeatures(&models.UserPreference{})
		require.Len(t, features, 13+len(cfg.AmenityFeatures))
		assert.Equal(t, 1000.0, features[0])
		assert.Equal(t, 3000.0, features[1])
		assert.Equal(t, 2000.0, features[2])
	})

	t.Run("required amenities are encoded", func(t *testing.T) {
		prefs := &models.UserPreference{RequiredAmenities: []string{"Gym", "parking"}}
		features := extractor.UserFeatures(prefs)

		encoding := features[10 : 10+len(cfg.AmenityFeatures)]
		hits := 0
		for _, v := range encoding {
			hits += int(v)
		}
		assert.Equal(t, 2, hits)
	})
}

func TestNormalizeStandard(t *testing.T) {
	matrix := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
	}
	out, params := NormalizeStandard(matrix)
	require.Len(t, out, 3)

	// Each varying column is zero-centered
	for j := 0; j < 2; j++ {
		var sum float64
		for i := range out {
			sum += out[i][j]
		}
		assert.InDelta(t, 0.0, sum, 1e-9)
	}

	// Constant column stays untouched instead of dividing by zero
	assert.Equal(t, 0.0, out[0][2])
	assert.Equal(t, 1.0, params.Std[2])

	empty, _ := NormalizeStandard(nil)
	assert.Nil(t, empty)
}

func TestNormalizeMinMax(t *testing.T) {
	matrix := [][]float64{
		{0, 100},
		{5, 200},
		{10, 300},
	}
	out, params := NormalizeMinMax(matrix)

	assert.Equal(t, 0.0, out[0][0])
	assert.Equal(t, 0.5, out[1][0])
	assert.Equal(t, 1.0, out[2][0])
	assert.Equal(t, 0.0, params.Min[0])
	assert.Equal(t, 10.0, params.Max[0])

	constant := [][]float64{{7}, {7}}
	out, _ = NormalizeMinMax(constant)
	assert.Equal(t, 0.0, out[0][0])
	assert.Equal(t, 0.0, out[1][0])
}

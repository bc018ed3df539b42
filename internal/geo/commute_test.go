package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartmentiq/server/internal/models"
)

func coords(lat, lng float64) (*float64, *float64) {
	return &lat, &lng
}

func TestCommuteDistanceKm(t *testing.T) {
	propLat, propLng := coords(30.2672, -97.7431) // downtown Austin
	prefLat, prefLng := coords(30.4014, -97.7208) // the Domain

	prop := &models.Property{Latitude: propLat, Longitude: propLng}
	prefs := &models.UserPreference{CommuteLatitude: prefLat, CommuteLongitude: prefLng}

	dist, ok := CommuteDistanceKm(prop, prefs)
	require.True(t, ok)
	assert.InDelta(t, 15.0, dist, 1.5)

	t.Run("missing coordinates", func(t *testing.T) {
		_, ok := CommuteDistanceKm(&models.Property{}, prefs)
		assert.False(t, ok)

		_, ok = CommuteDistanceKm(prop, &models.UserPreference{})
		assert.False(t, ok)

		_, ok = CommuteDistanceKm(nil, nil)
		assert.False(t, ok)
	})
}

func TestWithinCommute(t *testing.T) {
	propLat, propLng := coords(30.2672, -97.7431)
	prefLat, prefLng := coords(30.4014, -97.7208)
	prop := &models.Property{Latitude: propLat, Longitude: propLng}

	t.Run("no budget never excludes", func(t *testing.T) {
		assert.True(t, WithinCommute(prop, &models.UserPreference{}))
		assert.True(t, WithinCommute(prop, nil))
	})

	t.Run("missing coordinates never exclude", func(t *testing.T) {
		budget := 10
		prefs := &models.UserPreference{MaxCommuteMinutes: &budget}
		assert.True(t, WithinCommute(&models.Property{}, prefs))
	})

	t.Run("radius from commute budget", func(t *testing.T) {
		// ~15 km apart; 30 km/h gives a 15 km radius at 30 minutes
		generous := 60
		prefs := &models.UserPreference{
			MaxCommuteMinutes: &generous,
			CommuteLatitude:   prefLat,
			CommuteLongitude:  prefLng,
		}
		assert.True(t, WithinCommute(prop, prefs))

		tight := 10
		prefs.MaxCommuteMinutes = &tight
		assert.False(t, WithinCommute(prop, prefs))
	})
}

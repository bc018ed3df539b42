package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"apartmentiq/server/internal/models"
)

// Average door-to-door commute speed assumed when converting a commute-time
// budget into a search radius, in km/h. Mixed transit/driving estimate.
const assumedCommuteSpeedKmh = 30.0

// CommuteDistanceKm returns the great-circle distance in kilometers between
// a property and the renter's commute anchor, or false when either side has
// no coordinates.
func CommuteDistanceKm(prop *models.Property, prefs *models.UserPreference) (float64, bool) {
	if prop == nil || prefs == nil ||
		prop.Latitude == nil || prop.Longitude == nil ||
		prefs.CommuteLatitude == nil || prefs.CommuteLongitude == nil {
		return 0, false
	}
	from := orb.Point{*prop.Longitude, *prop.Latitude}
	to := orb.Point{*prefs.CommuteLongitude, *prefs.CommuteLatitude}
	return geo.Distance(from, to) / 1000, true
}

// WithinCommute reports whether the property falls inside the radius implied
// by the renter's commute-time budget. Missing coordinates or an absent
// budget never exclude a property.
func WithinCommute(prop *models.Property, prefs *models.UserPreference) bool {
	if prefs == nil || prefs.MaxCommuteMinutes == nil {
		return true
	}
	distKm, ok := CommuteDistanceKm(prop, prefs)
	if !ok {
		return true
	}
	maxKm := float64(*prefs.MaxCommuteMinutes) / 60.0 * assumedCommuteSpeedKmh
	return distKm <= maxKm
}

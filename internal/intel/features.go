package intel

import (
	"math"
	"strings"
	"time"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/models"
)

// FeatureExtractor converts listing records into fixed-length numeric
// vectors. The vectors feed the normalization utilities and leave room for a
// trained model behind the Forecaster interface; the default scoring path is
// heuristic and does not consume them.
type FeatureExtractor struct {
	cfg *config.ScoringConfig
	now func() time.Time
}

func NewFeatureExtractor(cfg *config.ScoringConfig) *FeatureExtractor {
	return &FeatureExtractor{cfg: cfg, now: time.Now}
}

// PropertyFeatures extracts building attributes, quality signals and the
// binary amenity encoding.
func (f *FeatureExtractor) PropertyFeatures(prop *models.Property) []float64 {
	features := make([]float64, 0, 10+len(f.cfg.AmenityFeatures))

	features = append(features, floatOrDefault(intPtrToFloat(prop.YearBuilt), 2000))
	features = append(features, floatOrDefault(intPtrToFloat(prop.TotalUnits), 50))
	features = append(features, floatOrDefault(intPtrToFloat(prop.Floors), 3))

	features = append(features, floatOrDefault(intPtrToFloat(prop.WalkScore), 50))
	features = append(features, floatOrDefault(intPtrToFloat(prop.TransitScore), 50))
	features = append(features, floatOrDefault(intPtrToFloat(prop.BikeScore), 50))

	features = append(features, floatOrDefault(prop.Rating, 3.0))
	features = append(features, float64(prop.ReviewCount))

	joined := strings.ToLower(strings.Join(prop.Amenities, " "))
	for _, amenity := range f.cfg.AmenityFeatures {
		features = append(features, boolToFloat(strings.Contains(joined, amenity)))
	}

	if prop.Latitude != nil && prop.Longitude != nil {
		features = append(features, *prop.Latitude, *prop.Longitude)
	} else {
		features = append(features, 0.0, 0.0)
	}

	return features
}

// UnitFeatures extracts per-unit pricing and availability signals.
func (f *FeatureExtractor) UnitFeatures(unit *models.Unit) []float64 {
	features := make([]float64, 0, 12)

	features = append(features, float64(unit.Bedrooms))
	features = append(features, unit.Bathrooms)

	sqft := f.cfg.DefaultSquareFeet
	if unit.SquareFeet != nil && *unit.SquareFeet > 0 {
		sqft = *unit.SquareFeet
	}
	features = append(features, float64(sqft))
	features = append(features, floatOrDefault(intPtrToFloat(unit.FloorNumber), 1))

	price := unit.CurrentPrice
	if price == 0 {
		price = f.cfg.AssumedMonthlyRent
	}
	features = append(features, price)
	features = append(features, price/float64(sqft))

	features = append(features, boolToFloat(unit.IsAvailable))

	if unit.AvailableDate != nil {
		daysUntil := unit.AvailableDate.Sub(f.now()).Hours() / 24
		features = append(features, math.Max(0, math.Min(daysUntil, 90)))
	} else {
		features = append(features, 0.0)
	}

	features = append(features, boolToFloat(unit.HasConcessions()))

	if unit.EffectiveRent != nil && price > 0 {
		discount := (price - *unit.EffectiveRent) / price
		features = append(features, math.Min(discount, 0.5))
	} else {
		features = append(features, 0.0)
	}

	return features
}

// MarketFeatures extracts market-timing signals for a unit from its
// intelligence record.
func (f *FeatureExtractor) MarketFeatures(intel *models.MarketIntelligence) []float64 {
	features := make([]float64, 0, 12)

	dom := float64(intel.DaysOnMarket)
	features = append(features, dom)
	features = append(features, boolToFloat(intel.DaysOnMarket < 7))
	features = append(features, boolToFloat(intel.DaysOnMarket > 60))

	features = append(features, intel.RentChangePercent)
	features = append(features, boolToFloat(intel.RentChangePercent < -5))

	// One-hot velocity encoding
	for _, v := range []models.MarketVelocity{models.VelocityHot, models.VelocityNormal, models.VelocitySlow, models.VelocityStale} {
		features = append(features, boolToFloat(intel.MarketVelocity == v))
	}

	features = append(features, float64(intel.UrgencyScore)/10.0)
	features = append(features, intel.LeaseProbability)

	return features
}

// UserFeatures extracts preference signals, absent fields falling back to
// neutral defaults.
func (f *FeatureExtractor) UserFeatures(prefs *models.UserPreference) []float64 {
	features := make([]float64, 0, 12+len(f.cfg.AmenityFeatures))

	minPrice := floatOrDefault(prefs.MinPrice, 1000)
	maxPrice := floatOrDefault(prefs.MaxPrice, 3000)
	features = append(features, minPrice, maxPrice, maxPrice-minPrice)

	features = append(features, floatOrDefault(intPtrToFloat(prefs.MinBedrooms), 1))
	features = append(features, floatOrDefault(intPtrToFloat(prefs.MaxBedrooms), 3))
	features = append(features, floatOrDefault(intPtrToFloat(prefs.MinSquareFeet), 500))
	features = append(features, floatOrDefault(intPtrToFloat(prefs.MaxSquareFeet), 2000))

	features = append(features, floatOrDefault(intPtrToFloat(prefs.MaxCommuteMinutes), 30))
	features = append(features, float64(len(prefs.PreferredCities)))
	features = append(features, float64(len(prefs.RequiredAmenities)))

	required := make(map[string]bool, len(prefs.RequiredAmenities))
	for _, a := range prefs.RequiredAmenities {
		required[strings.ToLower(a)] = true
	}
	for _, amenity := range f.cfg.AmenityFeatures {
		features = append(features, boolToFloat(required[amenity]))
	}

	if prefs.MoveInDate != nil {
		daysUntil := prefs.MoveInDate.Sub(f.now()).Hours() / 24
		urgency := math.Max(0, math.Min(90-daysUntil, 90)) / 90.0
		features = append(features, urgency)
	} else {
		features = append(features, 0.5)
	}

	features = append(features, boolToFloat(prefs.PetFriendly != nil && *prefs.PetFriendly))
	features = append(features, boolToFloat(prefs.Furnished != nil && *prefs.Furnished))

	return features
}

// NormalizationParams holds the per-column statistics needed to apply the
// same transform to future vectors.
type NormalizationParams struct {
	Mean []float64
	Std  []float64
	Min  []float64
	Max  []float64
}

// NormalizeStandard zero-centers each column and scales it to unit variance.
// Constant columns are left unscaled instead of dividing by zero.
func NormalizeStandard(matrix [][]float64) ([][]float64, NormalizationParams) {
	if len(matrix) == 0 {
		return nil, NormalizationParams{}
	}
	cols := len(matrix[0])
	mean := make([]float64, cols)
	std := make([]float64, cols)

	for j := 0; j < cols; j++ {
		var sum float64
		for i := range matrix {
			sum += matrix[i][j]
		}
		mean[j] = sum / float64(len(matrix))

		var variance float64
		for i := range matrix {
			d := matrix[i][j] - mean[j]
			variance += d * d
		}
		std[j] = math.Sqrt(variance / float64(len(matrix)))
		if std[j] == 0 {
			std[j] = 1
		}
	}

	out := make([][]float64, len(matrix))
	for i := range matrix {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = (matrix[i][j] - mean[j]) / std[j]
		}
	}
	return out, NormalizationParams{Mean: mean, Std: std}
}

// NormalizeMinMax rescales each column to [0,1]. Constant columns map to 0.
func NormalizeMinMax(matrix [][]float64) ([][]float64, NormalizationParams) {
	if len(matrix) == 0 {
		return nil, NormalizationParams{}
	}
	cols := len(matrix[0])
	minVal := make([]float64, cols)
	maxVal := make([]float64, cols)

	for j := 0; j < cols; j++ {
		minVal[j] = matrix[0][j]
		maxVal[j] = matrix[0][j]
		for i := range matrix {
			minVal[j] = math.Min(minVal[j], matrix[i][j])
			maxVal[j] = math.Max(maxVal[j], matrix[i][j])
		}
	}

	out := make([][]float64, len(matrix))
	for i := range matrix {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			span := maxVal[j] - minVal[j]
			if span == 0 {
				span = 1
			}
			out[i][j] = (matrix[i][j] - minVal[j]) / span
		}
	}
	return out, NormalizationParams{Min: minVal, Max: maxVal}
}

func intPtrToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func floatOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

package intel

import (
	"strings"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/models"
)

// MarketClassifier derives market velocity, rent trend, market position and
// the quality sub-scores for one unit against the shared market context.
type MarketClassifier struct {
	cfg *config.ScoringConfig
}

func NewMarketClassifier(cfg *config.ScoringConfig) *MarketClassifier {
	return &MarketClassifier{cfg: cfg}
}

// Velocity buckets days on market into the four leasing-speed tiers.
func (c *MarketClassifier) Velocity(daysOnMarket int) models.MarketVelocity {
	switch {
	case daysOnMarket <= c.cfg.VelocityHotDays:
		return models.VelocityHot
	case daysOnMarket <= c.cfg.VelocityNormalDays:
		return models.VelocityNormal
	case daysOnMarket <= c.cfg.VelocitySlowDays:
		return models.VelocitySlow
	default:
		return models.VelocityStale
	}
}

// RentTrend averages the pairwise percent change across the five most recent
// history entries (most-recent-first). Fewer than two entries is stable.
func (c *MarketClassifier) RentTrend(history []models.PriceHistoryEntry) (models.RentTrend, float64) {
	if len(history) > 5 {
		history = history[:5]
	}
	if len(history) < 2 {
		return models.TrendStable, 0.0
	}

	var changes []float64
	for i := 0; i < len(history)-1; i++ {
		oldPrice := history[i+1].Price
		newPrice := history[i].Price
		if oldPrice > 0 {
			changes = append(changes, (newPrice-oldPrice)/oldPrice*100)
		}
	}
	if len(changes) == 0 {
		return models.TrendStable, 0.0
	}

	var sum float64
	for _, ch := range changes {
		sum += ch
	}
	avg := sum / float64(len(changes))

	switch {
	case avg > 2:
		return models.TrendIncreasing, avg
	case avg < -2:
		return models.TrendDecreasing, avg
	default:
		return models.TrendStable, avg
	}
}

// MarketPosition compares the unit price against the batch's 25th and 75th
// rent percentiles. Missing percentile data defaults to at-market rather
// than failing.
func (c *MarketClassifier) MarketPosition(price float64, ctx *models.MarketContext) (models.MarketPosition, int) {
	if ctx == nil || ctx.RentPercentiles == nil {
		return models.PositionAtMarket, 50
	}
	switch {
	case price <= ctx.RentPercentiles.P25:
		return models.PositionBelowMarket, 25
	case price <= ctx.RentPercentiles.P75:
		return models.PositionAtMarket, 50
	default:
		return models.PositionAboveMarket, 90
	}
}

// AmenityScore grades a unit's amenity set against the premium and standard
// keyword lists, with a capped bonus for unit-level extras.
func (c *MarketClassifier) AmenityScore(unit *models.Unit, prop *models.Property) int {
	score := 50

	if prop != nil && len(prop.Amenities) > 0 {
		joined := strings.ToLower(strings.Join(prop.Amenities, " "))
		for _, amenity := range c.cfg.PremiumAmenities {
			if strings.Contains(joined, amenity) {
				score += 5
			}
		}
		for _, amenity := range c.cfg.StandardAmenities {
			if strings.Contains(joined, amenity) {
				score += 3
			}
		}
	}

	unitBonus := len(unit.UnitAmenities) * 2
	if unitBonus > 20 {
		unitBonus = 20
	}
	score += unitBonus

	return clampInt(score, 0, 100)
}

// LocationScore grades walkability and transit access.
func (c *MarketClassifier) LocationScore(prop *models.Property) int {
	score := 50
	if prop == nil {
		return score
	}

	if prop.WalkScore != nil {
		bonus := *prop.WalkScore / 2
		if bonus > 30 {
			bonus = 30
		}
		score += bonus
	}
	if prop.TransitScore != nil {
		bonus := *prop.TransitScore / 4
		if bonus > 20 {
			bonus = 20
		}
		score += bonus
	}

	return clampInt(score, 0, 100)
}

// ManagementScore converts the property's 5-star rating to a 100-point scale
// with a review-count bonus. No rating means the neutral default of 70.
func (c *MarketClassifier) ManagementScore(prop *models.Property) int {
	if prop == nil || prop.Rating == nil {
		return 70
	}

	score := int(*prop.Rating * 20)
	if prop.ReviewCount > 50 {
		score += 10
	} else if prop.ReviewCount > 20 {
		score += 5
	}

	return clampInt(score, 0, 100)
}

// NegotiationPotential is the quick per-unit leverage estimate attached to
// MarketIntelligence. The full strategy scorer refines it.
func (c *MarketClassifier) NegotiationPotential(daysOnMarket int, urgency models.ConcessionUrgency, trend models.RentTrend) int {
	score := 1

	switch {
	case daysOnMarket >= 30:
		score += 4
	case daysOnMarket >= 14:
		score += 3
	case daysOnMarket >= 7:
		score += 2
	}

	switch urgency {
	case models.UrgencyStandard:
		score++
	case models.UrgencyAggressive:
		score += 2
	case models.UrgencyDesperate:
		score += 3
	}

	switch trend {
	case models.TrendDecreasing:
		score += 2
	case models.TrendStable:
		score++
	}

	return clampInt(score, 1, 10)
}

// UrgencyScore estimates the property's urgency to lease: one point per week
// on market capped at five, plus a concession-value bonus.
func (c *MarketClassifier) UrgencyScore(daysOnMarket int, concessionValue float64) int {
	score := 1

	weeks := daysOnMarket / 7
	if weeks > 5 {
		weeks = 5
	}
	score += weeks

	switch {
	case concessionValue >= 1000:
		score += 3
	case concessionValue >= 500:
		score += 2
	case concessionValue > 0:
		score++
	}

	return clampInt(score, 1, 10)
}

// LeaseProbability estimates how likely the unit is to lease quickly.
func (c *MarketClassifier) LeaseProbability(velocity models.MarketVelocity, position models.MarketPosition, urgency models.ConcessionUrgency) float64 {
	prob := 0.5

	switch velocity {
	case models.VelocityHot:
		prob += 0.3
	case models.VelocityNormal:
		prob += 0.1
	case models.VelocitySlow:
		prob -= 0.1
	case models.VelocityStale:
		prob -= 0.3
	}

	switch position {
	case models.PositionBelowMarket:
		prob += 0.2
	case models.PositionAboveMarket:
		prob -= 0.2
	}

	switch urgency {
	case models.UrgencyStandard:
		prob += 0.05
	case models.UrgencyAggressive:
		prob += 0.1
	case models.UrgencyDesperate:
		prob += 0.15
	}

	return clampFloat(prob, 0.0, 1.0)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

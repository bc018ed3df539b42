package intel

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/models"
)

// Forecaster produces forward-looking market estimates for a unit. The
// default implementation is threshold heuristics; a statistically trained
// variant can replace it without touching the scoring pipeline. All methods
// are advisory: bad input degrades to documented fallback values, never to
// an error.
type Forecaster interface {
	PredictPriceChange(unit *models.Unit, history []models.PriceHistoryEntry, ctx *models.MarketContext, daysAhead int) models.PriceForecast
	PredictDaysToLease(unit *models.Unit, ctx *models.MarketContext) models.LeaseForecast
	PredictConcessionProbability(unit *models.Unit, ctx *models.MarketContext) models.ConcessionForecast
	OptimalOfferPrice(unit *models.Unit, ctx *models.MarketContext, userBudget *float64) models.OfferForecast
}

// HeuristicPredictor is the default Forecaster.
type HeuristicPredictor struct {
	cfg    *config.ScoringConfig
	logger *logrus.Logger
	now    func() time.Time
}

func NewHeuristicPredictor(cfg *config.ScoringConfig, logger *logrus.Logger) *HeuristicPredictor {
	if logger == nil {
		logger = logrus.New()
	}
	return &HeuristicPredictor{cfg: cfg, logger: logger, now: time.Now}
}

// PredictPriceChange estimates drop probability and projected prices at 30,
// 60 and 90 days from the unit's time on market. Observed price history does
// not change the projection, only the confidence in it.
func (p *HeuristicPredictor) PredictPriceChange(unit *models.Unit, history []models.PriceHistoryEntry, ctx *models.MarketContext, daysAhead int) models.PriceForecast {
	if unit == nil || unit.CurrentPrice <= 0 {
		price := 0.0
		if unit != nil {
			price = unit.CurrentPrice
		}
		p.logger.WithField("forecast", "price_change").Warn("Missing price data, returning neutral forecast")
		return models.PriceForecast{
			CurrentPrice:         price,
			PredictedPrice30d:    price,
			PredictedPrice60d:    price,
			PredictedPrice90d:    price,
			PriceDropProbability: 0.5,
			ExpectedDropAmount:   0,
			Confidence:           0.5,
		}
	}

	currentPrice := unit.CurrentPrice
	var dropProb, expectedDrop float64
	switch {
	case unit.DaysOnMarket > 60:
		dropProb = 0.8
		expectedDrop = currentPrice * 0.05
	case unit.DaysOnMarket > 30:
		dropProb = 0.6
		expectedDrop = currentPrice * 0.03
	case unit.DaysOnMarket > 14:
		dropProb = 0.3
		expectedDrop = currentPrice * 0.02
	default:
		dropProb = 0.1
		expectedDrop = 0
	}

	return models.PriceForecast{
		CurrentPrice:         currentPrice,
		PredictedPrice30d:    currentPrice - expectedDrop*0.5,
		PredictedPrice60d:    currentPrice - expectedDrop*0.8,
		PredictedPrice90d:    currentPrice - expectedDrop,
		PriceDropProbability: dropProb,
		ExpectedDropAmount:   expectedDrop,
		Confidence:           p.confidence(unit, history, ctx),
	}
}

// PredictDaysToLease reads a 3x2 lookup over price position and concession
// presence, with a penalty for units already lingering.
func (p *HeuristicPredictor) PredictDaysToLease(unit *models.Unit, ctx *models.MarketContext) models.LeaseForecast {
	if unit == nil || unit.CurrentPrice <= 0 {
		return models.LeaseForecast{
			PredictedDays: 20,
			Probability7:  0.3,
			Probability14: 0.5,
			Probability30: 0.8,
			MarketAverage: 20,
			RelativeSpeed: "normal",
		}
	}

	avgDays := 20.0
	avgPrice := unit.CurrentPrice
	if ctx != nil {
		if ctx.Stats.AvgDaysOnMarket > 0 {
			avgDays = ctx.Stats.AvgDaysOnMarket
		}
		if ctx.Stats.AvgRent > 0 {
			avgPrice = ctx.Stats.AvgRent
		}
	}

	priceRatio := 1.0
	if avgPrice > 0 {
		priceRatio = unit.CurrentPrice / avgPrice
	}
	hasConcessions := unit.HasConcessions()

	var predicted int
	switch {
	case priceRatio < 0.9:
		if hasConcessions {
			predicted = 5
		} else {
			predicted = 10
		}
	case priceRatio < 1.1:
		if hasConcessions {
			predicted = 10
		} else {
			predicted = 15
		}
	default:
		if hasConcessions {
			predicted = 20
		} else {
			predicted = 30
		}
	}

	if unit.DaysOnMarket > 30 {
		predicted += 10
	}

	speed := "slow"
	if float64(predicted) < avgDays {
		speed = "fast"
	}

	return models.LeaseForecast{
		PredictedDays: predicted,
		Probability7:  thresholdProb(predicted <= 7, 1.0, 0.3),
		Probability14: thresholdProb(predicted <= 14, 1.0, 0.5),
		Probability30: thresholdProb(predicted <= 30, 1.0, 0.7),
		MarketAverage: avgDays,
		RelativeSpeed: speed,
	}
}

// PredictConcessionProbability estimates the odds and value of a concession
// appearing, plus the optimal date to open negotiations.
func (p *HeuristicPredictor) PredictConcessionProbability(unit *models.Unit, ctx *models.MarketContext) models.ConcessionForecast {
	if unit == nil {
		return models.ConcessionForecast{
			Probability:            0.5,
			ExpectedValue:          500,
			OptimalNegotiationDate: p.now().AddDate(0, 0, 7),
			HasConcessions:         false,
			Recommendation:         "Monitor for changes",
		}
	}

	var baseProb, expectedValue float64
	switch {
	case unit.DaysOnMarket > 45:
		baseProb = 0.9
		expectedValue = 1500
	case unit.DaysOnMarket > 30:
		baseProb = 0.7
		expectedValue = 1000
	case unit.DaysOnMarket > 14:
		baseProb = 0.4
		expectedValue = 500
	default:
		baseProb = 0.2
		expectedValue = 0
	}

	hasConcessions := unit.HasConcessions()
	if hasConcessions {
		baseProb = math.Min(baseProb+0.2, 1.0)
	}

	var optimalOffset int
	switch {
	case unit.DaysOnMarket < 7:
		optimalOffset = 14
	case unit.DaysOnMarket < 14:
		optimalOffset = 7
	default:
		optimalOffset = 3
	}

	return models.ConcessionForecast{
		Probability:            baseProb,
		ExpectedValue:          expectedValue,
		OptimalNegotiationDate: p.now().AddDate(0, 0, optimalOffset),
		HasConcessions:         hasConcessions,
		Recommendation:         concessionRecommendation(baseProb, unit.DaysOnMarket),
	}
}

// OptimalOfferPrice computes three offer tiers from the days-on-market
// discount band, optionally capped by the renter's budget.
func (p *HeuristicPredictor) OptimalOfferPrice(unit *models.Unit, ctx *models.MarketContext, userBudget *float64) models.OfferForecast {
	if unit == nil || unit.CurrentPrice <= 0 {
		current := p.cfg.AssumedMonthlyRent
		if unit != nil && unit.CurrentPrice > 0 {
			current = unit.CurrentPrice
		}
		return models.OfferForecast{
			CurrentAsking:     current,
			AggressiveOffer:   current * 0.92,
			ModerateOffer:     current * 0.95,
			ConservativeOffer: current * 0.98,
			MaxLikelyDiscount: current * 0.05,
			SuccessProbabilities: models.OfferProbabilities{
				Aggressive: 0.3, Moderate: 0.6, Conservative: 0.9,
			},
			Recommendation: "Start with moderate offer",
		}
	}

	currentPrice := unit.CurrentPrice
	var baseDiscount float64
	switch {
	case unit.DaysOnMarket > 60:
		baseDiscount = 0.10
	case unit.DaysOnMarket > 30:
		baseDiscount = 0.07
	case unit.DaysOnMarket > 14:
		baseDiscount = 0.05
	default:
		baseDiscount = 0.03
	}

	hasConcessions := unit.HasConcessions()
	if hasConcessions {
		baseDiscount *= 0.7
	}

	aggressive := currentPrice * (1 - baseDiscount - 0.03)
	moderate := currentPrice * (1 - baseDiscount)
	conservative := currentPrice * (1 - baseDiscount + 0.02)

	if userBudget != nil {
		aggressive = math.Min(aggressive, *userBudget*0.9)
		moderate = math.Min(moderate, *userBudget*0.95)
		conservative = math.Min(conservative, *userBudget)
	}

	probs := models.OfferProbabilities{Aggressive: 0.2, Moderate: 0.5, Conservative: 0.8}
	if unit.DaysOnMarket > 30 {
		probs = models.OfferProbabilities{Aggressive: 0.3, Moderate: 0.6, Conservative: 0.9}
	}

	return models.OfferForecast{
		CurrentAsking:        currentPrice,
		AggressiveOffer:      roundToTen(aggressive),
		ModerateOffer:        roundToTen(moderate),
		ConservativeOffer:    roundToTen(conservative),
		MaxLikelyDiscount:    currentPrice * baseDiscount,
		SuccessProbabilities: probs,
		Recommendation:       offerRecommendation(unit.DaysOnMarket, hasConcessions),
	}
}

func (p *HeuristicPredictor) confidence(unit *models.Unit, history []models.PriceHistoryEntry, ctx *models.MarketContext) float64 {
	confidence := 0.5
	if unit.DaysOnMarket > 7 {
		confidence += 0.1
	}
	if len(history) > 0 {
		confidence += 0.2
	}
	if ctx != nil && ctx.Stats.AvgRent > 0 {
		confidence += 0.2
	}
	return math.Min(confidence, 0.95)
}

func concessionRecommendation(probability float64, daysOnMarket int) string {
	switch {
	case probability > 0.7 && daysOnMarket > 30:
		return "Excellent time to negotiate - property is motivated"
	case probability > 0.7:
		return "Good negotiation opportunity available"
	case probability > 0.4:
		return "Moderate negotiation potential - worth trying"
	default:
		return "Limited negotiation room - property is in demand"
	}
}

func offerRecommendation(daysOnMarket int, hasConcessions bool) string {
	switch {
	case daysOnMarket > 45:
		return "Property has been on market a long time - start with aggressive offer"
	case daysOnMarket > 30:
		return "Good negotiation position - moderate offer recommended"
	case hasConcessions:
		return "Property already offering concessions - conservative offer may succeed"
	default:
		return "Competitive property - consider offering close to asking"
	}
}

func thresholdProb(within bool, ifTrue, ifFalse float64) float64 {
	if within {
		return ifTrue
	}
	return ifFalse
}

func roundToTen(v float64) float64 {
	return math.Round(v/10) * 10
}

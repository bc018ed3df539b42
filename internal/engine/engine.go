package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/intel"
	"apartmentiq/server/internal/models"
)

var (
	ErrNilUnit      = errors.New("candidate has no unit record")
	ErrInvalidPrice = errors.New("unit has no valid current price")
)

// Engine orchestrates the scoring pipeline: it builds the market context for
// a candidate batch, enriches every unit into MarketIntelligence, computes
// the composite recommendation scores and returns the ranked list.
type Engine struct {
	cfg        *config.Config
	logger     *logrus.Logger
	parser     *intel.ConcessionParser
	classifier *intel.MarketClassifier
	scorer     *intel.NegotiationScorer
	predictor  intel.Forecaster
}

func NewEngine(cfg *config.Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		parser:     intel.NewConcessionParser(&cfg.Scoring),
		classifier: intel.NewMarketClassifier(&cfg.Scoring),
		scorer:     intel.NewNegotiationScorer(&cfg.Scoring),
		predictor:  intel.NewHeuristicPredictor(&cfg.Scoring, logger),
	}
}

// Scorer exposes the negotiation scorer for callers that need a standalone
// strategy for a single unit.
func (e *Engine) Scorer() *intel.NegotiationScorer { return e.scorer }

// Predictor exposes the forecaster for the advisory forecast endpoints.
func (e *Engine) Predictor() intel.Forecaster { return e.predictor }

// ScoreUnit converts one candidate into its MarketIntelligence record
// against the shared context. It returns an error only when the unit cannot
// be converted at all; the caller skips such units instead of aborting.
func (e *Engine) ScoreUnit(cand models.Candidate, ctx *models.MarketContext) (*models.MarketIntelligence, error) {
	unit := cand.Unit
	if unit == nil {
		return nil, ErrNilUnit
	}
	if unit.CurrentPrice <= 0 || math.IsNaN(unit.CurrentPrice) || math.IsInf(unit.CurrentPrice, 0) {
		return nil, fmt.Errorf("%w: %.2f", ErrInvalidPrice, unit.CurrentPrice)
	}

	sqft := e.cfg.Scoring.DefaultSquareFeet
	if unit.SquareFeet != nil && *unit.SquareFeet > 0 {
		sqft = *unit.SquareFeet
	}

	concession := e.parser.Analyze(unit)
	effectiveRent := e.parser.EffectiveRent(unit)
	velocity := e.classifier.Velocity(unit.DaysOnMarket)
	trend, trendPct := e.classifier.RentTrend(cand.History)
	position, percentile := e.classifier.MarketPosition(unit.CurrentPrice, ctx)

	mi := &models.MarketIntelligence{
		UnitID:       unit.ID,
		PropertyName: unit.PropertyName,
		UnitNumber:   unit.UnitNumber,

		CurrentRent:   unit.CurrentPrice,
		EffectiveRent: effectiveRent,
		RentPerSqft:   unit.CurrentPrice / float64(sqft),

		Bedrooms:   unit.Bedrooms,
		Bathrooms:  unit.Bathrooms,
		SquareFeet: sqft,

		DaysOnMarket:   unit.DaysOnMarket,
		MarketVelocity: velocity,

		Concession: concession,

		RentTrend:         trend,
		RentChangePercent: trendPct,

		MarketPosition: position,
		PercentileRank: percentile,

		AmenityScore:    e.classifier.AmenityScore(unit, cand.Property),
		LocationScore:   e.classifier.LocationScore(cand.Property),
		ManagementScore: e.classifier.ManagementScore(cand.Property),

		NegotiationPotential: e.classifier.NegotiationPotential(unit.DaysOnMarket, concession.Urgency, trend),
		UrgencyScore:         e.classifier.UrgencyScore(unit.DaysOnMarket, concession.Value),
		LeaseProbability:     e.classifier.LeaseProbability(velocity, position, concession.Urgency),

		ConfidenceScore: 0.9,
	}

	if cand.Property != nil {
		mi.Address = cand.Property.Address
		mi.ZipCode = cand.Property.ZipCode
	}
	if unit.FirstSeen != nil {
		mi.FirstSeen = unit.FirstSeen.Format(time.DateOnly)
	}
	if unit.LastSeen != nil {
		mi.DataFreshness = unit.LastSeen.Format(time.DateOnly)
	}

	return mi, nil
}

// Rank scores a candidate batch against the given preferences and returns
// the top recommendations in descending score order, along with the units
// that could not be converted. Units are scored concurrently; no unit's
// score depends on another's beyond the shared precomputed context, and ties
// keep their input order.
func (e *Engine) Rank(candidates []models.Candidate, prefs *models.UserPreference, limit int) ([]models.Recommendation, []models.SkippedUnit) {
	if len(candidates) == 0 {
		return []models.Recommendation{}, nil
	}
	if prefs == nil {
		prefs = &models.UserPreference{}
	}

	ctx := e.BuildMarketContext(candidates)

	type slot struct {
		rec     *models.Recommendation
		skipped *models.SkippedUnit
	}
	slots := make([]slot, len(candidates))

	workers := e.cfg.Scoring.ScoringWorkers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				cand := candidates[i]
				mi, err := e.ScoreUnit(cand, ctx)
				if err != nil {
					unitID := ""
					if cand.Unit != nil {
						unitID = cand.Unit.ID
					}
					e.logger.WithError(err).WithField("unit_id", unitID).Warn("Skipping unit that could not be scored")
					slots[i].skipped = &models.SkippedUnit{UnitID: unitID, Reason: err.Error()}
					continue
				}
				rec := e.buildRecommendation(mi, prefs)
				slots[i].rec = &rec
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	recommendations := make([]models.Recommendation, 0, len(candidates))
	var skipped []models.SkippedUnit
	for _, s := range slots {
		if s.rec != nil {
			recommendations = append(recommendations, *s.rec)
		}
		if s.skipped != nil {
			skipped = append(skipped, *s.skipped)
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].TotalScore > recommendations[j].TotalScore
	})

	if limit > 0 && len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	e.logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"returned":   len(recommendations),
		"skipped":    len(skipped),
	}).Info("Completed recommendation ranking")

	return recommendations, skipped
}

func (e *Engine) buildRecommendation(mi *models.MarketIntelligence, prefs *models.UserPreference) models.Recommendation {
	value := e.valueScore(mi)
	timing := e.timingScore(mi)
	quality := e.qualityScore(mi)
	preference := e.preferenceScore(mi, prefs)

	total := value*e.cfg.Scoring.WeightValue +
		timing*e.cfg.Scoring.WeightTiming +
		quality*e.cfg.Scoring.WeightQuality +
		preference*e.cfg.Scoring.WeightPreference

	return models.Recommendation{
		Intelligence:    *mi,
		ValueScore:      value,
		TimingScore:     timing,
		QualityScore:    quality,
		PreferenceScore: preference,
		TotalScore:      total,
		Insights:        e.generateInsights(mi),
		Reasons:         e.generateReasons(mi, total),
	}
}

func (e *Engine) valueScore(mi *models.MarketIntelligence) float64 {
	score := 50.0

	switch mi.MarketPosition {
	case models.PositionBelowMarket:
		score += 30
	case models.PositionAtMarket:
		score += 10
	}

	if mi.EffectiveRent < mi.CurrentRent && mi.CurrentRent > 0 {
		discountPct := (mi.CurrentRent - mi.EffectiveRent) / mi.CurrentRent
		score += math.Min(discountPct*100, 20)
	}

	return math.Min(score, 100)
}

func (e *Engine) timingScore(mi *models.MarketIntelligence) float64 {
	score := 50.0

	score += float64(mi.NegotiationPotential) * 3

	if mi.UrgencyScore >= 7 {
		score += 20
	} else if mi.UrgencyScore >= 5 {
		score += 10
	}

	switch mi.MarketVelocity {
	case models.VelocityStale:
		score += 15
	case models.VelocitySlow:
		score += 10
	}

	return math.Min(score, 100)
}

func (e *Engine) qualityScore(mi *models.MarketIntelligence) float64 {
	return float64(mi.AmenityScore)*0.4 +
		float64(mi.LocationScore)*0.4 +
		float64(mi.ManagementScore)*0.2
}

func (e *Engine) preferenceScore(mi *models.MarketIntelligence, prefs *models.UserPreference) float64 {
	penalties := 0.0

	if prefs.MaxPrice != nil && mi.EffectiveRent > *prefs.MaxPrice {
		penalties += 30
	}
	if prefs.MinSquareFeet != nil && mi.SquareFeet < *prefs.MinSquareFeet {
		penalties += 20
	}
	if prefs.MinBedrooms != nil && mi.Bedrooms < *prefs.MinBedrooms {
		penalties += 25
	}

	return math.Max(100-penalties, 0)
}

func (e *Engine) generateInsights(mi *models.MarketIntelligence) []string {
	var insights []string

	if mi.DaysOnMarket > 30 {
		insights = append(insights, fmt.Sprintf("On market for %d days - strong negotiation position", mi.DaysOnMarket))
	} else if mi.DaysOnMarket < 7 {
		insights = append(insights, "New listing - act quickly if interested")
	}

	if mi.Concession.Value > 0 {
		insights = append(insights, fmt.Sprintf("$%.0f in concessions available", mi.Concession.Value))
	}

	if mi.MarketPosition == models.PositionBelowMarket {
		insights = append(insights, fmt.Sprintf("Priced %d%% below market", 100-mi.PercentileRank))
	}

	if mi.NegotiationPotential >= 7 {
		insights = append(insights, "Excellent negotiation opportunity")
	} else if mi.NegotiationPotential >= 5 {
		insights = append(insights, "Good negotiation potential")
	}

	if mi.UrgencyScore >= 7 {
		insights = append(insights, "Property showing high urgency to lease")
	}

	return insights
}

func (e *Engine) generateReasons(mi *models.MarketIntelligence, totalScore float64) []string {
	var reasons []string

	if totalScore >= 80 {
		reasons = append(reasons, "Exceptional match for your preferences")
	} else if totalScore >= 70 {
		reasons = append(reasons, "Strong match for your criteria")
	}

	if mi.EffectiveRent < mi.CurrentRent {
		reasons = append(reasons, fmt.Sprintf("Save $%.0f/month with current concessions", mi.CurrentRent-mi.EffectiveRent))
	}

	if mi.MarketPosition == models.PositionBelowMarket {
		reasons = append(reasons, "Below market pricing")
	}

	if mi.NegotiationPotential >= 7 {
		reasons = append(reasons, "High likelihood of negotiating better terms")
	}

	if mi.LocationScore >= 80 {
		reasons = append(reasons, "Excellent location scores")
	}

	return reasons
}

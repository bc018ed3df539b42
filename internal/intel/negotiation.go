package intel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/models"
)

// NegotiationInput carries the raw fields the scorer consumes. History is
// most-recent-first; Profile is optional.
type NegotiationInput struct {
	Unit    *models.Unit
	History []models.PriceHistoryEntry
	Context *models.MarketContext
	Profile *models.UserPreference
}

// NegotiationScorer turns six independent signals into a 1-10 leverage score
// and expands it into a full strategy. Each sub-score reads exactly one
// signal; the weights come from configuration and are validated at startup.
type NegotiationScorer struct {
	cfg *config.ScoringConfig
	now func() time.Time
}

func NewNegotiationScorer(cfg *config.ScoringConfig) *NegotiationScorer {
	return &NegotiationScorer{cfg: cfg, now: time.Now}
}

// Score computes the weighted negotiation score and the derived strategy.
func (s *NegotiationScorer) Score(in NegotiationInput) models.NegotiationStrategy {
	domScore := s.scoreDaysOnMarket(in.Unit.DaysOnMarket)
	priceScore := s.scorePriceHistory(in.History)
	concessionScore := s.scoreConcessions(in.Unit)
	marketScore := s.scoreMarketPosition(in.Unit, in.Context)
	seasonScore := s.scoreSeasonality()
	occupancyScore := s.scorePropertyOccupancy(in.Unit, in.Context)

	total := domScore*s.cfg.WeightDaysOnMarket +
		priceScore*s.cfg.WeightPriceHistory +
		concessionScore*s.cfg.WeightConcessions +
		marketScore*s.cfg.WeightMarketPosition +
		seasonScore*s.cfg.WeightSeasonality +
		occupancyScore*s.cfg.WeightPropertyOccupancy

	finalScore := clampInt(int(total), 1, 10)

	var potential models.NegotiationTier
	switch {
	case finalScore >= 8:
		potential = models.TierExcellent
	case finalScore >= 6:
		potential = models.TierHigh
	case finalScore >= 4:
		potential = models.TierMedium
	default:
		potential = models.TierLow
	}

	return models.NegotiationStrategy{
		Score:           finalScore,
		Potential:       potential,
		Tactics:         s.generateTactics(finalScore, in.Unit),
		OptimalTiming:   s.optimalTiming(in.Unit.DaysOnMarket),
		LeveragePoints:  s.leveragePoints(in),
		Risks:           s.assessRisks(finalScore, in),
		ExpectedOutcome: s.expectedOutcome(finalScore, in.Unit.CurrentPrice),
	}
}

func (s *NegotiationScorer) scoreDaysOnMarket(days int) float64 {
	switch {
	case days >= 60:
		return 10.0
	case days >= 45:
		return 8.5
	case days >= 30:
		return 7.0
	case days >= 21:
		return 5.5
	case days >= 14:
		return 4.0
	case days >= 7:
		return 2.5
	default:
		return 1.0
	}
}

// scorePriceHistory counts reductions: a price lower than the immediately
// preceding one. Empty history is neutral, not "no leverage".
func (s *NegotiationScorer) scorePriceHistory(history []models.PriceHistoryEntry) float64 {
	if len(history) == 0 {
		return 5.0
	}

	reductions := 0
	for i := 0; i < len(history)-1; i++ {
		newer := history[i].Price
		older := history[i+1].Price
		if older > newer && older > 0 {
			reductions++
		}
	}

	switch {
	case reductions == 0:
		return 3.0
	case reductions == 1:
		return 6.0
	case reductions == 2:
		return 8.0
	default:
		return 10.0
	}
}

func (s *NegotiationScorer) scoreConcessions(unit *models.Unit) float64 {
	text := unit.ConcessionText()
	if text == "" {
		return 5.0
	}

	if strings.Contains(text, "month") && strings.Contains(text, "free") {
		if m := monthsFreeRe.FindStringSubmatch(text); m != nil {
			if months, _ := strconv.Atoi(m[1]); months >= 2 {
				return 9.0
			}
		}
		return 7.0
	}
	if strings.Contains(text, "$") {
		return 6.0
	}
	return 4.0
}

func (s *NegotiationScorer) scoreMarketPosition(unit *models.Unit, ctx *models.MarketContext) float64 {
	price := unit.CurrentPrice
	if ctx == nil || price == 0 || ctx.Stats.AvgRent == 0 {
		return 5.0
	}

	ratio := price / ctx.Stats.AvgRent
	switch {
	case ratio > 1.15:
		return 8.0
	case ratio > 1.05:
		return 6.0
	case ratio > 0.95:
		return 4.0
	default:
		return 2.0
	}
}

// scoreSeasonality reads the current calendar month: peak rental season
// works against the renter, winter for them.
func (s *NegotiationScorer) scoreSeasonality() float64 {
	switch s.now().Month() {
	case time.May, time.June, time.July, time.August:
		return 3.0
	case time.April, time.September, time.October:
		return 5.0
	default:
		return 7.0
	}
}

// scorePropertyOccupancy proxies vacancy pressure with the count of other
// available units grouped by property name. Name-based grouping conflates
// same-named properties across cities; see PropertyGroupStats.
func (s *NegotiationScorer) scorePropertyOccupancy(unit *models.Unit, ctx *models.MarketContext) float64 {
	if ctx == nil {
		return 5.0
	}
	stats, ok := ctx.PropertyStats[unit.PropertyName]
	if !ok {
		return 5.0
	}

	switch {
	case stats.AvailableUnits >= 10:
		return 9.0
	case stats.AvailableUnits >= 5:
		return 7.0
	case stats.AvailableUnits >= 3:
		return 5.0
	default:
		return 3.0
	}
}

func (s *NegotiationScorer) generateTactics(score int, unit *models.Unit) []string {
	var tactics []string

	switch {
	case score >= 8:
		tactics = append(tactics,
			"Start with aggressive offer (10-15% below asking)",
			"Request multiple concessions (free month + reduced deposit)",
			"Negotiate for longer-term lease at lower rate",
			"Ask for upgrade incentives (parking, storage, etc.)",
		)
	case score >= 6:
		tactics = append(tactics,
			"Open with 7-10% below asking price",
			"Request one month free or equivalent concession",
			"Negotiate application and move-in fees",
			"Propose quick move-in for better rate",
		)
	case score >= 4:
		tactics = append(tactics,
			"Start with 3-5% below asking",
			"Focus on waiving fees rather than rent reduction",
			"Negotiate for included utilities or parking",
			"Emphasize your strong application credentials",
		)
	default:
		tactics = append(tactics,
			"Offer close to asking price",
			"Focus on securing the unit rather than discounts",
			"Negotiate minor perks (painting, cleaning)",
			"Submit strong application quickly",
		)
	}

	if unit.DaysOnMarket > 30 {
		tactics = append(tactics, "Emphasize the extended market time in negotiations")
	}
	if unit.HasConcessions() {
		tactics = append(tactics, "Push for additional concessions beyond current offer")
	}

	return tactics
}

func (s *NegotiationScorer) optimalTiming(daysOnMarket int) string {
	switch {
	case daysOnMarket < 7:
		return "Wait 1-2 weeks unless highly competitive"
	case daysOnMarket < 14:
		return "Good time to start negotiations"
	case daysOnMarket < 30:
		return "Optimal negotiation window - act now"
	default:
		return "Immediate action recommended - maximum leverage"
	}
}

func (s *NegotiationScorer) leveragePoints(in NegotiationInput) []string {
	var leverage []string
	dom := in.Unit.DaysOnMarket

	if dom > 45 {
		leverage = append(leverage, fmt.Sprintf("Unit has been available for %d days (well above average)", dom))
	} else if dom > 30 {
		leverage = append(leverage, fmt.Sprintf("Extended %d days on market indicates motivation", dom))
	}

	if len(in.History) > 0 {
		leverage = append(leverage, "Previous price reductions show flexibility")
	}

	if in.Context != nil && in.Context.Stats.AvgDaysOnMarket > 0 {
		avgDays := in.Context.Stats.AvgDaysOnMarket
		if float64(dom) > avgDays {
			leverage = append(leverage, fmt.Sprintf("Above average market time (%d vs %.0f days)", dom, avgDays))
		}
	}

	switch s.now().Month() {
	case time.November, time.December, time.January, time.February:
		leverage = append(leverage, "Off-season timing provides negotiation advantage")
	}

	if in.Context != nil {
		if stats, ok := in.Context.PropertyStats[in.Unit.PropertyName]; ok && stats.AvailableUnits > 3 {
			leverage = append(leverage, fmt.Sprintf("Multiple units available (%d) in same property", stats.AvailableUnits))
		}
	}

	if in.Unit.HasConcessions() {
		leverage = append(leverage, "Existing concessions indicate willingness to negotiate")
	}

	return leverage
}

func (s *NegotiationScorer) assessRisks(score int, in NegotiationInput) []string {
	var risks []string

	if score < 4 {
		risks = append(risks,
			"Limited negotiation room - unit may lease quickly",
			"Aggressive negotiation could lose the unit",
		)
	}

	if in.Unit.DaysOnMarket < 7 {
		risks = append(risks, "New listing may have multiple interested parties")
	}

	switch s.now().Month() {
	case time.May, time.June, time.July, time.August:
		risks = append(risks, "Peak season reduces negotiation leverage")
	}

	if in.Unit.DaysOnMarket <= s.cfg.VelocityHotDays {
		risks = append(risks, "Hot market conditions favor landlord")
	}

	if in.Context != nil && in.Context.RentPercentiles != nil &&
		in.Unit.CurrentPrice > 0 && in.Unit.CurrentPrice <= in.Context.RentPercentiles.P25 {
		risks = append(risks, "Below-market pricing limits negotiation potential")
	}

	if len(risks) == 0 {
		risks = append(risks, "Minimal negotiation risks identified")
	}

	return risks
}

func (s *NegotiationScorer) expectedOutcome(score int, currentPrice float64) models.ExpectedOutcome {
	if currentPrice <= 0 {
		currentPrice = s.cfg.AssumedMonthlyRent
	}

	switch {
	case score >= 8:
		return models.ExpectedOutcome{
			DiscountPercent:    10.0,
			DiscountAmount:     currentPrice * 0.10,
			SuccessProbability: 0.85,
			ConcessionValue:    1500,
			DurationDays:       2,
		}
	case score >= 6:
		return models.ExpectedOutcome{
			DiscountPercent:    7.0,
			DiscountAmount:     currentPrice * 0.07,
			SuccessProbability: 0.70,
			ConcessionValue:    1000,
			DurationDays:       3,
		}
	case score >= 4:
		return models.ExpectedOutcome{
			DiscountPercent:    4.0,
			DiscountAmount:     currentPrice * 0.04,
			SuccessProbability: 0.50,
			ConcessionValue:    500,
			DurationDays:       4,
		}
	default:
		return models.ExpectedOutcome{
			DiscountPercent:    2.0,
			DiscountAmount:     currentPrice * 0.02,
			SuccessProbability: 0.30,
			ConcessionValue:    200,
			DurationDays:       5,
		}
	}
}

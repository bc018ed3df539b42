package intel

import (
	"regexp"
	"strconv"
	"strings"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/models"
)

var (
	monthsFreeRe = regexp.MustCompile(`(\d+)\s*month.*?free`)
	dollarRe     = regexp.MustCompile(`\$(\d+)`)
)

// ConcessionParser extracts a monetary value, a category and an urgency tier
// from a unit's free-text concession fields. It is a best-effort pattern
// matcher over messy listing text, not an NLP system: the first matching
// pattern wins and no second extraction is attempted.
type ConcessionParser struct {
	cfg *config.ScoringConfig
}

func NewConcessionParser(cfg *config.ScoringConfig) *ConcessionParser {
	return &ConcessionParser{cfg: cfg}
}

// Analyze derives a ConcessionAnalysis from the unit's concession text and
// its days on market. Urgency comes from days on market alone; the text only
// determines category and value.
func (p *ConcessionParser) Analyze(unit *models.Unit) models.ConcessionAnalysis {
	text := unit.ConcessionText()

	if text == "" || strings.Contains(text, "none") {
		return models.ConcessionAnalysis{
			Value:    0,
			Category: models.ConcessionNone,
			Urgency:  models.UrgencyNone,
		}
	}

	var urgency models.ConcessionUrgency
	switch {
	case unit.DaysOnMarket >= p.cfg.UrgencyDesperateDays:
		urgency = models.UrgencyDesperate
	case unit.DaysOnMarket >= p.cfg.UrgencyAggressiveDays:
		urgency = models.UrgencyAggressive
	case unit.DaysOnMarket >= p.cfg.UrgencyStandardDays:
		urgency = models.UrgencyStandard
	default:
		urgency = models.UrgencyNone
	}

	value, category := p.parseValue(text)
	return models.ConcessionAnalysis{
		Value:    value,
		Category: category,
		Urgency:  urgency,
	}
}

func (p *ConcessionParser) parseValue(text string) (float64, models.ConcessionCategory) {
	if m := monthsFreeRe.FindStringSubmatch(text); m != nil {
		months, _ := strconv.Atoi(m[1])
		return float64(months) * p.cfg.AssumedMonthlyRent, models.ConcessionFreeRent
	}
	if m := dollarRe.FindStringSubmatch(text); m != nil {
		amount, _ := strconv.ParseFloat(m[1], 64)
		return amount, models.ConcessionRentDiscount
	}
	if strings.Contains(text, "deposit") {
		return p.cfg.AssumedDepositValue, models.ConcessionDepositWaiver
	}
	return 0, models.ConcessionOther
}

// EffectiveRent amortizes the unit's concessions into an effective monthly
// rent over an assumed 12-month lease. N or more months free means a free
// unit, never a negative rent.
func (p *ConcessionParser) EffectiveRent(unit *models.Unit) float64 {
	base := unit.CurrentPrice
	text := unit.ConcessionText()
	if text == "" {
		return base
	}

	if m := monthsFreeRe.FindStringSubmatch(text); m != nil {
		monthsFree, _ := strconv.Atoi(m[1])
		effectiveMonths := 12 - monthsFree
		if effectiveMonths <= 0 {
			return 0
		}
		return base * float64(effectiveMonths) / 12
	}

	if m := dollarRe.FindStringSubmatch(text); m != nil {
		discount, _ := strconv.ParseFloat(m[1], 64)
		if base-discount < 0 {
			return 0
		}
		return base - discount
	}

	return base
}

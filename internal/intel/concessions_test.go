package intel

import (
	"testing"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/models"
)

func testScoringConfig(t *testing.T) *config.ScoringConfig {
	t.Helper()
	cfg := &config.ScoringConfig{}
	require.NoError(t, env.Parse(cfg))
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestConcessionParser_Analyze(t *testing.T) {
	parser := NewConcessionParser(testScoringConfig(t))

	tests := []struct {
		name         string
		offers       string
		daysOnMarket int
		wantValue    float64
		wantCategory models.ConcessionCategory
		wantUrgency  models.ConcessionUrgency
	}{
		{
			name:         "months free uses assumed rent",
			offers:       "2 months free on select units",
			daysOnMarket: 35,
			wantValue:    3000,
			wantCategory: models.ConcessionFreeRent,
			wantUrgency:  models.UrgencyDesperate,
		},
		{
			name:         "dollar amount",
			offers:       "$500 off first month",
			daysOnMarket: 15,
			wantValue:    500,
			wantCategory: models.ConcessionRentDiscount,
			wantUrgency:  models.UrgencyAggressive,
		},
		{
			name:         "deposit waiver",
			offers:       "security deposit waived",
			daysOnMarket: 8,
			wantValue:    1000,
			wantCategory: models.ConcessionDepositWaiver,
			wantUrgency:  models.UrgencyStandard,
		},
		{
			name:         "unrecognized text",
			offers:       "ask about our specials",
			daysOnMarket: 2,
			wantValue:    0,
			wantCategory: models.ConcessionOther,
			wantUrgency:  models.UrgencyNone,
		},
		{
			name:         "empty text",
			offers:       "",
			daysOnMarket: 40,
			wantValue:    0,
			wantCategory: models.ConcessionNone,
			wantUrgency:  models.UrgencyNone,
		},
		{
			name:         "explicit none",
			offers:       "None at this time",
			daysOnMarket: 40,
			wantValue:    0,
			wantCategory: models.ConcessionNone,
			wantUrgency:  models.UrgencyNone,
		},
		{
			name:         "free rent wins over dollar amount",
			offers:       "1 month free plus $200 gift card",
			daysOnMarket: 20,
			wantValue:    1500,
			wantCategory: models.ConcessionFreeRent,
			wantUrgency:  models.UrgencyAggressive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := &models.Unit{SpecialOffers: tt.offers, DaysOnMarket: tt.daysOnMarket}
			got := parser.Analyze(unit)
			assert.Equal(t, tt.wantValue, got.Value)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantUrgency, got.Urgency)
		})
	}
}

func TestConcessionParser_Analyze_StructuredConcessions(t *testing.T) {
	parser := NewConcessionParser(testScoringConfig(t))

	unit := &models.Unit{
		Concessions:  []models.Concession{{Raw: "3 Months FREE rent!"}},
		DaysOnMarket: 45,
	}
	got := parser.Analyze(unit)
	assert.Equal(t, 4500.0, got.Value)
	assert.Equal(t, models.ConcessionFreeRent, got.Category)
	assert.Equal(t, models.UrgencyDesperate, got.Urgency)
}

func TestConcessionParser_EffectiveRent(t *testing.T) {
	parser := NewConcessionParser(testScoringConfig(t))

	tests := []struct {
		name   string
		price  float64
		offers string
		want   float64
	}{
		{"no concessions", 2000, "", 2000},
		{"one month free", 2000, "1 month free", 2000 * 11.0 / 12.0},
		{"two months free", 2400, "2 months free", 2400 * 10.0 / 12.0},
		{"full year free floors at zero", 2000, "12 months free", 0},
		{"more than a year free floors at zero", 2000, "14 months free", 0},
		{"dollar discount", 2000, "$500 off", 1500},
		{"discount above rent floors at zero", 400, "$500 off", 0},
		{"unparseable text keeps base", 2000, "ask about specials", 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit := &models.Unit{CurrentPrice: tt.price, SpecialOffers: tt.offers}
			assert.InDelta(t, tt.want, parser.EffectiveRent(unit), 0.001)
		})
	}
}

func TestUnit_ConcessionText(t *testing.T) {
	unit := &models.Unit{
		Concessions: []models.Concession{
			{Raw: "One Month Free"},
			{Kind: "waived_fee"},
		},
		SpecialOffers: "Move-In Special",
	}
	assert.Equal(t, "one month free waived_fee move-in special", unit.ConcessionText())
	assert.True(t, unit.HasConcessions())

	empty := &models.Unit{}
	assert.Equal(t, "", empty.ConcessionText())
	assert.False(t, empty.HasConcessions())
}

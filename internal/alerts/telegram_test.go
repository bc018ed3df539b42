package alerts

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"apartmentiq/server/internal/models"
)

func TestService_SendMessage_Gating(t *testing.T) {
	logger := logrus.New()

	t.Run("disabled service is a no-op", func(t *testing.T) {
		svc := NewService(logger, Config{Enabled: false})
		assert.NoError(t, svc.SendMessage("hello"))
	})

	t.Run("missing bot token", func(t *testing.T) {
		svc := NewService(logger, Config{Enabled: true, ChatID: "123"})
		assert.Error(t, svc.SendMessage("hello"))
	})

	t.Run("missing chat id", func(t *testing.T) {
		svc := NewService(logger, Config{Enabled: true, BotToken: "token"})
		assert.Error(t, svc.SendMessage("hello"))
	})
}

func TestService_NotifyHighLeverage_Gating(t *testing.T) {
	logger := logrus.New()
	svc := NewService(logger, Config{Enabled: true, BotToken: "token", ChatID: "123", MinNegotiationScore: 8})

	mi := &models.MarketIntelligence{UnitID: "u1", PropertyName: "The Grand", CurrentRent: 2000}

	t.Run("below threshold never sends", func(t *testing.T) {
		strategy := &models.NegotiationStrategy{Score: 6}
		assert.NoError(t, svc.NotifyHighLeverage(mi, strategy))
	})

	t.Run("missing inputs are rejected", func(t *testing.T) {
		assert.Error(t, svc.NotifyHighLeverage(nil, &models.NegotiationStrategy{Score: 9}))
		assert.Error(t, svc.NotifyHighLeverage(mi, nil))
	})

	t.Run("disabled service skips even high scores", func(t *testing.T) {
		disabled := NewService(logger, Config{Enabled: false, MinNegotiationScore: 8})
		strategy := &models.NegotiationStrategy{Score: 10}
		assert.NoError(t, disabled.NotifyHighLeverage(mi, strategy))
	})

	t.Run("threshold is exposed", func(t *testing.T) {
		assert.Equal(t, 8, svc.MinScore())
	})
}

package alerts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"apartmentiq/server/internal/models"
)

// Config holds the Telegram delivery settings for deal alerts.
type Config struct {
	Enabled             bool
	BotToken            string
	ChatID              string
	MinNegotiationScore int
}

// Service pushes deal alerts to a Telegram chat when the rescore pass finds
// units with unusually strong negotiation leverage.
type Service struct {
	logger *logrus.Logger
	client *http.Client
	config Config
}

func NewService(logger *logrus.Logger, config Config) *Service {
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		config: config,
	}
}

// UpdateConfig swaps the delivery settings in place.
func (s *Service) UpdateConfig(config Config) {
	s.config = config
}

// MinScore returns the negotiation score threshold for alerting.
func (s *Service) MinScore() int {
	return s.config.MinNegotiationScore
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(message string) error {
	if !s.config.Enabled {
		return nil
	}

	if s.config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}

	if s.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyHighLeverage sends a deal alert for a unit whose negotiation score
// cleared the configured threshold.
func (s *Service) NotifyHighLeverage(mi *models.MarketIntelligence, strategy *models.NegotiationStrategy) error {
	if !s.config.Enabled {
		return nil
	}
	if mi == nil || strategy == nil {
		return errors.New("missing intelligence or strategy for alert")
	}
	if strategy.Score < s.config.MinNegotiationScore {
		return nil
	}

	var savings string
	if mi.EffectiveRent < mi.CurrentRent {
		savings = fmt.Sprintf("\n💸 Effective rent $%.0f/mo after concessions", mi.EffectiveRent)
	}

	var leverage string
	if len(strategy.LeveragePoints) > 0 {
		points := strategy.LeveragePoints
		if len(points) > 3 {
			points = points[:3]
		}
		leverage = "\n\n🎯 " + strings.Join(points, "\n🎯 ")
	}

	message := fmt.Sprintf(
		"<b>High-Leverage Listing Found!</b>\n\n"+
			"🏠 %s %s\n"+
			"📍 %s\n"+
			"💰 $%.0f/mo\n"+
			"🛏️ %d bd / %.1f ba, %d sqft\n"+
			"📅 %d days on market\n"+
			"📊 Negotiation score: %d/10 (%s)%s%s\n\n"+
			"⏰ %s",
		mi.PropertyName,
		mi.UnitNumber,
		mi.Address,
		mi.CurrentRent,
		mi.Bedrooms,
		mi.Bathrooms,
		mi.SquareFeet,
		mi.DaysOnMarket,
		strategy.Score,
		strategy.Potential,
		savings,
		leverage,
		strategy.OptimalTiming,
	)

	if err := s.SendMessage(message); err != nil {
		s.logger.WithError(err).WithField("unit_id", mi.UnitID).Error("Failed to send deal alert")
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"unit_id": mi.UnitID,
		"score":   strategy.Score,
	}).Info("Sent deal alert")
	return nil
}

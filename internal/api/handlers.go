package api

import (
	"database/sql"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"apartmentiq/server/internal/alerts"
	"apartmentiq/server/internal/database"
	"apartmentiq/server/internal/engine"
	"apartmentiq/server/internal/geo"
	"apartmentiq/server/internal/intel"
	"apartmentiq/server/internal/models"
	"apartmentiq/server/internal/queue"
)

type Handler struct {
	db           *database.Database
	logger       *logrus.Logger
	engine       *engine.Engine
	listingQueue *queue.ListingQueue
	alertService *alerts.Service
	scripts      intel.ScriptGenerator
}

func NewHandler(db *database.Database, eng *engine.Engine, listingQueue *queue.ListingQueue, alertService *alerts.Service, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:           db,
		logger:       logger,
		engine:       eng,
		listingQueue: listingQueue,
		alertService: alertService,
		scripts:      intel.NewTemplateScripts(),
	}
}

// GetRecommendations returns the ranked unit list for a user. Preferences are
// loaded from storage; an unknown user gets unconstrained ranking.
func (h *Handler) GetRecommendations(c *gin.Context) {
	userID := c.DefaultQuery("user_id", "default")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	prefs, err := h.db.GetPreferences(userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load preferences, ranking unconstrained")
		prefs = nil
	}

	candidates, err := h.db.GetCandidates(prefs, 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load candidates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load candidates"})
		return
	}

	// Commute filtering happens here rather than in SQL so the distance
	// math stays in one place.
	if prefs != nil && prefs.MaxCommuteMinutes != nil {
		filtered := candidates[:0]
		for _, cand := range candidates {
			if geo.WithinCommute(cand.Property, prefs) {
				filtered = append(filtered, cand)
			}
		}
		candidates = filtered
	}

	recommendations, skipped := h.engine.Rank(candidates, prefs, limit)

	if err := h.db.SavePredictions(userID, recommendations, limit); err != nil {
		h.logger.WithError(err).Error("Failed to persist predictions")
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         userID,
		"recommendations": recommendations,
		"skipped_units":   skipped,
	})
}

// GetNegotiationStrategy returns the full negotiation strategy for one unit.
func (h *Handler) GetNegotiationStrategy(c *gin.Context) {
	cand, ctx, ok := h.loadUnitWithContext(c)
	if !ok {
		return
	}

	strategy := h.engine.Scorer().Score(intel.NegotiationInput{
		Unit:    cand.Unit,
		History: cand.History,
		Context: ctx,
	})

	c.JSON(http.StatusOK, gin.H{
		"unit_id":  cand.Unit.ID,
		"strategy": strategy,
	})
}

// GetNegotiationScript renders the negotiation message templates for a unit.
func (h *Handler) GetNegotiationScript(c *gin.Context) {
	cand, ctx, ok := h.loadUnitWithContext(c)
	if !ok {
		return
	}

	strategy := h.engine.Scorer().Score(intel.NegotiationInput{
		Unit:    cand.Unit,
		History: cand.History,
		Context: ctx,
	})

	c.JSON(http.StatusOK, gin.H{
		"unit_id": cand.Unit.ID,
		"score":   strategy.Score,
		"scripts": h.scripts.Generate(strategy, cand.Unit),
	})
}

// GetUnitForecast returns the price, lease, concession and offer forecasts
// for one unit. An optional budget query refines the offer forecast.
func (h *Handler) GetUnitForecast(c *gin.Context) {
	cand, ctx, ok := h.loadUnitWithContext(c)
	if !ok {
		return
	}

	var budget *float64
	if raw := c.Query("budget"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid budget parameter"})
			return
		}
		budget = &parsed
	}

	predictor := h.engine.Predictor()
	c.JSON(http.StatusOK, gin.H{
		"unit_id":    cand.Unit.ID,
		"price":      predictor.PredictPriceChange(cand.Unit, cand.History, ctx, 90),
		"lease":      predictor.PredictDaysToLease(cand.Unit, ctx),
		"concession": predictor.PredictConcessionProbability(cand.Unit, ctx),
		"offer":      predictor.OptimalOfferPrice(cand.Unit, ctx, budget),
	})
}

// GetMarketContext returns the aggregate market snapshot over the available
// inventory.
func (h *Handler) GetMarketContext(c *gin.Context) {
	candidates, err := h.db.GetCandidates(nil, 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load candidates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load candidates"})
		return
	}

	c.JSON(http.StatusOK, h.engine.BuildMarketContext(candidates))
}

// GetPreferences returns the stored preferences for a user.
func (h *Handler) GetPreferences(c *gin.Context) {
	userID := c.Param("user_id")

	prefs, err := h.db.GetPreferences(userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load preferences"})
		return
	}
	if prefs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No preferences stored for user"})
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// SavePreferences stores the preferences for a user.
func (h *Handler) SavePreferences(c *gin.Context) {
	userID := c.Param("user_id")

	var prefs models.UserPreference
	if err := c.ShouldBindJSON(&prefs); err != nil {
		h.logger.WithError(err).Error("Invalid preferences payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid preferences payload"})
		return
	}
	prefs.UserID = userID

	if err := h.db.SavePreferences(&prefs); err != nil {
		h.logger.WithError(err).Error("Failed to save preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save preferences"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Preferences saved"})
}

// IngestListings accepts a batch of listing snapshots and queues it for the
// batch processor. The request returns as soon as the batch is queued.
func (h *Handler) IngestListings(c *gin.Context) {
	var batch []models.ListingSnapshot
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.logger.WithError(err).Error("Invalid listings payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listings payload"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty listings batch"})
		return
	}

	for i := range batch {
		if batch[i].UnitID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Every listing needs a unit_id"})
			return
		}
	}

	if err := h.listingQueue.Push(batch); err != nil {
		h.logger.WithError(err).Error("Failed to queue listings batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingest queue unavailable, retry later"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "queued",
		"listings": len(batch),
	})
}

// GetPriceHistory returns the recorded asking prices for a unit, newest
// first.
func (h *Handler) GetPriceHistory(c *gin.Context) {
	unitID := c.Param("id")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	history, err := h.db.GetPriceHistory(unitID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load price history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load price history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"unit_id": unitID,
		"history": history,
	})
}

// TestAlert sends a test message through the configured alert channel.
func (h *Handler) TestAlert(c *gin.Context) {
	message := "🔔 Test notification from ApartmentIQ\n\nIf you see this message, your alert configuration is working correctly!"
	if err := h.alertService.SendMessage(message); err != nil {
		h.logger.WithError(err).Error("Failed to send test alert")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Test notification sent successfully"})
}

// loadUnitWithContext fetches one unit plus the market context built over the
// current available inventory. It writes the error response itself.
func (h *Handler) loadUnitWithContext(c *gin.Context) (*models.Candidate, *models.MarketContext, bool) {
	unitID := c.Param("id")

	cand, err := h.db.GetCandidate(unitID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		return nil, nil, false
	}
	if err != nil {
		h.logger.WithError(err).WithField("unit_id", unitID).Error("Failed to load unit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load unit"})
		return nil, nil, false
	}
	if cand == nil || cand.Unit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		return nil, nil, false
	}

	candidates, err := h.db.GetCandidates(nil, 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load candidates for market context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build market context"})
		return nil, nil, false
	}

	return cand, h.engine.BuildMarketContext(candidates), true
}

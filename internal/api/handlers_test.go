package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/alerts"
	"apartmentiq/server/internal/database"
	"apartmentiq/server/internal/engine"
	"apartmentiq/server/internal/models"
	"apartmentiq/server/internal/queue"
)

func setupTestAPI(t *testing.T) (*gin.Engine, *database.Database, *queue.ListingQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	require.NoError(t, env.Parse(cfg))
	require.NoError(t, cfg.Scoring.Validate())

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	listingQueue := queue.NewListingQueue(10, logger)
	alertService := alerts.NewService(logger, alerts.Config{Enabled: false, MinNegotiationScore: 8})
	eng := engine.NewEngine(cfg, logger)

	router := gin.New()
	handler := NewHandler(db, eng, listingQueue, alertService, logger)
	SetupRoutes(router, handler)

	return router, db, listingQueue
}

func seedInventory(t *testing.T, db *database.Database) {
	t.Helper()
	_, err := db.GetDB().Exec(`
        INSERT INTO properties (id, name, address, city, state, zip_code, amenities, is_active)
        VALUES ('p1', 'The Grand', '100 Main St', 'Austin', 'TX', '78701', '["pool","gym"]', 1)
    `)
	require.NoError(t, err)

	units := []struct {
		id    string
		price float64
		dom   int
	}{
		{"u1", 1800, 45},
		{"u2", 2400, 5},
		{"u3", 2100, 20},
	}
	for _, u := range units {
		_, err := db.GetDB().Exec(`
            INSERT INTO units (id, property_id, property_name, unit_number, bedrooms,
                               bathrooms, current_price, is_available, days_on_market, first_seen)
            VALUES (?, 'p1', 'The Grand', '101', 1, 1.0, ?, 1, ?, ?)
        `, u.id, u.price, u.dom, time.Now().AddDate(0, 0, -u.dom).Format(time.RFC3339))
		require.NoError(t, err)
	}
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetRecommendations(t *testing.T) {
	router, db, _ := setupTestAPI(t)
	seedInventory(t, db)

	w := doRequest(router, http.MethodGet, "/api/recommendations?user_id=renter1&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UserID          string                  `json:"user_id"`
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "renter1", resp.UserID)
	require.Len(t, resp.Recommendations, 2)
	assert.GreaterOrEqual(t, resp.Recommendations[0].TotalScore, resp.Recommendations[1].TotalScore)

	// The pass persisted its snapshot
	var count int
	require.NoError(t, db.GetDB().QueryRow(
		`SELECT COUNT(*) FROM predictions WHERE user_id = 'renter1'`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestGetNegotiationStrategy(t *testing.T) {
	router, db, _ := setupTestAPI(t)
	seedInventory(t, db)

	w := doRequest(router, http.MethodGet, "/api/units/u1/negotiation", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UnitID   string                     `json:"unit_id"`
		Strategy models.NegotiationStrategy `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.UnitID)
	assert.GreaterOrEqual(t, resp.Strategy.Score, 1)
	assert.LessOrEqual(t, resp.Strategy.Score, 10)
	assert.NotEmpty(t, resp.Strategy.Tactics)

	w = doRequest(router, http.MethodGet, "/api/units/missing/negotiation", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUnitForecast(t *testing.T) {
	router, db, _ := setupTestAPI(t)
	seedInventory(t, db)

	w := doRequest(router, http.MethodGet, "/api/units/u1/forecast?budget=1700", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Offer models.OfferForecast `json:"offer"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1800.0, resp.Offer.CurrentAsking)
	assert.LessOrEqual(t, resp.Offer.ConservativeOffer, 1700.0)

	w = doRequest(router, http.MethodGet, "/api/units/u1/forecast?budget=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNegotiationScript(t *testing.T) {
	router, db, _ := setupTestAPI(t)
	seedInventory(t, db)

	w := doRequest(router, http.MethodGet, "/api/units/u1/script", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Scripts map[string]string `json:"scripts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	for _, key := range []string{"opening", "offer", "concession_request", "closing"} {
		assert.NotEmpty(t, resp.Scripts[key])
	}
}

func TestGetMarketContext(t *testing.T) {
	router, db, _ := setupTestAPI(t)
	seedInventory(t, db)

	w := doRequest(router, http.MethodGet, "/api/market/context", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ctx models.MarketContext
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ctx))
	assert.InDelta(t, 2100.0, ctx.Stats.AvgRent, 0.001)
	assert.Contains(t, ctx.PropertyStats, "The Grand")
}

func TestPreferencesEndpoints(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	w := doRequest(router, http.MethodGet, "/api/preferences/renter1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	maxPrice := 2200.0
	payload := models.UserPreference{MaxPrice: &maxPrice, PreferredCities: []string{"Austin"}}
	w = doRequest(router, http.MethodPut, "/api/preferences/renter1", payload)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/preferences/renter1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var loaded models.UserPreference
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.Equal(t, "renter1", loaded.UserID)
	assert.Equal(t, 2200.0, *loaded.MaxPrice)
}

func TestIngestListings(t *testing.T) {
	router, _, listingQueue := setupTestAPI(t)

	batch := []models.ListingSnapshot{
		{UnitID: "u9", PropertyID: "p1", PropertyName: "The Grand", CurrentPrice: 1950, ScrapedAt: time.Now()},
	}
	w := doRequest(router, http.MethodPost, "/api/listings", batch)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, listingQueue.Len())

	t.Run("empty batch is rejected", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/listings", []models.ListingSnapshot{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing unit id is rejected", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/listings", []models.ListingSnapshot{{CurrentPrice: 100}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTestAlert_Misconfigured(t *testing.T) {
	router, _, _ := setupTestAPI(t)

	// Alerts are disabled in the test setup, so the send is a silent no-op
	w := doRequest(router, http.MethodPost, "/api/alerts/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

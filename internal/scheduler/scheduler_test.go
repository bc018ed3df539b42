package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/alerts"
	"apartmentiq/server/internal/database"
	"apartmentiq/server/internal/engine"
)

func setupScheduler(t *testing.T) (*Scheduler, *database.Database) {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, env.Parse(cfg))
	require.NoError(t, cfg.Scoring.Validate())
	cfg.Scheduler.RunOnStartup = false

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "sched_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	eng := engine.NewEngine(cfg, logger)
	alertService := alerts.NewService(logger, alerts.Config{Enabled: false, MinNegotiationScore: 8})

	return NewScheduler(db, eng, alertService, cfg, logger), db
}

func TestScheduler_RescorePass_EmptyInventory(t *testing.T) {
	sched, _ := setupScheduler(t)
	assert.NoError(t, sched.runRescorePass())
}

func TestScheduler_RescorePass_RefreshesAndScores(t *testing.T) {
	sched, db := setupScheduler(t)

	_, err := db.GetDB().Exec(`
        INSERT INTO properties (id, name, address, city, state, zip_code, is_active)
        VALUES ('p1', 'The Grand', '100 Main St', 'Austin', 'TX', '78701', 1)
    `)
	require.NoError(t, err)
	_, err = db.GetDB().Exec(`
        INSERT INTO units (id, property_id, property_name, unit_number, bedrooms,
                           bathrooms, current_price, is_available, days_on_market, first_seen)
        VALUES ('u1', 'p1', 'The Grand', '101', 1, 1.0, 1800, 1, 0, ?)
    `, time.Now().AddDate(0, 0, -50).Format(time.RFC3339))
	require.NoError(t, err)

	require.NoError(t, sched.runRescorePass())

	var days int
	require.NoError(t, db.GetDB().QueryRow(
		`SELECT days_on_market FROM units WHERE id = 'u1'`).Scan(&days))
	assert.InDelta(t, 50, days, 1)
}

func TestScheduler_StartStop(t *testing.T) {
	sched, _ := setupScheduler(t)

	sched.Start()
	time.Sleep(50 * time.Millisecond)
	sched.Stop()
}

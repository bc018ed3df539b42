package scheduler

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/alerts"
	"apartmentiq/server/internal/database"
	"apartmentiq/server/internal/engine"
	"apartmentiq/server/internal/intel"
)

// Scheduler runs the periodic rescore pass: it refreshes days-on-market
// counters, rescores the available inventory and fires deal alerts for units
// whose negotiation leverage cleared the alert threshold.
type Scheduler struct {
	db       *database.Database
	engine   *engine.Engine
	alerts   *alerts.Service
	logger   *logrus.Logger
	config   *config.Config
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution

	// unit id -> last alerted score, so a stable score never re-alerts
	alerted     map[string]int
	alertedLock sync.Mutex
}

// NewScheduler creates a new scheduler
func NewScheduler(db *database.Database, eng *engine.Engine, alertSvc *alerts.Service, cfg *config.Config, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		db:       db,
		engine:   eng,
		alerts:   alertSvc,
		logger:   logger,
		config:   cfg,
		stopChan: make(chan struct{}),
		alerted:  make(map[string]int),
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// runScheduler handles all scheduled tasks
func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	if s.config.Scheduler.RunOnStartup {
		go func() {
			s.jobMutex.Lock()
			defer s.jobMutex.Unlock()
			s.logger.Info("Running startup rescore pass")
			if err := s.runRescorePass(); err != nil {
				s.logger.WithError(err).Error("Startup rescore pass failed")
			}
			s.logger.Info("Startup rescore pass completed")
		}()
	}

	interval := time.Duration(s.config.Scheduler.RescoreIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.jobMutex.Lock()
			s.logger.Info("Starting scheduled rescore pass")
			if err := s.runRescorePass(); err != nil {
				s.logger.WithError(err).Error("Scheduled rescore pass failed")
			}
			s.logger.Info("Completed scheduled rescore pass")
			s.jobMutex.Unlock()
		}
	}
}

// runRescorePass refreshes market counters, rescores the full inventory and
// dispatches alerts for high-leverage units.
func (s *Scheduler) runRescorePass() error {
	updated, err := s.db.RefreshDaysOnMarket()
	if err != nil {
		return fmt.Errorf("failed to refresh days on market: %w", err)
	}
	s.logger.WithField("units_updated", updated).Debug("Refreshed days on market")

	candidates, err := s.db.GetCandidates(nil, 0)
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(candidates) == 0 {
		s.logger.Info("No available units to rescore")
		return nil
	}

	ctx := s.engine.BuildMarketContext(candidates)
	scorer := s.engine.Scorer()

	alertsSent := 0
	for _, cand := range candidates {
		mi, err := s.engine.ScoreUnit(cand, ctx)
		if err != nil {
			s.logger.WithError(err).Debug("Skipping unit during rescore")
			continue
		}

		strategy := scorer.Score(intel.NegotiationInput{
			Unit:    cand.Unit,
			History: cand.History,
			Context: ctx,
		})
		if strategy.Score < s.alerts.MinScore() {
			continue
		}

		s.alertedLock.Lock()
		last, seen := s.alerted[mi.UnitID]
		if seen && last >= strategy.Score {
			s.alertedLock.Unlock()
			continue
		}
		s.alerted[mi.UnitID] = strategy.Score
		s.alertedLock.Unlock()

		if err := s.alerts.NotifyHighLeverage(mi, &strategy); err != nil {
			s.logger.WithError(err).WithField("unit_id", mi.UnitID).Error("Deal alert delivery failed")
			continue
		}
		alertsSent++
	}

	s.logger.WithFields(logrus.Fields{
		"candidates":  len(candidates),
		"alerts_sent": alertsSent,
	}).Info("Rescore pass finished")
	return nil
}

package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/models"
	"apartmentiq/server/internal/queue"
)

// BatchProcessor persists listing snapshot batches coming off the ingest
// queue: it upserts the unit rows and appends a price history entry whenever
// a unit's asking price moved.
type BatchProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.ListingQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db *gorm.DB, queue *queue.ListingQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing batches from the queue
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}
}

// Stop gracefully shuts down the processor
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

// processLoop handles the continuous processing of batches
func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	p.queue.Subscribe(func(batch []models.ListingSnapshot) error {
		return p.ProcessBatch(batch)
	})
}

// ProcessBatch persists a single batch with transaction and retry logic.
func (p *BatchProcessor) ProcessBatch(batch []models.ListingSnapshot) error {
	if len(batch) == 0 {
		return nil
	}

	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := p.recordPriceChanges(tx, batch); err != nil {
				return fmt.Errorf("failed to record price changes: %w", err)
			}
			if err := upsertListings(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert listings batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully processed batch of %d listings", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}

// recordPriceChanges appends a price_history row for every unit whose stored
// price differs from the incoming snapshot. New units get their first entry.
func (p *BatchProcessor) recordPriceChanges(tx *gorm.DB, batch []models.ListingSnapshot) error {
	ids := make([]string, 0, len(batch))
	for _, snap := range batch {
		ids = append(ids, snap.UnitID)
	}

	var existing []struct {
		ID           string
		CurrentPrice float64
	}
	if err := tx.Table("units").Select("id, current_price").Where("id IN ?", ids).Find(&existing).Error; err != nil {
		return err
	}
	known := make(map[string]float64, len(existing))
	for _, row := range existing {
		known[row.ID] = row.CurrentPrice
	}

	now := time.Now().UTC()
	for _, snap := range batch {
		if snap.CurrentPrice <= 0 {
			continue
		}
		prev, seen := known[snap.UnitID]
		if seen && prev == snap.CurrentPrice {
			continue
		}
		entry := map[string]interface{}{
			"unit_id":     snap.UnitID,
			"price":       snap.CurrentPrice,
			"recorded_at": now,
		}
		if err := tx.Table("price_history").Create(entry).Error; err != nil {
			return err
		}
	}
	return nil
}

// upsertListings inserts or refreshes the unit rows. first_seen survives the
// update so days-on-market keeps counting from the first sighting.
func upsertListings(tx *gorm.DB, batch []models.ListingSnapshot) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"property_id", "property_name", "unit_number",
			"bedrooms", "bathrooms", "square_feet",
			"current_price", "concessions", "special_offers",
			"is_available", "available_date", "last_seen", "scraped_at",
		}),
	}).CreateInBatches(batch, 100).Error
}

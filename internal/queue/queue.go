package queue

import (
	"apartmentiq/server/internal/models"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Stats is a point-in-time snapshot of the queue's activity counters since
// startup. Dropped batches are the caller's to retry.
type Stats struct {
	BatchesQueued    int64 `json:"batches_queued"`
	ListingsQueued   int64 `json:"listings_queued"`
	BatchesDropped   int64 `json:"batches_dropped"`
	BatchesDelivered int64 `json:"batches_delivered"`
}

// ListingQueue represents an in-memory queue for listing snapshot batches
type ListingQueue struct {
	items    chan []models.ListingSnapshot
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func([]models.ListingSnapshot) error

	batchesQueued    atomic.Int64
	listingsQueued   atomic.Int64
	batchesDropped   atomic.Int64
	batchesDelivered atomic.Int64
}

// NewListingQueue creates a new listing queue with the specified buffer size
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	return &ListingQueue{
		items:    make(chan []models.ListingSnapshot, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]models.ListingSnapshot) error, 0),
	}
}

// Push adds a batch of listing snapshots to the queue
func (q *ListingQueue) Push(listings []models.ListingSnapshot) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- listings:
		q.batchesQueued.Add(1)
		q.listingsQueued.Add(int64(len(listings)))
		q.logger.WithField("batch_size", len(listings)).Debug("Pushed batch to queue")
		return nil
	default:
		dropped := q.batchesDropped.Add(1)
		q.logger.WithFields(logrus.Fields{
			"batch_size":    len(listings),
			"total_dropped": dropped,
		}).Warn("Queue full, dropping batch")
		return ErrQueueFull
	}
}

// Snapshot returns the current activity counters.
func (q *ListingQueue) Snapshot() Stats {
	return Stats{
		BatchesQueued:    q.batchesQueued.Load(),
		ListingsQueued:   q.listingsQueued.Load(),
		BatchesDropped:   q.batchesDropped.Load(),
		BatchesDelivered: q.batchesDelivered.Load(),
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *ListingQueue) Subscribe(handler func([]models.ListingSnapshot) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *ListingQueue) Start() {
	go q.process()
}

// process handles the queue processing loop
func (q *ListingQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.processBatch(batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *ListingQueue) processBatch(batch []models.ListingSnapshot) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
	q.batchesDelivered.Add(1)
}

// Close stops the queue and prevents new items from being added
func (q *ListingQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the current number of batches in the queue
func (q *ListingQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

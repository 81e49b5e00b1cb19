// Package worker delivers mood events in the background.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

const defaultPublishTimeout = 5 * time.Second

// Pool manages background workers that publish MoodCreated events.
type Pool struct {
	publisher ports.EventPublisher
	logger    *slog.Logger
	workers   int
	timeout   time.Duration

	jobs     chan domain.MoodCreated
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPool creates a worker pool with the given worker count and queue size.
func NewPool(publisher ports.EventPublisher, workers int, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		publisher: publisher,
		logger:    logger,
		workers:   workers,
		timeout:   defaultPublishTimeout,
		jobs:      make(chan domain.MoodCreated, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for event := range p.jobs {
				p.process(event)
			}
		}()
	}
}

// Stop closes the queue and waits for queued events to drain.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

// Submit queues an event without blocking. Events are dropped when the queue is full.
func (p *Pool) Submit(event domain.MoodCreated) {
	select {
	case p.jobs <- event:
	default:
		p.logger.Warn("worker: queue full, dropping event", "mood_id", event.MoodID)
	}
}

func (p *Pool) process(event domain.MoodCreated) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.publisher.PublishMoodCreated(ctx, event); err != nil {
		p.logger.Warn("worker: failed to publish event", "mood_id", event.MoodID, "error", err)
		return
	}
	p.logger.Debug("worker: event published", "mood_id", event.MoodID)
}

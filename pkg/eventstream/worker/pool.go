// Package worker provides an asynchronous worker pool that publishes change
// events through a downstream eventstream.Publisher.
//
// The pool decouples event delivery from the tool-call hot path so a slow or
// unreachable event stream never delays a database operation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/opshelm/worklog/pkg/eventstream"
)

var (
	defaultNumWorkers uint = 3
	defaultQueueSize  uint = 256
)

// ErrQueueFull indicates the event queue was full and the event was dropped.
var ErrQueueFull = errors.New("event queue full, event dropped")

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher is the downstream publisher events are delivered to. Required.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// Logger is the provided logger.
	Logger *slog.Logger
}

// Pool delivers change events asynchronously via a worker pool. It
// implements eventstream.Publisher itself so it can stand in wherever a
// synchronous publisher would be wired.
type Pool struct {
	config *Config
	queue  chan *eventstream.ChangeEvent
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan *eventstream.ChangeEvent, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// PublishChange enqueues an event for asynchronous delivery. It never
// blocks: when the queue is full the event is dropped and ErrQueueFull is
// returned so the caller can log the loss.
func (p *Pool) PublishChange(_ context.Context, event *eventstream.ChangeEvent) error {
	if event == nil {
		return eventstream.ErrNilChangeEvent
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_type", event.EventType,
			"table", event.Table,
		)
		return nil
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_type", event.EventType,
			"table", event.Table,
		)
		return ErrQueueFull
	}
}

// Close signals workers to stop, waits for in-flight events to drain, and
// closes the downstream publisher. Call this during graceful shutdown after
// the tool surface has stopped accepting calls.
func (p *Pool) Close() error {
	close(p.queue)
	p.wg.Wait()

	return p.config.Publisher.Close()
}

// worker is the inner worker goroutine that continuously pulls events off
// the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for event := range p.queue {
		// Detached from the tool-call context on purpose: delivery outlives
		// the request that produced the event.
		if err := p.config.Publisher.PublishChange(context.Background(), event); err != nil {
			p.logger.Error("async event delivery failed",
				"event_type", event.EventType,
				"event_id", event.EventID,
				"error", err,
			)
			continue
		}

		p.logger.Info("change event delivered",
			"event_type", event.EventType,
			"table", event.Table,
		)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/tabulate/internal/tabulate/entity"
)

type Handler interface {
	Handle(ctx context.Context, event entity.ResultEvent) error
}

const defaultDedupeWindow = 10 * time.Minute

type ConsumerConfig struct {
	Workers     int
	MaxRetries  int
	BaseBackoff time.Duration
	// DedupeWindow is how long an event id is remembered. Defaults to 10m.
	DedupeWindow time.Duration
}

// Consumer drains the bus with a fixed set of workers. Each event is handled
// at most once per event id within the dedupe window; failures are retried
// with exponential backoff.
type Consumer struct {
	bus         *Bus
	handler     Handler
	workers     int
	maxRetries  int
	baseBackoff time.Duration
	seen        *dedupe
	wg          sync.WaitGroup
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewConsumer(bus *Bus, handler Handler, cfg ConsumerConfig) *Consumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	window := cfg.DedupeWindow
	if window <= 0 {
		window = defaultDedupeWindow
	}

	return &Consumer{
		bus:         bus,
		handler:     handler,
		workers:     workers,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		seen:        newDedupe(window),
		stop:        make(chan struct{}),
	}
}

func (c *Consumer) Start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the bus, lets workers drain what is left and waits for them,
// or gives up pending retries once ctx is done.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.stopOnce.Do(func() { close(c.stop) })
		return ctx.Err()
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()

	for event := range c.bus.Subscribe() {
		c.processEvent(event)
	}
}

func (c *Consumer) processEvent(event entity.ResultEvent) {
	if c.handler == nil {
		return
	}

	if event.EventID != "" {
		if !c.seen.first(event.EventID) {
			slog.Info("skip duplicate result event", "event_id", event.EventID, "result_id", event.ResultID)
			return
		}
	}

	backoff := c.baseBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := c.handler.Handle(context.Background(), event)
		if err == nil {
			return
		}

		if attempt == c.maxRetries {
			slog.Error("failed to handle result event after retries", "event_id", event.EventID, "result_id", event.ResultID, "error", err)
			return
		}

		if !c.sleep(backoff) {
			return
		}
		backoff *= 2
	}
}

func (c *Consumer) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.stop:
		return false
	}
}

// dedupe remembers event ids for a fixed window. Expired ids are evicted on
// every lookup so the set only holds ids seen within the window.
type dedupe struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	ids    map[string]time.Time
}

func newDedupe(window time.Duration) *dedupe {
	return &dedupe{
		window: window,
		now:    time.Now,
		ids:    make(map[string]time.Time),
	}
}

// first reports whether id has not been seen within the window, and records it.
func (d *dedupe) first(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, at := range d.ids {
		if now.Sub(at) >= d.window {
			delete(d.ids, k)
		}
	}

	if _, ok := d.ids[id]; ok {
		return false
	}
	d.ids[id] = now

	return true
}

func (d *dedupe) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.ids)
}

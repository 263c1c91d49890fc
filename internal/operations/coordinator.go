package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitsmart/internal/logging"
)

// Coordinator counts remote mutating operations in flight. It takes no git
// lock; it only lets other components see and wait out remote work.
type Coordinator struct {
	logger *slog.Logger

	mu      sync.Mutex
	count   int
	current string
	idle    chan struct{}
}

// Token is the handle for one in-flight operation
type Token struct {
	ID    string
	Label string

	coordinator *Coordinator
	once        sync.Once
	started     time.Time
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(logger *slog.Logger) *Coordinator {
	idle := make(chan struct{})
	close(idle)
	return &Coordinator{
		idle:   idle,
		logger: logging.OrDiscard(logger),
	}
}

// Begin records the start of an operation. The token must be released on
// every path, normally with defer; Do does this for you.
func (c *Coordinator) Begin(label string) *Token {
	tok := &Token{
		ID:          uuid.New().String(),
		Label:       label,
		coordinator: c,
		started:     time.Now(),
	}

	c.mu.Lock()
	if c.count == 0 {
		c.idle = make(chan struct{})
	}
	c.count++
	c.current = label
	count := c.count
	c.mu.Unlock()

	c.logger.Debug("Operation started", "operation", label, "id", tok.ID, "in_flight", count)
	return tok
}

// End releases tok. Releasing a token twice is a no-op.
func (c *Coordinator) End(tok *Token) {
	if tok == nil {
		return
	}
	tok.Release()
}

// Release ends the operation. Only the first call has an effect.
func (t *Token) Release() {
	t.once.Do(func() {
		t.coordinator.release(t)
	})
}

func (c *Coordinator) release(tok *Token) {
	c.mu.Lock()
	c.count--
	count := c.count
	if count == 0 {
		c.current = ""
		close(c.idle)
	}
	c.mu.Unlock()

	c.logger.Debug("Operation finished",
		"operation", tok.Label,
		"id", tok.ID,
		"duration", time.Since(tok.started),
		"in_flight", count)
}

// Do runs fn as a tracked operation. The token is released even if fn panics.
func (c *Coordinator) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	tok := c.Begin(label)
	defer tok.Release()
	return fn(ctx)
}

// InProgress reports whether any operation is in flight
func (c *Coordinator) InProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count > 0
}

// Count returns the number of operations in flight
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Current returns the label of the most recently started operation still
// considered in flight. It is diagnostic only when more than one is running.
func (c *Coordinator) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AwaitQuiescence blocks until no operation is in flight, timeout elapses or
// ctx is done. It reports whether quiescence was reached.
func (c *Coordinator) AwaitQuiescence(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		if c.count == 0 {
			c.mu.Unlock()
			return true
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
			// Another Begin may have slipped in; check again
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

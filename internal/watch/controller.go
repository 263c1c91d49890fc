package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gitsmart/internal/logging"
)

// ErrControllerClosed is returned when starting a controller that was already stopped
var ErrControllerClosed = errors.New("refresh controller is stopped")

// Defaults for Options fields left at zero
const (
	DefaultDetectTimeout = 10 * time.Second
	DefaultInterval      = time.Second
	DefaultStopTimeout   = 2 * time.Second
)

// Interrupter aborts whatever prompt is currently blocking the interactive loop
type Interrupter interface {
	Interrupt() error
}

// Gate reports remote work in flight. Polls are skipped while it is busy so the
// watcher never diffs a tree another caller is halfway through mutating.
type Gate interface {
	InProgress() bool
}

// State is the lifecycle state of a Controller
type State int

const (
	StateNew State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Controller
type Options struct {
	DetectTimeout time.Duration
	Gate          Gate
	Interval      time.Duration
	Logger        *slog.Logger
	StopTimeout   time.Duration
}

// Controller polls a Detector in the background and signals the interactive
// loop when the repository changes. Suspension mutes signalling without
// stopping the poll loop.
type Controller struct {
	detector    *Detector
	interrupter Interrupter
	logger      *slog.Logger
	opts        Options
	pending     *PendingRefresh

	// pollMu keeps a poll and the release of the last suspension from interleaving
	pollMu sync.Mutex

	mu       sync.Mutex
	done     chan struct{}
	epoch    uint64 // bumped on every suspend and release
	state    State
	stopCh   chan struct{}
	suspends int
}

// NewController wires a detector to the pending flag and the interrupter
func NewController(detector *Detector, pending *PendingRefresh, interrupter Interrupter, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	return &Controller{
		detector:    detector,
		interrupter: interrupter,
		logger:      logging.OrDiscard(opts.Logger),
		opts:        opts,
		pending:     pending,
	}
}

// Start launches the poll loop. It is a no-op while running and fails once stopped.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRunning:
		return nil
	case StateStopped:
		return ErrControllerClosed
	}

	c.detector.Reset()
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	c.state = StateRunning
	go c.loop(c.stopCh, c.done)

	c.logger.Info("Refresh controller started", "interval", c.opts.Interval)
	return nil
}

// Stop ends the poll loop and waits up to the stop timeout for it to exit.
// It is idempotent. The result reports whether the loop is known to have exited.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	prev := c.state
	c.state = StateStopped
	done := c.done
	if prev == StateRunning {
		close(c.stopCh)
	}
	c.mu.Unlock()

	if done == nil {
		return true
	}

	timer := time.NewTimer(c.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		if prev == StateRunning {
			c.logger.Info("Refresh controller stopped")
		}
		return true
	case <-timer.C:
		c.logger.Warn("Refresh controller did not exit in time", "timeout", c.opts.StopTimeout)
		return false
	}
}

// Suspend mutes change signalling until the returned resume func is called.
// Suspensions nest. Releasing the last one records the current snapshot as the
// baseline before unmuting, so the caller's own edits are not signalled while
// any change made after the release is. Calling resume more than once is a no-op.
func (c *Controller) Suspend() (resume func()) {
	c.mu.Lock()
	c.suspends++
	c.epoch++
	depth := c.suspends
	c.mu.Unlock()
	c.logger.Debug("Refresh controller suspended", "depth", depth)

	var once sync.Once
	return func() {
		once.Do(c.release)
	}
}

func (c *Controller) release() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	c.mu.Lock()
	last := c.suspends == 1 && c.state == StateRunning
	c.mu.Unlock()

	// With a remote operation in flight the baseline is left alone, so its
	// changes are still signalled once the next poll sees them.
	if last && (c.opts.Gate == nil || !c.opts.Gate.InProgress()) {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.DetectTimeout)
		c.detector.Detect(ctx)
		cancel()
	}

	c.mu.Lock()
	c.suspends--
	c.epoch++
	depth := c.suspends
	c.mu.Unlock()
	c.logger.Debug("Refresh controller resumed", "depth", depth)
}

// Running reports whether the controller is polling and not suspended
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateRunning && c.suspends == 0
}

// Suspended reports whether at least one suspension is held
func (c *Controller) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspends > 0
}

// Pending returns the flag the controller sets when it detects a change
func (c *Controller) Pending() *PendingRefresh {
	return c.pending
}

// State returns the lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) loop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// Baseline right away so edits made before the first tick are seen
	c.poll()

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *Controller) poll() {
	if c.opts.Gate != nil && c.opts.Gate.InProgress() {
		c.logger.Debug("Skipping poll while a remote operation is in progress")
		return
	}

	if !c.detectAndMark() {
		return
	}

	if c.interrupter == nil {
		return
	}
	if err := c.interrupter.Interrupt(); err != nil {
		c.logger.Warn("Failed to interrupt prompt", "error", err)
	}
}

// detectAndMark runs one detection and sets the pending flag when the change
// should be signalled. A suspension held at any point during the detection
// mutes it, as does stop.
func (c *Controller) detectAndMark() bool {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DetectTimeout)
	defer cancel()
	if _, changed := c.detector.Detect(ctx); !changed {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning || c.suspends > 0 || c.epoch != epoch {
		c.logger.Debug("Change detected while muted, not signalling")
		return false
	}
	c.pending.Set()
	return true
}

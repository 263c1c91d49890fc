package prompt

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"gitsmart/internal/logging"
)

// Gate reports whether interrupts may currently be delivered
type Gate interface {
	Running() bool
}

// Bridge lets other goroutines abort the prompt currently blocking the
// interactive loop. Each prompt runs under its own cancellable context; an
// interrupt cancels it with ErrRefreshRequested, a SIGINT with ErrUserCancelled.
type Bridge struct {
	logger *slog.Logger

	mu            sync.Mutex
	active        context.CancelCauseFunc
	closed        bool
	gate          Gate
	missedCancel  bool
	missedRefresh bool

	installOnce sync.Once
	signals     chan os.Signal
	stop        chan struct{}
}

// NewBridge creates a bridge with no gate. Until SetGate is called Interrupt is a no-op.
func NewBridge(logger *slog.Logger) *Bridge {
	return &Bridge{
		logger: logging.OrDiscard(logger),
		stop:   make(chan struct{}),
	}
}

// SetGate sets the predicate checked before every interrupt
func (b *Bridge) SetGate(gate Gate) {
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()
}

// Install routes SIGINT into user cancellation of the active prompt.
// It is safe to call more than once.
func (b *Bridge) Install() {
	b.installOnce.Do(func() {
		b.signals = make(chan os.Signal, 1)
		signal.Notify(b.signals, os.Interrupt)
		go b.handleSignals()
		b.logger.Debug("Prompt interrupt bridge installed")
	})
}

func (b *Bridge) handleSignals() {
	for {
		select {
		case <-b.stop:
			return
		case <-b.signals:
			b.logger.Debug("SIGINT received")
			b.Cancel()
		}
	}
}

// Interrupt aborts the active prompt with ErrRefreshRequested. It does nothing
// unless the gate reports running, and the gate is checked again under the lock
// so a suspension that starts concurrently always wins.
func (b *Bridge) Interrupt() error {
	b.mu.Lock()
	gate := b.gate
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return ErrBridgeClosed
	}
	if gate == nil || !gate.Running() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBridgeClosed
	}
	if !b.gate.Running() {
		return nil
	}
	if b.active == nil {
		// Nothing blocking right now; the next prompt starts already interrupted
		b.missedRefresh = true
		return nil
	}
	b.active(ErrRefreshRequested)
	b.logger.Debug("Interrupted active prompt for refresh")
	return nil
}

// Cancel aborts the active prompt as if the user had cancelled it. With no
// prompt active, the next prompt returns UserCancelled immediately.
func (b *Bridge) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.active == nil {
		b.missedCancel = true
		return
	}
	b.active(ErrUserCancelled)
}

// Reset drops a refresh interrupt that arrived while no prompt was showing.
// The interactive loop calls it right before it redraws.
func (b *Bridge) Reset() {
	b.mu.Lock()
	b.missedRefresh = false
	b.mu.Unlock()
}

// Active reports whether a prompt is currently registered
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active != nil
}

// Close stops signal handling and rejects further prompts
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.active != nil {
		b.active(ErrUserCancelled)
	}
	b.mu.Unlock()

	if b.signals != nil {
		signal.Stop(b.signals)
	}
	close(b.stop)
}

// register installs cancel as the active prompt. It returns a non-Completed
// kind when the prompt must not be shown at all.
func (b *Bridge) register(cancel context.CancelCauseFunc) (restore func(), early Kind, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, Completed, ErrBridgeClosed
	}
	if b.missedCancel {
		b.missedCancel = false
		return nil, UserCancelled, nil
	}
	if b.missedRefresh {
		b.missedRefresh = false
		if b.gate != nil && b.gate.Running() {
			return nil, RefreshRequested, nil
		}
	}

	prev := b.active
	b.active = cancel
	return func() {
		b.mu.Lock()
		b.active = prev
		b.mu.Unlock()
	}, Completed, nil
}

// Run executes fn as the active prompt and classifies how it ended.
// Errors other than refresh and user cancellation are returned as-is.
func Run[T any](ctx context.Context, b *Bridge, fn func(ctx context.Context) (T, error)) (Outcome[T], error) {
	promptCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	restore, early, err := b.register(cancel)
	if err != nil {
		return Outcome[T]{}, err
	}
	switch early {
	case RefreshRequested:
		return Refresh[T](), nil
	case UserCancelled:
		return Cancelled[T](), nil
	}

	value, err := func() (T, error) {
		defer restore()
		return fn(promptCtx)
	}()

	// The cancellation cause wins over whatever error the prompt library reported
	switch cause := context.Cause(promptCtx); {
	case errors.Is(cause, ErrRefreshRequested):
		return Refresh[T](), nil
	case errors.Is(cause, ErrUserCancelled):
		return Cancelled[T](), nil
	}

	if err == nil {
		return Done(value), nil
	}
	if ctx.Err() != nil {
		return Outcome[T]{}, context.Cause(ctx)
	}
	if errors.Is(err, ErrUserCancelled) {
		return Cancelled[T](), nil
	}
	return Outcome[T]{}, err
}

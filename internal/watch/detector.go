package watch

import (
	"context"
	"log/slog"
	"sync"

	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
)

// SnapshotSource produces the current staged/unstaged state of a working tree
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// SnapshotSourceFunc adapts a function to SnapshotSource
type SnapshotSourceFunc func(ctx context.Context) (domain.Snapshot, error)

// Snapshot calls f
func (f SnapshotSourceFunc) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	return f(ctx)
}

// Detector compares each new snapshot against the last good one
type Detector struct {
	logger *slog.Logger
	source SnapshotSource

	mu   sync.Mutex
	last *domain.Snapshot
}

// NewDetector creates a detector with no baseline
func NewDetector(source SnapshotSource, logger *slog.Logger) *Detector {
	return &Detector{
		logger: logging.OrDiscard(logger),
		source: source,
	}
}

// Detect takes a snapshot and reports whether it differs from the previous one.
// The first call after construction or Reset only records the baseline.
// Query failures are logged and reported as unchanged; the last good snapshot is kept.
func (d *Detector) Detect(ctx context.Context) (domain.Snapshot, bool) {
	snap, err := d.source.Snapshot(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.logger.Warn("Change detection failed, keeping last snapshot", "error", err)
		if d.last != nil {
			return *d.last, false
		}
		return domain.Snapshot{}, false
	}

	if d.last == nil {
		d.last = &snap
		d.logger.Debug("Recorded baseline snapshot",
			"staged", len(snap.Staged),
			"unstaged", len(snap.Unstaged))
		return snap, false
	}

	changed := !d.last.Equal(snap)
	d.last = &snap
	if changed {
		d.logger.Debug("Repository change detected",
			"staged", len(snap.Staged),
			"unstaged", len(snap.Unstaged))
	}
	return snap, changed
}

// Reset forgets the baseline so the next Detect records a fresh one
func (d *Detector) Reset() {
	d.mu.Lock()
	d.last = nil
	d.mu.Unlock()
}

// Last returns the most recent good snapshot, if any
func (d *Detector) Last() (domain.Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return domain.Snapshot{}, false
	}
	return *d.last, true
}

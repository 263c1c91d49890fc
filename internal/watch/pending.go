package watch

import "sync/atomic"

// PendingRefresh is a collapsing "redraw needed" flag shared between the
// watcher and the interactive loop. Repeated sets collapse into one.
type PendingRefresh struct {
	flag atomic.Bool
}

// Set marks a refresh as pending
func (p *PendingRefresh) Set() {
	p.flag.Store(true)
}

// Take clears the flag and reports whether it was set
func (p *PendingRefresh) Take() bool {
	return p.flag.CompareAndSwap(true, false)
}

// IsSet reports whether a refresh is pending without clearing it
func (p *PendingRefresh) IsSet() bool {
	return p.flag.Load()
}

package prompt

import "errors"

var (
	// ErrBridgeClosed is returned once the bridge has been closed
	ErrBridgeClosed = errors.New("prompt bridge is closed")
	// ErrRefreshRequested is the cancellation cause used when the repository changed under a prompt
	ErrRefreshRequested = errors.New("refresh requested")
	// ErrTerminal marks prompt failures caused by the terminal itself (closed stdin, no TTY)
	ErrTerminal = errors.New("terminal unavailable")
	// ErrUserCancelled marks a prompt the user backed out of (Ctrl+C, Esc)
	ErrUserCancelled = errors.New("cancelled by user")
)

// Kind tags how a prompt ended
type Kind int

const (
	Completed Kind = iota
	RefreshRequested
	UserCancelled
)

func (k Kind) String() string {
	switch k {
	case Completed:
		return "completed"
	case RefreshRequested:
		return "refresh_requested"
	case UserCancelled:
		return "user_cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the result of a prompt. Value is only meaningful when Kind is Completed.
type Outcome[T any] struct {
	Kind  Kind
	Value T
}

// Done wraps a completed value
func Done[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: Completed, Value: v}
}

// Refresh is the outcome of a prompt discarded because the repository changed
func Refresh[T any]() Outcome[T] {
	return Outcome[T]{Kind: RefreshRequested}
}

// Cancelled is the outcome of a prompt the user backed out of
func Cancelled[T any]() Outcome[T] {
	return Outcome[T]{Kind: UserCancelled}
}

// Ok reports whether the prompt completed with a value
func (o Outcome[T]) Ok() bool {
	return o.Kind == Completed
}

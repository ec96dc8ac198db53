package types

import "fmt"

// OutcomeKind classifies how a stage finished.
type OutcomeKind int

const (
	// OutcomeOk means the stage produced its intended value.
	OutcomeOk OutcomeKind = iota
	// OutcomeFallback means the stage degraded to a deterministic substitute.
	OutcomeFallback
	// OutcomeFatal means the run cannot continue.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "ok"
	case OutcomeFallback:
		return "fallback"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the typed result of a pipeline stage. Fallback outcomes carry both the
// substitute value and the cause that forced it.
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeOk, Value: v}
}

// Fallback wraps a substitute value and the reason it was needed.
func Fallback[T any](v T, cause error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeFallback, Value: v, Err: cause}
}

// Fatal wraps an error that ends the run.
func Fatal[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeFatal, Err: err}
}

// IsOk reports whether the stage succeeded without degrading.
func (o Outcome[T]) IsOk() bool { return o.Kind == OutcomeOk }

// IsFallback reports whether the stage degraded.
func (o Outcome[T]) IsFallback() bool { return o.Kind == OutcomeFallback }

// IsFatal reports whether the run must stop.
func (o Outcome[T]) IsFatal() bool { return o.Kind == OutcomeFatal }

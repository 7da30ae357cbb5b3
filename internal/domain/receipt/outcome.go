package receipt

// Outcome is the result of a best-effort pipeline stage. A stage either
// produced its value or degraded with a reason; it never fails the document.
type Outcome[T any] struct {
	value  T
	reason string
	ok     bool
}

// Ok wraps a value produced by a stage.
func Ok[T any](value T) Outcome[T] {
	return Outcome[T]{value: value, ok: true}
}

// Degraded records why a stage could not produce its value.
func Degraded[T any](reason string) Outcome[T] {
	return Outcome[T]{reason: reason}
}

// DegradedWith records a degraded stage that still hands back a fallback value,
// such as the compressor returning the original bytes.
func DegradedWith[T any](fallback T, reason string) Outcome[T] {
	return Outcome[T]{value: fallback, reason: reason}
}

// IsOk reports whether the stage produced its value.
func (o Outcome[T]) IsOk() bool { return o.ok }

// Value returns the produced value, or the fallback for a degraded outcome.
func (o Outcome[T]) Value() T { return o.value }

// Reason is empty for Ok outcomes.
func (o Outcome[T]) Reason() string { return o.reason }

// Get returns the value and whether the stage succeeded.
func (o Outcome[T]) Get() (T, bool) { return o.value, o.ok }

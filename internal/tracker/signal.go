package tracker

import "sync"

// Event is the observable state of a Signal.
type Event[T any] struct {
	Value   T
	Pending bool
}

// Signal is a one-shot event: Raise makes a value pending until a consumer
// takes or acknowledges it. A pending value is delivered to at most one
// Take; observers that only Peek see it until it is consumed.
type Signal[T any] struct {
	mu    sync.Mutex
	state *Value[Event[T]]
}

var _ Observable[Event[int]] = (*Signal[int])(nil)

// NewSignal creates a Signal with nothing pending.
func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{state: NewValue(Event[T]{})}
}

// Raise makes v pending, replacing any value not yet consumed.
func (s *Signal[T]) Raise(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Set(Event[T]{Value: v, Pending: true})
}

// Peek returns the pending value without consuming it.
func (s *Signal[T]) Peek() (T, bool) {
	ev := s.state.Get()
	return ev.Value, ev.Pending
}

// Take consumes and returns the pending value. Concurrent callers race for
// it; exactly one of them gets ok == true.
func (s *Signal[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.state.Get()
	if !ev.Pending {
		var zero T
		return zero, false
	}
	s.state.Set(Event[T]{})
	return ev.Value, true
}

// Acknowledge discards the pending value, if any.
func (s *Signal[T]) Acknowledge() {
	s.Take()
}

func (s *Signal[T]) Get() Event[T] {
	return s.state.Get()
}

func (s *Signal[T]) Subscribe() (<-chan Event[T], func()) {
	return s.state.Subscribe()
}

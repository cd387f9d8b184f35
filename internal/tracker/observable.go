package tracker

import "sync"

// Observable is a read-only view of a value that changes over time.
type Observable[T any] interface {
	// Get returns the current value.
	Get() T

	// Subscribe returns a channel that immediately holds the current value
	// and afterwards always holds the latest one. Intermediate values may be
	// skipped. Call the returned func to unsubscribe.
	Subscribe() (<-chan T, func())
}

// Value is a mutable Observable. The zero value is not usable; use NewValue.
type Value[T any] struct {
	// setMu serializes Set so derived values observe writes in order.
	setMu sync.Mutex

	mu      sync.Mutex
	v       T
	subs    map[int]chan T
	next    int
	derived []func(T)
}

var _ Observable[int] = (*Value[int])(nil)

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]chan T)}
}

func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.v
}

// Set stores x, updates derived values and delivers x to subscribers.
func (v *Value[T]) Set(x T) {
	v.setMu.Lock()
	defer v.setMu.Unlock()

	v.mu.Lock()
	v.v = x
	for _, ch := range v.subs {
		replace(ch, x)
	}
	derived := v.derived
	v.mu.Unlock()

	for _, fn := range derived {
		fn(x)
	}
}

func (v *Value[T]) Subscribe() (<-chan T, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.next
	v.next++
	ch := make(chan T, 1)
	ch <- v.v
	v.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}

// Map returns an Observable whose value is always fn applied to src's value.
// fn must be pure; it runs on the goroutine that calls src.Set.
func Map[T, U any](src *Value[T], fn func(T) U) Observable[U] {
	src.setMu.Lock()
	defer src.setMu.Unlock()
	src.mu.Lock()
	defer src.mu.Unlock()

	out := NewValue(fn(src.v))
	src.derived = append(src.derived, func(x T) { out.Set(fn(x)) })
	return out
}

// replace drops whatever ch is holding and puts x in its place. Callers
// hold the owning Value's lock, so there is exactly one sender.
func replace[T any](ch chan T, x T) {
	select {
	case <-ch:
	default:
	}
	ch <- x
}

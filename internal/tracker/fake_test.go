package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/abhisek/sleeptracker/internal/store"
)

// fakeRepo is an in-memory store.NightRepo with error injection.
type fakeRepo struct {
	mu     sync.Mutex
	nights []store.Night // insertion order
	nextID int64

	latestErr error
	allErr    error
	getErr    error
	insertErr error
	updateErr error
	clearErr  error

	// latestGate, when set, blocks Latest until it is closed or ctx ends.
	latestGate chan struct{}

	inserts int
	updates int

	subs []chan struct{}
}

var _ store.NightRepo = (*fakeRepo)(nil)

func newFakeRepo(seed ...store.Night) *fakeRepo {
	r := &fakeRepo{}
	for _, n := range seed {
		r.nextID++
		if n.ID == 0 {
			n.ID = r.nextID
		}
		r.nights = append(r.nights, n)
	}
	return r
}

// night returns a night with millisecond start and end.
func night(startMs, endMs int64) store.Night {
	return store.Night{
		StartTime: time.UnixMilli(startMs),
		EndTime:   time.UnixMilli(endMs),
		Quality:   store.QualityUnrated,
	}
}

func (r *fakeRepo) Latest(ctx context.Context) (*store.Night, error) {
	r.mu.Lock()
	gate := r.latestGate
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latestErr != nil {
		return nil, r.latestErr
	}
	if len(r.nights) == 0 {
		return nil, nil
	}
	n := r.nights[len(r.nights)-1]
	return &n, nil
}

func (r *fakeRepo) All(ctx context.Context) ([]store.Night, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allErr != nil {
		return nil, r.allErr
	}
	out := make([]store.Night, 0, len(r.nights))
	for i := len(r.nights) - 1; i >= 0; i-- {
		out = append(out, r.nights[i])
	}
	return out, nil
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (*store.Night, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, n := range r.nights {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *fakeRepo) Insert(ctx context.Context, n *store.Night) error {
	r.mu.Lock()
	if r.insertErr != nil {
		r.mu.Unlock()
		return r.insertErr
	}
	r.nextID++
	n.ID = r.nextID
	r.nights = append(r.nights, *n)
	r.inserts++
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, n store.Night) error {
	r.mu.Lock()
	if r.updateErr != nil {
		r.mu.Unlock()
		return r.updateErr
	}
	found := false
	for i := range r.nights {
		if r.nights[i].ID == n.ID {
			r.nights[i] = n
			found = true
		}
	}
	if !found {
		r.mu.Unlock()
		return store.ErrNotFound
	}
	r.updates++
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *fakeRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	if r.clearErr != nil {
		r.mu.Unlock()
		return r.clearErr
	}
	r.nights = nil
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *fakeRepo) Subscribe() (<-chan struct{}, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{}, 1)
	r.subs = append(r.subs, ch)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s == ch {
					r.subs = append(r.subs[:i], r.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// notify simulates a change, including ones made outside the controller.
func (r *fakeRepo) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// externalInsert adds a night as another process would.
func (r *fakeRepo) externalInsert(n store.Night) {
	r.mu.Lock()
	r.nextID++
	n.ID = r.nextID
	r.nights = append(r.nights, n)
	r.mu.Unlock()
	r.notify()
}

// externalUpdate edits a stored night as another process would.
func (r *fakeRepo) externalUpdate(id int64, fn func(n *store.Night), notify bool) {
	r.mu.Lock()
	for i := range r.nights {
		if r.nights[i].ID == id {
			fn(&r.nights[i])
		}
	}
	r.mu.Unlock()
	if notify {
		r.notify()
	}
}

func (r *fakeRepo) set(fn func(r *fakeRepo)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func (r *fakeRepo) counts() (inserts, updates, stored int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserts, r.updates, len(r.nights)
}

func (r *fakeRepo) stored(id int64) (store.Night, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.nights {
		if n.ID == id {
			return n, true
		}
	}
	return store.Night{}, false
}

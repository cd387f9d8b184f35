package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/sleeptracker/internal/format"
	"github.com/abhisek/sleeptracker/internal/store"
)

const waitFor = 2 * time.Second

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newController(t *testing.T, repo *fakeRepo, opts ...Option) *Controller {
	t.Helper()
	c := New(repo, opts...)
	t.Cleanup(c.Close)
	return c
}

func await(t *testing.T, task *Task) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	err := task.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "task %s did not finish", task.Name)
	return err
}

func TestInitializeEmptyStore(t *testing.T) {
	c := newController(t, newFakeRepo())
	require.NoError(t, await(t, c.Initialized()))

	assert.Nil(t, c.Tonight().Get())
	assert.True(t, c.StartEnabled().Get())
	assert.False(t, c.StopEnabled().Get())
	assert.False(t, c.ClearEnabled().Get())
}

func TestInitializeInProgressNight(t *testing.T) {
	c := newController(t, newFakeRepo(night(100, 100)))
	require.NoError(t, await(t, c.Initialized()))

	tonight := c.Tonight().Get()
	require.NotNil(t, tonight)
	assert.Equal(t, int64(100), tonight.StartTime.UnixMilli())
	assert.False(t, c.StartEnabled().Get())
	assert.True(t, c.StopEnabled().Get())
}

func TestInitializeCompletedNight(t *testing.T) {
	c := newController(t, newFakeRepo(night(100, 200)))
	require.NoError(t, await(t, c.Initialized()))

	assert.Nil(t, c.Tonight().Get())
	assert.True(t, c.StartEnabled().Get())
	assert.False(t, c.StopEnabled().Get())
	assert.Eventually(t, func() bool { return c.ClearEnabled().Get() }, waitFor, 5*time.Millisecond)
}

func TestStart(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo, WithClock(fixedClock(1_000)))
	require.NoError(t, await(t, c.Initialized()))

	require.NoError(t, await(t, c.Start(context.Background())))

	tonight := c.Tonight().Get()
	require.NotNil(t, tonight)
	assert.True(t, tonight.InProgress())
	assert.Equal(t, int64(1_000), tonight.StartTime.UnixMilli())
	assert.Equal(t, store.QualityUnrated, tonight.Quality)
	assert.False(t, c.StartEnabled().Get())
	assert.True(t, c.StopEnabled().Get())
	assert.True(t, c.ClearEnabled().Get())
	require.Len(t, c.Nights().Get(), 1)
	assert.Equal(t, tonight.ID, c.Nights().Get()[0].ID)
}

func TestStartWhileTracking(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))

	err := await(t, c.Start(context.Background()))
	require.ErrorIs(t, err, ErrAlreadyTracking)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpStart, opErr.Op)

	failure, ok := c.Failures().Peek()
	require.True(t, ok)
	assert.ErrorIs(t, failure, ErrAlreadyTracking)

	inserts, _, stored := repo.counts()
	assert.Equal(t, 0, inserts)
	assert.Equal(t, 1, stored)
}

func TestConcurrentStartsInsertOnce(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = await(t, c.Start(context.Background()))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrAlreadyTracking)
		}
	}
	inserts, _, _ := repo.counts()
	assert.Equal(t, 1, inserts)
}

func TestStop(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(5_000)))
	require.NoError(t, await(t, c.Initialized()))

	require.NoError(t, await(t, c.Stop(context.Background())))

	stopped, ok := c.Navigation().Peek()
	require.True(t, ok, "navigation should be pending")
	assert.Equal(t, int64(5_000), stopped.EndTime.UnixMilli())
	assert.True(t, stopped.EndTime.After(stopped.StartTime))

	tonight := c.Tonight().Get()
	require.NotNil(t, tonight)
	assert.Equal(t, stopped.EndTime, tonight.EndTime)

	persisted, ok := repo.stored(stopped.ID)
	require.True(t, ok)
	assert.Equal(t, int64(5_000), persisted.EndTime.UnixMilli())

	got, ok := c.Navigation().Take()
	require.True(t, ok)
	assert.Equal(t, stopped.ID, got.ID)
	_, ok = c.Navigation().Take()
	assert.False(t, ok, "navigation must be delivered once")
}

func TestStopSameMillisecond(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(100)))
	require.NoError(t, await(t, c.Initialized()))

	require.NoError(t, await(t, c.Stop(context.Background())))

	stopped, ok := c.Navigation().Peek()
	require.True(t, ok)
	assert.False(t, stopped.InProgress())
	assert.Equal(t, int64(101), stopped.EndTime.UnixMilli())
}

func TestStopWithoutTonightIsNoop(t *testing.T) {
	repo := newFakeRepo(night(100, 200))
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))

	require.NoError(t, await(t, c.Stop(context.Background())))

	_, updates, _ := repo.counts()
	assert.Equal(t, 0, updates)
	assert.False(t, c.Navigation().Get().Pending)
}

func TestStopTwiceUpdatesOnce(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(900)))
	require.NoError(t, await(t, c.Initialized()))

	require.NoError(t, await(t, c.Stop(context.Background())))
	c.AcknowledgeNavigation()
	require.NoError(t, await(t, c.Stop(context.Background())))

	_, updates, _ := repo.counts()
	assert.Equal(t, 1, updates)
	assert.False(t, c.Navigation().Get().Pending)
}

func TestRefreshAfterStop(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(900)))
	require.NoError(t, await(t, c.Initialized()))
	require.NoError(t, await(t, c.Stop(context.Background())))
	assert.False(t, c.StartEnabled().Get())

	require.NoError(t, await(t, c.Refresh(context.Background())))

	assert.Nil(t, c.Tonight().Get())
	assert.True(t, c.StartEnabled().Get())
	assert.False(t, c.StopEnabled().Get())
}

func TestStartAfterStop(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(900)))
	require.NoError(t, await(t, c.Initialized()))
	require.NoError(t, await(t, c.Stop(context.Background())))

	require.NoError(t, await(t, c.Start(context.Background())))

	tonight := c.Tonight().Get()
	require.NotNil(t, tonight)
	assert.True(t, tonight.InProgress())
	assert.Len(t, c.Nights().Get(), 2)
}

func TestClear(t *testing.T) {
	repo := newFakeRepo(night(100, 200), night(300, 300))
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))
	require.NotNil(t, c.Tonight().Get())

	require.NoError(t, await(t, c.Clear(context.Background())))

	assert.Nil(t, c.Tonight().Get())
	assert.Empty(t, c.Nights().Get())
	assert.False(t, c.ClearEnabled().Get())
	assert.True(t, c.StartEnabled().Get())

	ev := c.Notification().Get()
	assert.True(t, ev.Pending)
	assert.True(t, ev.Value)

	c.AcknowledgeNotification()
	assert.False(t, c.Notification().Get().Pending)
}

func TestAcknowledgeNavigation(t *testing.T) {
	c := newController(t, newFakeRepo(night(100, 100)), WithClock(fixedClock(200)))
	require.NoError(t, await(t, c.Initialized()))
	require.NoError(t, await(t, c.Stop(context.Background())))
	require.True(t, c.Navigation().Get().Pending)

	c.AcknowledgeNavigation()

	assert.False(t, c.Navigation().Get().Pending)
	_, ok := c.Navigation().Take()
	assert.False(t, ok)
}

func TestInitializeFailureIsSurfaced(t *testing.T) {
	boom := errors.New("disk on fire")
	repo := newFakeRepo()
	repo.latestErr = boom
	c := newController(t, repo)

	err := await(t, c.Initialized())
	require.ErrorIs(t, err, boom)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpInitialize, opErr.Op)

	failure, ok := c.Failures().Take()
	require.True(t, ok)
	assert.Equal(t, OpInitialize, failure.Op)
	assert.Nil(t, c.Tonight().Get())
}

func TestStopFailureDoesNotNavigate(t *testing.T) {
	boom := errors.New("read-only")
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(200)))
	require.NoError(t, await(t, c.Initialized()))
	repo.set(func(r *fakeRepo) { r.updateErr = boom })

	err := await(t, c.Stop(context.Background()))
	require.ErrorIs(t, err, boom)

	assert.False(t, c.Navigation().Get().Pending)
	tonight := c.Tonight().Get()
	require.NotNil(t, tonight)
	assert.True(t, tonight.InProgress())

	failure, ok := c.Failures().Peek()
	require.True(t, ok)
	assert.Equal(t, OpStop, failure.Op)

	c.AcknowledgeFailure()
	assert.False(t, c.Failures().Get().Pending)
}

func TestClearFailureKeepsState(t *testing.T) {
	boom := errors.New("locked")
	repo := newFakeRepo(night(100, 200))
	repo.clearErr = boom
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))

	require.ErrorIs(t, await(t, c.Clear(context.Background())), boom)
	assert.False(t, c.Notification().Get().Pending)
	_, _, stored := repo.counts()
	assert.Equal(t, 1, stored)
}

func TestHistoryFollowsStoreChanges(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))

	repo.externalInsert(night(100, 200))

	assert.Eventually(t, func() bool { return len(c.Nights().Get()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return c.ClearEnabled().Get() }, waitFor, 5*time.Millisecond)
}

func TestNightsText(t *testing.T) {
	repo := newFakeRepo(night(100, 200))
	c := newController(t, repo)

	require.Eventually(t, func() bool { return len(c.Nights().Get()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, format.Nights(c.Nights().Get()), c.NightsText().Get())
}

func TestNightsFormatterOption(t *testing.T) {
	count := func(ns []store.Night) []string { return []string{string(rune('0' + len(ns)))} }
	c := newController(t, newFakeRepo(night(1, 2), night(3, 4)), WithNightsFormatter(count))

	assert.Eventually(t, func() bool {
		lines := c.NightsText().Get()
		return len(lines) == 1 && lines[0] == "2"
	}, waitFor, 5*time.Millisecond)
}

func TestChangesNotifiesSubscribers(t *testing.T) {
	c := newController(t, newFakeRepo())
	require.NoError(t, await(t, c.Initialized()))

	changes, unsubscribe := c.Changes()
	defer unsubscribe()
	<-changes

	require.NoError(t, await(t, c.Start(context.Background())))

	select {
	case <-changes:
	case <-time.After(waitFor):
		t.Fatal("expected a change after start")
	}
}

func TestCloseCancelsOutstandingWork(t *testing.T) {
	repo := newFakeRepo()
	repo.latestGate = make(chan struct{})
	c := New(repo)

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("Close did not return")
	}

	err := await(t, c.Initialized())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Failures().Get().Pending, "cancellation is not a failure")

	require.ErrorIs(t, await(t, c.Start(context.Background())), ErrClosed)
	inserts, _, _ := repo.counts()
	assert.Equal(t, 0, inserts)
}

func TestCallerContextCancelsTask(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))
	repo.set(func(r *fakeRepo) { r.latestGate = make(chan struct{}) })

	ctx, cancel := context.WithCancel(context.Background())
	task := c.Refresh(ctx)
	cancel()

	require.ErrorIs(t, await(t, task), context.Canceled)
	assert.False(t, c.Failures().Get().Pending)
}

func TestExternalStopIsFollowed(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(9_000)))
	require.NoError(t, await(t, c.Initialized()))
	require.True(t, c.StopEnabled().Get())

	repo.externalUpdate(1, func(n *store.Night) {
		n.EndTime = time.UnixMilli(500)
		n.Quality = 4
	}, true)

	assert.Eventually(t, func() bool {
		return c.StartEnabled().Get() && !c.StopEnabled().Get()
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, await(t, c.Stop(context.Background())))

	persisted, ok := repo.stored(1)
	require.True(t, ok)
	assert.Equal(t, int64(500), persisted.EndTime.UnixMilli())
	assert.Equal(t, 4, persisted.Quality)
	_, updates, _ := repo.counts()
	assert.Equal(t, 0, updates)
	assert.False(t, c.Navigation().Get().Pending)
}

func TestExternalStartIsFollowed(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))

	repo.externalInsert(night(300, 300))

	assert.Eventually(t, func() bool {
		n := c.Tonight().Get()
		return n != nil && n.InProgress() && c.StopEnabled().Get()
	}, waitFor, 5*time.Millisecond)
}

func TestStopSkipsNightStoppedElsewhere(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(9_000)))
	require.NoError(t, await(t, c.Initialized()))

	// No change notification: Tonight is still the stale in-progress copy.
	repo.externalUpdate(1, func(n *store.Night) {
		n.EndTime = time.UnixMilli(500)
		n.Quality = 2
	}, false)
	require.True(t, c.StopEnabled().Get())

	require.NoError(t, await(t, c.Stop(context.Background())))

	persisted, _ := repo.stored(1)
	assert.Equal(t, int64(500), persisted.EndTime.UnixMilli())
	assert.Equal(t, 2, persisted.Quality)
	_, updates, _ := repo.counts()
	assert.Equal(t, 0, updates)
	assert.False(t, c.Navigation().Get().Pending)
	assert.Nil(t, c.Tonight().Get())
	assert.True(t, c.StartEnabled().Get())
}

func TestStopSkipsNightDeletedElsewhere(t *testing.T) {
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))

	repo.set(func(r *fakeRepo) { r.nights = nil })

	require.NoError(t, await(t, c.Stop(context.Background())))
	assert.Nil(t, c.Tonight().Get())
	assert.False(t, c.Navigation().Get().Pending)
}

func TestStopNavigatesWhenHistoryReloadFails(t *testing.T) {
	boom := errors.New("history unavailable")
	repo := newFakeRepo(night(100, 100))
	c := newController(t, repo, WithClock(fixedClock(700)))
	require.NoError(t, await(t, c.Initialized()))
	repo.set(func(r *fakeRepo) { r.allErr = boom })

	require.NoError(t, await(t, c.Stop(context.Background())))

	stopped, ok := c.Navigation().Take()
	require.True(t, ok)
	assert.Equal(t, int64(700), stopped.EndTime.UnixMilli())
	_, updates, _ := repo.counts()
	assert.Equal(t, 1, updates)

	failure, ok := c.Failures().Take()
	require.True(t, ok)
	assert.Equal(t, OpHistory, failure.Op)
	assert.ErrorIs(t, failure, boom)
}

func TestClearNotifiesWhenHistoryReloadFails(t *testing.T) {
	boom := errors.New("history unavailable")
	repo := newFakeRepo(night(100, 200))
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))
	require.Eventually(t, func() bool { return c.ClearEnabled().Get() }, waitFor, 5*time.Millisecond)
	repo.set(func(r *fakeRepo) { r.allErr = boom })

	require.NoError(t, await(t, c.Clear(context.Background())))

	assert.True(t, c.Notification().Get().Pending)
	_, _, stored := repo.counts()
	assert.Equal(t, 0, stored)
	assert.Empty(t, c.Nights().Get())
	assert.False(t, c.ClearEnabled().Get())

	failure, ok := c.Failures().Take()
	require.True(t, ok)
	assert.Equal(t, OpHistory, failure.Op)
}

func TestStartOutlivesCancelledCaller(t *testing.T) {
	repo := newFakeRepo()
	c := newController(t, repo)
	require.NoError(t, await(t, c.Initialized()))
	gate := make(chan struct{})
	repo.set(func(r *fakeRepo) { r.latestGate = gate })

	ctxA, cancelA := context.WithCancel(context.Background())
	taskA := c.Start(ctxA)
	taskB := c.Start(context.Background())
	cancelA()
	require.ErrorIs(t, await(t, taskA), context.Canceled)

	close(gate)
	errB := await(t, taskB)
	if errB != nil {
		// B may have missed the shared attempt and tried again after it.
		assert.ErrorIs(t, errB, ErrAlreadyTracking)
	}

	assert.Eventually(t, func() bool {
		inserts, _, _ := repo.counts()
		return inserts == 1
	}, waitFor, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		n := c.Tonight().Get()
		return n != nil && n.InProgress()
	}, waitFor, 5*time.Millisecond)
}

// Package tracker holds the state behind the tracker screen: the night in
// progress, the history, and the one-shot signals that drive navigation.
//
// Every operation runs on the controller's own TaskGroup and returns a
// *Task. Observables and signals are safe to read from any goroutine.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abhisek/sleeptracker/internal/format"
	"github.com/abhisek/sleeptracker/internal/logging"
	"github.com/abhisek/sleeptracker/internal/store"
)

// Operation names, used for tasks, logs and OpError.Op.
const (
	OpInitialize = "initialize"
	OpStart      = "start"
	OpStop       = "stop"
	OpRefresh    = "refresh"
	OpClear      = "clear"
	OpHistory    = "history"
	OpLoadNight  = "load night"
	OpSetQuality = "set quality"
)

// OneShot is the consumer side of a Signal.
type OneShot[T any] interface {
	Observable[Event[T]]
	Peek() (T, bool)
	Take() (T, bool)
	Acknowledge()
}

type options struct {
	now     func() time.Time
	logger  *slog.Logger
	nightsf func([]store.Night) []string
}

// Option configures a Controller or QualityController.
type Option func(*options)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNightsFormatter replaces format.Nights for NightsText.
func WithNightsFormatter(fn func([]store.Night) []string) Option {
	return func(o *options) { o.nightsf = fn }
}

func buildOptions(opts []Option) options {
	o := options{
		now:     time.Now,
		logger:  logging.Discard(),
		nightsf: format.Nights,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Controller is the state holder for the tracker screen.
type Controller struct {
	repo   store.NightRepo
	now    func() time.Time
	logger *slog.Logger

	tasks  *TaskGroup
	starts singleflight.Group

	// mu serializes operations that read and then write state.
	mu sync.Mutex
	// historyMu makes each history reload an atomic read-and-publish.
	historyMu sync.Mutex

	tonight    *Value[*store.Night]
	nights     *Value[[]store.Night]
	nightsText Observable[[]string]

	startEnabled Observable[bool]
	stopEnabled  Observable[bool]
	clearEnabled Observable[bool]

	navigation   *Signal[store.Night]
	notification *Signal[bool]
	failures     *Signal[*OpError]

	rev      atomic.Uint64
	revision *Value[uint64]

	initialized *Task
}

// New creates a controller over repo and starts initialization and the
// history subscription. Call Close when done.
func New(repo store.NightRepo, opts ...Option) *Controller {
	o := buildOptions(opts)

	c := &Controller{
		repo:         repo,
		now:          o.now,
		logger:       o.logger,
		tasks:        NewTaskGroup(),
		tonight:      NewValue[*store.Night](nil),
		nights:       NewValue[[]store.Night](nil),
		navigation:   NewSignal[store.Night](),
		notification: NewSignal[bool](),
		failures:     NewSignal[*OpError](),
		revision:     NewValue[uint64](0),
	}
	c.nightsText = Map(c.nights, o.nightsf)
	c.startEnabled = Map(c.tonight, func(n *store.Night) bool { return n == nil })
	c.stopEnabled = Map(c.tonight, func(n *store.Night) bool { return n != nil })
	c.clearEnabled = Map(c.nights, func(ns []store.Night) bool { return len(ns) > 0 })

	c.initialized = c.run(context.Background(), OpInitialize, c.exclusive(c.loadTonight))
	changes, unsubscribe := repo.Subscribe()
	c.tasks.Go(context.Background(), OpHistory, func(ctx context.Context) error {
		defer unsubscribe()
		return c.watchHistory(ctx, changes)
	})
	return c
}

// Tonight is the night in progress, or nil. After Stop it briefly holds
// the stopped night until the next Refresh.
func (c *Controller) Tonight() Observable[*store.Night] { return c.tonight }

// Nights is the full history, newest first.
func (c *Controller) Nights() Observable[[]store.Night] { return c.nights }

// NightsText is Nights rendered for display.
func (c *Controller) NightsText() Observable[[]string] { return c.nightsText }

func (c *Controller) StartEnabled() Observable[bool] { return c.startEnabled }
func (c *Controller) StopEnabled() Observable[bool]  { return c.stopEnabled }
func (c *Controller) ClearEnabled() Observable[bool] { return c.clearEnabled }

// Navigation carries a night that was just stopped.
func (c *Controller) Navigation() OneShot[store.Night] { return c.navigation }

// Notification is raised after the history has been cleared.
func (c *Controller) Notification() OneShot[bool] { return c.notification }

// Failures carries the most recent failed operation.
func (c *Controller) Failures() OneShot[*OpError] { return c.failures }

// Initialized is the task started by New.
func (c *Controller) Initialized() *Task { return c.initialized }

// Changes returns a channel that receives after any observable or signal
// of this controller changes. Values coalesce.
func (c *Controller) Changes() (<-chan uint64, func()) {
	return c.revision.Subscribe()
}

// Start begins tracking a new night. It fails with ErrAlreadyTracking when
// a night is already in progress. Concurrent calls share one attempt, which
// runs on the controller's own task group so that a caller giving up does
// not cancel it for the others.
func (c *Controller) Start(ctx context.Context) *Task {
	return c.run(ctx, OpStart, func(ctx context.Context) error {
		shared := c.starts.DoChan(OpStart, func() (any, error) {
			attempt := c.tasks.Go(context.Background(), OpStart, c.exclusive(c.start))
			<-attempt.Done()
			return nil, attempt.Err()
		})
		select {
		case res := <-shared:
			return res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (c *Controller) start(ctx context.Context) error {
	current, err := c.fetchTonight(ctx)
	if err != nil {
		return err
	}
	if current != nil {
		c.setTonight(current)
		return ErrAlreadyTracking
	}

	night := store.NewNight(c.now())
	if err := c.repo.Insert(ctx, &night); err != nil {
		return err
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "night started", logging.NightID(night.ID))

	if err := c.loadTonight(ctx); err != nil {
		return err
	}
	c.reloadHistory(ctx)
	return nil
}

// Stop ends the night in progress and raises Navigation with it. Without a
// night in progress it does nothing, and neither does it when the night was
// stopped or removed elsewhere since it was last loaded.
func (c *Controller) Stop(ctx context.Context) *Task {
	return c.run(ctx, OpStop, c.exclusive(func(ctx context.Context) error {
		current := c.tonight.Get()
		if current == nil || !current.InProgress() {
			return nil
		}

		stored, err := c.repo.Get(ctx, current.ID)
		if errors.Is(err, store.ErrNotFound) {
			return c.loadTonight(ctx)
		}
		if err != nil {
			return err
		}
		if !stored.InProgress() {
			c.logger.LogAttrs(ctx, slog.LevelInfo, "night already stopped", logging.NightID(stored.ID))
			return c.loadTonight(ctx)
		}

		night := *stored
		end := time.UnixMilli(c.now().UnixMilli())
		// A zero-length night would still read as in progress.
		if !end.After(night.StartTime) {
			end = night.StartTime.Add(time.Millisecond)
		}
		night.EndTime = end

		if err := c.repo.Update(ctx, night); err != nil {
			return err
		}
		c.logger.LogAttrs(ctx, slog.LevelInfo, "night stopped",
			logging.NightID(night.ID), logging.DurationMS(night.Duration().Milliseconds()))

		c.setTonight(&night)
		c.navigation.Raise(night)
		c.bump()
		c.reloadHistory(ctx)
		return nil
	}))
}

// Refresh reloads Tonight from the store.
func (c *Controller) Refresh(ctx context.Context) *Task {
	return c.run(ctx, OpRefresh, c.exclusive(func(ctx context.Context) error {
		if err := c.loadTonight(ctx); err != nil {
			return err
		}
		return c.refreshNights(ctx)
	}))
}

// Clear deletes every night and raises Notification.
func (c *Controller) Clear(ctx context.Context) *Task {
	return c.run(ctx, OpClear, c.exclusive(func(ctx context.Context) error {
		if err := c.repo.Clear(ctx); err != nil {
			return err
		}
		c.logger.LogAttrs(ctx, slog.LevelInfo, "history cleared")

		c.setTonight(nil)
		c.setNights(nil)
		c.notification.Raise(true)
		c.bump()
		c.reloadHistory(ctx)
		return nil
	}))
}

// AcknowledgeNavigation marks the pending navigation as handled.
func (c *Controller) AcknowledgeNavigation() {
	c.navigation.Acknowledge()
	c.bump()
}

// AcknowledgeNotification marks the pending notification as shown.
func (c *Controller) AcknowledgeNotification() {
	c.notification.Acknowledge()
	c.bump()
}

// AcknowledgeFailure discards the pending failure.
func (c *Controller) AcknowledgeFailure() {
	c.failures.Acknowledge()
	c.bump()
}

// Close cancels outstanding work and waits for it to return. Operations
// requested afterwards fail with ErrClosed.
func (c *Controller) Close() {
	c.tasks.Close()
}

// run executes fn on the task group, wrapping and reporting failures.
// Cancellation is returned to the caller but never raised on Failures.
func (c *Controller) run(ctx context.Context, op string, fn func(context.Context) error) *Task {
	return c.tasks.Go(ctx, op, func(ctx context.Context) error {
		began := time.Now()
		err := fn(ctx)
		if err == nil {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "operation done",
				logging.Op(op), logging.DurationMS(time.Since(began).Milliseconds()))
			return nil
		}
		opErr := &OpError{Op: op, Err: err}
		if errors.Is(err, context.Canceled) {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "operation cancelled", logging.Op(op))
			return opErr
		}
		c.logger.LogAttrs(ctx, slog.LevelError, "operation failed", logging.Op(op), logging.Err(err))
		c.failures.Raise(opErr)
		c.bump()
		return opErr
	})
}

func (c *Controller) exclusive(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx)
	}
}

// fetchTonight returns the latest night if it is still in progress.
func (c *Controller) fetchTonight(ctx context.Context) (*store.Night, error) {
	n, err := c.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if n == nil || !n.InProgress() {
		return nil, nil
	}
	return n, nil
}

func (c *Controller) loadTonight(ctx context.Context) error {
	n, err := c.fetchTonight(ctx)
	if err != nil {
		return err
	}
	c.setTonight(n)
	return nil
}

func (c *Controller) refreshNights(ctx context.Context) error {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	all, err := c.repo.All(ctx)
	if err != nil {
		return err
	}
	c.nights.Set(all)
	c.bump()
	return nil
}

// reloadHistory refreshes Nights after a write that already succeeded. A
// failure is reported on its own rather than failing the write.
func (c *Controller) reloadHistory(ctx context.Context) {
	if err := c.refreshNights(ctx); err != nil {
		c.reportBackground(ctx, OpHistory, err)
	}
}

// reportBackground raises a failure for work no caller is waiting on.
func (c *Controller) reportBackground(ctx context.Context, op string, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	c.logger.LogAttrs(ctx, slog.LevelError, "background refresh failed",
		logging.Op(op), logging.Err(err))
	c.failures.Raise(&OpError{Op: op, Err: err})
	c.bump()
}

// watchHistory keeps Nights and Tonight in sync with the store until the
// group closes.
func (c *Controller) watchHistory(ctx context.Context, changes <-chan struct{}) error {
	c.reloadHistory(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		}
		if err := c.exclusive(c.syncTonight)(ctx); err != nil {
			c.reportBackground(ctx, OpHistory, err)
		}
		c.reloadHistory(ctx)
	}
}

// syncTonight follows changes made outside the controller, such as a night
// started or stopped by another process. A night this controller stopped
// is kept until Refresh.
func (c *Controller) syncTonight(ctx context.Context) error {
	latest, err := c.fetchTonight(ctx)
	if err != nil {
		return err
	}
	if current := c.tonight.Get(); current != nil && !current.InProgress() && latest == nil {
		return nil
	}
	c.setTonight(latest)
	return nil
}

func (c *Controller) setTonight(n *store.Night) {
	if n != nil {
		cp := *n
		n = &cp
	}
	c.tonight.Set(n)
	c.bump()
}

func (c *Controller) setNights(ns []store.Night) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	c.nights.Set(ns)
	c.bump()
}

func (c *Controller) bump() {
	c.revision.Set(c.rev.Add(1))
}

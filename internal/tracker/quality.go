package tracker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/abhisek/sleeptracker/internal/logging"
	"github.com/abhisek/sleeptracker/internal/store"
)

// Valid sleep quality ratings.
const (
	MinQuality = 0
	MaxQuality = 5
)

// QualityController rates one stopped night.
type QualityController struct {
	repo    store.NightRepo
	nightID int64
	logger  *slog.Logger

	tasks *TaskGroup
	mu    sync.Mutex

	night    *Value[*store.Night]
	done     *Signal[store.Night]
	failures *Signal[*OpError]

	loaded *Task
}

// NewQualityController loads night nightID in the background.
func NewQualityController(repo store.NightRepo, nightID int64, opts ...Option) *QualityController {
	o := buildOptions(opts)
	q := &QualityController{
		repo:     repo,
		nightID:  nightID,
		logger:   o.logger,
		tasks:    NewTaskGroup(),
		night:    NewValue[*store.Night](nil),
		done:     NewSignal[store.Night](),
		failures: NewSignal[*OpError](),
	}
	q.loaded = q.run(context.Background(), OpLoadNight, func(ctx context.Context) error {
		n, err := repo.Get(ctx, nightID)
		if err != nil {
			return err
		}
		q.night.Set(n)
		return nil
	})
	return q
}

// NightID is the night being rated.
func (q *QualityController) NightID() int64 { return q.nightID }

// Night is the loaded night, nil until the load finishes.
func (q *QualityController) Night() Observable[*store.Night] { return q.night }

// Loaded is the task started by NewQualityController.
func (q *QualityController) Loaded() *Task { return q.loaded }

// Done is raised with the rated night once SetQuality has persisted it.
func (q *QualityController) Done() OneShot[store.Night] { return q.done }

func (q *QualityController) Failures() OneShot[*OpError] { return q.failures }

// SetQuality stores rating for the night and raises Done.
func (q *QualityController) SetQuality(ctx context.Context, rating int) *Task {
	if rating < MinQuality || rating > MaxQuality {
		err := &OpError{Op: OpSetQuality, Err: ErrInvalidQuality}
		q.failures.Raise(err)
		return finishedTask(OpSetQuality, err)
	}
	return q.run(ctx, OpSetQuality, func(ctx context.Context) error {
		q.mu.Lock()
		defer q.mu.Unlock()

		n, err := q.repo.Get(ctx, q.nightID)
		if err != nil {
			return err
		}
		n.Quality = rating
		if err := q.repo.Update(ctx, *n); err != nil {
			return err
		}
		q.logger.LogAttrs(ctx, slog.LevelInfo, "night rated",
			logging.NightID(n.ID), logging.Quality(rating))

		q.night.Set(n)
		q.done.Raise(*n)
		return nil
	})
}

// Close cancels outstanding work and waits for it.
func (q *QualityController) Close() {
	q.tasks.Close()
}

func (q *QualityController) run(ctx context.Context, op string, fn func(context.Context) error) *Task {
	return q.tasks.Go(ctx, op, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		opErr := &OpError{Op: op, Err: err}
		if ctx.Err() == nil {
			q.logger.LogAttrs(ctx, slog.LevelError, "operation failed",
				logging.Op(op), logging.NightID(q.nightID), logging.Err(err))
			q.failures.Raise(opErr)
		}
		return opErr
	})
}

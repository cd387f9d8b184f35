package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is the handle for one piece of asynchronous work.
type Task struct {
	ID   string
	Name string

	done chan struct{}
	err  error
}

func newTask(name string) *Task {
	return &Task{
		ID:   uuid.New().String(),
		Name: name,
		done: make(chan struct{}),
	}
}

// finishedTask returns a task that has already completed with err.
func finishedTask(name string, err error) *Task {
	t := newTask(name)
	t.finish(err)
	return t
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's result. It is nil while the task is running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TaskGroup owns the asynchronous work started on behalf of one owner.
// Close cancels everything still running and waits for it to return.
type TaskGroup struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]*Task
	closed bool
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewTaskGroup creates an open task group.
func NewTaskGroup() *TaskGroup {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskGroup{
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]*Task),
	}
}

// Go runs fn on a new goroutine. fn's context is cancelled when either
// ctx is done or the group is closed. On a closed group Go returns a task
// that has already failed with ErrClosed.
func (g *TaskGroup) Go(ctx context.Context, name string, fn func(ctx context.Context) error) *Task {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return finishedTask(name, ErrClosed)
	}
	t := newTask(name)
	g.active[t.ID] = t
	g.wg.Add(1)
	g.mu.Unlock()

	taskCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(g.ctx, cancel)

	go func() {
		defer g.wg.Done()
		defer cancel()
		defer stop()

		err := fn(taskCtx)

		g.mu.Lock()
		delete(g.active, t.ID)
		g.mu.Unlock()

		t.finish(err)
	}()

	return t
}

// Active returns the number of tasks still running.
func (g *TaskGroup) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// Close cancels all running tasks and waits for them to return.
// Subsequent calls to Go fail with ErrClosed.
func (g *TaskGroup) Close() {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()

		g.cancel()
		g.wg.Wait()
	})
}

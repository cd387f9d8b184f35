package home

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/sleeptracker/internal/router"
	"github.com/abhisek/sleeptracker/internal/screen"
	"github.com/abhisek/sleeptracker/internal/store"
	"github.com/abhisek/sleeptracker/internal/tracker"
)

type stubScreen struct{ night store.Night }

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "quality" }
func (s *stubScreen) Title() string                           { return "Quality" }

func newTestHome(t *testing.T, opts Options) *HomeScreen {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "sleep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctl := tracker.New(st.NightRepo())
	t.Cleanup(ctl.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctl.Initialized().Wait(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	h := New(ctl, opts)
	t.Cleanup(h.Close)
	return h
}

func press(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// run executes cmd and any batched commands. It must not be given timers.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// act presses r, waits for the resulting task and syncs the screen.
func act(t *testing.T, h *HomeScreen, r rune) {
	t.Helper()
	_, cmd := h.Update(press(r))
	if cmd == nil {
		t.Fatalf("key %q produced no command", r)
	}
	for _, msg := range run(cmd) {
		if _, ok := msg.(taskDoneMsg); !ok {
			t.Fatalf("expected taskDoneMsg, got %T", msg)
		}
		h.Update(msg)
	}
	h.sync()
}

func TestInitialState(t *testing.T) {
	h := newTestHome(t, Options{})

	if h.menu.Items[itemStart].Disabled {
		t.Error("start should be enabled with nothing tracked")
	}
	if !h.menu.Items[itemStop].Disabled {
		t.Error("stop should be disabled with nothing tracked")
	}
	if !h.menu.Items[itemClear].Disabled {
		t.Error("clear should be disabled with an empty history")
	}
	if !h.menu.Items[itemInsight].Disabled {
		t.Error("insight should be disabled without a factory")
	}
	if !strings.Contains(h.Status(), "idle") {
		t.Errorf("expected idle status, got %q", h.Status())
	}
	if !strings.Contains(h.View(80, 20), "Here is your sleep data") {
		t.Error("expected history header in view")
	}
}

func TestInitDeliversCurrentState(t *testing.T) {
	h := newTestHome(t, Options{})
	msgs := run(h.Init())
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(changedMsg); !ok {
		t.Fatalf("expected changedMsg, got %T", msgs[0])
	}
}

func TestStartKey(t *testing.T) {
	h := newTestHome(t, Options{})
	act(t, h, 's')

	if !h.menu.Items[itemStart].Disabled || h.menu.Items[itemStop].Disabled {
		t.Error("expected start disabled and stop enabled while tracking")
	}
	if !strings.Contains(h.Status(), "tracking") {
		t.Errorf("expected tracking status, got %q", h.Status())
	}
	if h.busy != 0 {
		t.Errorf("expected no pending work, got %d", h.busy)
	}
}

func TestDisabledKeyIgnored(t *testing.T) {
	h := newTestHome(t, Options{})
	if _, cmd := h.Update(press('t')); cmd != nil {
		t.Error("stop without a tracked night should do nothing")
	}
}

func TestStopPushesQualityScreen(t *testing.T) {
	var rated *store.Night
	h := newTestHome(t, Options{NewQuality: func(n store.Night) screen.Screen {
		rated = &n
		return &stubScreen{night: n}
	}})
	act(t, h, 's')
	act(t, h, 't')

	var pushed bool
	for _, msg := range run(h.handleSignals()) {
		if _, ok := msg.(router.PushScreenMsg); ok {
			pushed = true
		}
	}
	if !pushed {
		t.Fatal("expected the quality screen to be pushed")
	}
	if rated == nil || rated.InProgress() {
		t.Fatalf("expected a stopped night, got %+v", rated)
	}
	if _, pending := h.ctl.Navigation().Peek(); pending {
		t.Error("navigation should be acknowledged")
	}
}

func TestClearShowsSnackbar(t *testing.T) {
	h := newTestHome(t, Options{})
	act(t, h, 's')
	act(t, h, 'c')

	if cmd := h.handleSignals(); cmd == nil {
		t.Fatal("expected an expiry timer")
	}
	if !h.snackbar {
		t.Fatal("expected snackbar to be visible")
	}
	if !strings.Contains(h.View(80, 20), SnackbarText) {
		t.Error("expected snackbar text in view")
	}

	h.Update(snackbarExpiredMsg{seq: h.snackSeq - 1})
	if !h.snackbar {
		t.Error("stale expiry must not hide the snackbar")
	}

	h.Update(snackbarExpiredMsg{seq: h.snackSeq})
	if h.snackbar {
		t.Error("expected snackbar hidden after expiry")
	}
	if _, pending := h.ctl.Notification().Peek(); pending {
		t.Error("notification should be acknowledged after expiry")
	}
	if h.menu.Items[itemStart].Disabled {
		t.Error("start should be enabled after clearing")
	}
}

func TestFailureShown(t *testing.T) {
	h := newTestHome(t, Options{})
	act(t, h, 's')

	task := h.ctl.Start(context.Background())
	<-task.Done()
	h.handleSignals()

	if !strings.Contains(h.failure, "already") {
		t.Errorf("expected already-tracking failure, got %q", h.failure)
	}
	if _, pending := h.ctl.Failures().Peek(); pending {
		t.Error("failure should be acknowledged once shown")
	}

	act(t, h, 't')
	if h.failure != "" {
		t.Errorf("expected failure cleared by the next action, got %q", h.failure)
	}
}

func TestInsightKey(t *testing.T) {
	h := newTestHome(t, Options{NewInsight: func() screen.Screen { return &stubScreen{} }})
	_, cmd := h.Update(press('i'))
	msgs := run(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(router.PushScreenMsg); !ok {
		t.Errorf("expected PushScreenMsg, got %T", msgs[0])
	}
}

func TestQuitKey(t *testing.T) {
	h := newTestHome(t, Options{})
	_, cmd := h.Update(press('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestResumeRefreshes(t *testing.T) {
	h := newTestHome(t, Options{})
	msgs := run(h.Resume())
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	done, ok := msgs[0].(taskDoneMsg)
	if !ok || done.op != tracker.OpRefresh || done.err != nil {
		t.Errorf("expected successful refresh, got %+v", msgs[0])
	}
}

func TestCloseReleasesWaiter(t *testing.T) {
	h := newTestHome(t, Options{})
	run(h.Init())
	h.Close()
	h.Close()

	if msg := h.waitForChange()(); msg != nil {
		t.Errorf("expected nil after close, got %T", msg)
	}
}

func TestEachStopPushedOnce(t *testing.T) {
	var pushes int
	h := newTestHome(t, Options{NewQuality: func(n store.Night) screen.Screen {
		pushes++
		return &stubScreen{night: n}
	}})

	for cycle := 1; cycle <= 2; cycle++ {
		act(t, h, 's')
		act(t, h, 't')
		run(h.handleSignals())
		run(h.handleSignals())
		if pushes != cycle {
			t.Fatalf("cycle %d: pushes = %d, want %d", cycle, pushes, cycle)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := h.ctl.Refresh(ctx).Wait(ctx)
		cancel()
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		h.sync()
	}
}

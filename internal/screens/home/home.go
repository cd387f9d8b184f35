// Package home is the tracker screen: start and stop buttons, the sleep
// history and the snackbar shown after clearing it.
package home

import (
	"context"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/sleeptracker/internal/router"
	"github.com/abhisek/sleeptracker/internal/screen"
	"github.com/abhisek/sleeptracker/internal/store"
	"github.com/abhisek/sleeptracker/internal/tracker"
	"github.com/abhisek/sleeptracker/internal/ui/components"
	"github.com/abhisek/sleeptracker/internal/ui/layout"
	"github.com/abhisek/sleeptracker/internal/ui/theme"
)

// SnackbarText is shown after the history has been cleared.
const SnackbarText = "All your sleep data is gone forever."

// SnackbarDuration is how long the snackbar stays before it is acknowledged.
const SnackbarDuration = 3 * time.Second

const (
	itemStart = iota
	itemStop
	itemClear
	itemInsight
)

// changedMsg reports that some controller state changed.
type changedMsg struct{}

type snackbarExpiredMsg struct{ seq int }

type taskDoneMsg struct {
	op  string
	err error
}

// Options wires the screens reachable from home.
type Options struct {
	// NewQuality builds the screen that rates a stopped night.
	NewQuality func(night store.Night) screen.Screen
	// NewInsight builds the insight screen. Nil hides the Insight action.
	NewInsight func() screen.Screen
}

// HomeScreen renders a tracker.Controller.
type HomeScreen struct {
	ctl  *tracker.Controller
	opts Options
	keys keyMap
	menu components.Menu

	changes     <-chan uint64
	unsubscribe func()
	done        chan struct{}

	tonight  *store.Night
	history  []string
	failure  string
	snackbar bool
	// snackSeq invalidates expiry ticks from earlier snackbars.
	snackSeq int
	busy     int
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.KeyHintProvider = (*HomeScreen)(nil)
var _ screen.StatusProvider = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)
var _ screen.Closer = (*HomeScreen)(nil)

// New creates a HomeScreen over ctl. The caller keeps ownership of ctl.
func New(ctl *tracker.Controller, opts Options) *HomeScreen {
	h := &HomeScreen{
		ctl:  ctl,
		opts: opts,
		keys: defaultKeys(),
		done: make(chan struct{}),
	}
	items := []components.MenuItem{
		itemStart:   {Label: "Start", Action: h.start},
		itemStop:    {Label: "Stop", Action: h.stop},
		itemClear:   {Label: "Clear", Action: h.clear},
		itemInsight: {Label: "Insight", Action: h.insight, Disabled: opts.NewInsight == nil},
	}
	h.menu = components.NewMenu(items)
	h.sync()
	return h
}

func (h *HomeScreen) Init() tea.Cmd {
	h.changes, h.unsubscribe = h.ctl.Changes()
	return h.waitForChange()
}

func (h *HomeScreen) Title() string {
	return "Tonight"
}

// Status shows whether a night is being tracked.
func (h *HomeScreen) Status() string {
	if h.tonight != nil && h.tonight.InProgress() {
		return theme.Tracking.Render("● tracking since " + h.tonight.StartTime.Local().Format("15:04"))
	}
	return theme.Idle.Render("○ idle")
}

func (h *HomeScreen) KeyHints() []layout.KeyHint {
	bindings := []key.Binding{h.keys.Start, h.keys.Stop, h.keys.Clear}
	if h.opts.NewInsight != nil {
		bindings = append(bindings, h.keys.Insight)
	}
	bindings = append(bindings, h.keys.Quit)

	hints := []layout.KeyHint{{Key: "←→", Description: "Focus"}, {Key: "Enter", Description: "Press"}}
	for _, b := range bindings {
		hints = append(hints, layout.KeyHint{Key: b.Help().Key, Description: b.Help().Desc})
	}
	return hints
}

// Resume refreshes tonight after the quality screen is popped.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.await(tracker.OpRefresh, h.ctl.Refresh(context.Background()))
}

// Close stops listening for controller changes.
func (h *HomeScreen) Close() {
	select {
	case <-h.done:
		return
	default:
	}
	close(h.done)
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		h.sync()
		return h, tea.Batch(h.handleSignals(), h.waitForChange())

	case snackbarExpiredMsg:
		if msg.seq == h.snackSeq && h.snackbar {
			h.snackbar = false
			h.ctl.AcknowledgeNotification()
		}
		return h, nil

	case taskDoneMsg:
		h.busy = max(h.busy-1, 0)
		return h, nil

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, h.keys.Quit):
			return h, tea.Quit
		case key.Matches(msg, h.keys.Start):
			return h, h.trigger(itemStart)
		case key.Matches(msg, h.keys.Stop):
			return h, h.trigger(itemStop)
		case key.Matches(msg, h.keys.Clear):
			return h, h.trigger(itemClear)
		case key.Matches(msg, h.keys.Insight):
			return h, h.trigger(itemInsight)
		}
		var cmd tea.Cmd
		h.menu, cmd = h.menu.Update(msg)
		return h, cmd
	}
	return h, nil
}

func (h *HomeScreen) View(width, height int) string {
	var sections []string

	sections = append(sections, lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(h.menu.View()))

	if h.failure != "" {
		sections = append(sections, theme.ErrorText.Width(width).Align(lipgloss.Center).Render(h.failure))
	} else if h.busy > 0 {
		sections = append(sections, theme.Hint.Width(width).Align(lipgloss.Center).Render("working..."))
	}

	reserved := lipgloss.Height(strings.Join(sections, "\n")) + 2
	if h.snackbar {
		reserved += 2
	}
	histHeight := max(height-reserved, 1)

	hist := theme.Body.Render(strings.Join(clip(h.history, histHeight), "\n"))
	sections = append(sections, "", lipgloss.NewStyle().PaddingLeft(2).Render(hist))

	content := strings.Join(sections, "\n")
	if h.snackbar {
		bar := lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(theme.Snackbar.Render(SnackbarText))
		body := lipgloss.NewStyle().Height(max(height-2, 0)).MaxHeight(max(height-2, 0)).Render(content)
		return body + "\n\n" + bar
	}
	return content
}

// sync copies the controller's observables into the screen.
func (h *HomeScreen) sync() {
	h.tonight = h.ctl.Tonight().Get()
	h.history = h.ctl.NightsText().Get()
	h.menu.SetDisabled(itemStart, !h.ctl.StartEnabled().Get())
	h.menu.SetDisabled(itemStop, !h.ctl.StopEnabled().Get())
	h.menu.SetDisabled(itemClear, !h.ctl.ClearEnabled().Get())
}

// handleSignals consumes pending navigation and failure events and shows
// the snackbar for a pending notification.
func (h *HomeScreen) handleSignals() tea.Cmd {
	var cmds []tea.Cmd

	if err, ok := h.ctl.Failures().Take(); ok {
		h.failure = err.Error()
	}

	if _, ok := h.ctl.Notification().Peek(); ok && !h.snackbar {
		h.snackbar = true
		h.snackSeq++
		seq := h.snackSeq
		cmds = append(cmds, tea.Tick(SnackbarDuration, func(time.Time) tea.Msg {
			return snackbarExpiredMsg{seq: seq}
		}))
	}

	if night, ok := h.ctl.Navigation().Take(); ok {
		if h.opts.NewQuality != nil {
			next := h.opts.NewQuality(night)
			cmds = append(cmds, func() tea.Msg { return router.PushScreenMsg{Screen: next} })
		}
	}

	return tea.Batch(cmds...)
}

func (h *HomeScreen) waitForChange() tea.Cmd {
	changes, done := h.changes, h.done
	return func() tea.Msg {
		select {
		case <-done:
			return nil
		default:
		}
		select {
		case <-changes:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

// trigger runs a menu item's action if it is enabled.
func (h *HomeScreen) trigger(i int) tea.Cmd {
	item := h.menu.Items[i]
	if item.Disabled || item.Action == nil {
		return nil
	}
	h.menu.Selected = i
	return item.Action()
}

func (h *HomeScreen) start() tea.Cmd {
	return h.await(tracker.OpStart, h.ctl.Start(context.Background()))
}

func (h *HomeScreen) stop() tea.Cmd {
	return h.await(tracker.OpStop, h.ctl.Stop(context.Background()))
}

func (h *HomeScreen) clear() tea.Cmd {
	return h.await(tracker.OpClear, h.ctl.Clear(context.Background()))
}

func (h *HomeScreen) insight() tea.Cmd {
	if h.opts.NewInsight == nil {
		return nil
	}
	next := h.opts.NewInsight()
	return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
}

// await clears the last failure and reports when task finishes. Results
// reach the screen through the controller's observables, not the message.
func (h *HomeScreen) await(op string, task *tracker.Task) tea.Cmd {
	h.failure = ""
	h.busy++
	return func() tea.Msg {
		<-task.Done()
		return taskDoneMsg{op: op, err: task.Err()}
	}
}

// clip keeps the first n lines, marking the cut.
func clip(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	if n <= 1 {
		return []string{"..."}
	}
	out := append([]string(nil), lines[:n-1]...)
	return append(out, "...")
}

// Package app is the root Bubble Tea model: a router of screens framed by
// a header and a footer.
package app

import (
	"fmt"
	"log/slog"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/sleeptracker/internal/insight"
	"github.com/abhisek/sleeptracker/internal/logging"
	"github.com/abhisek/sleeptracker/internal/router"
	"github.com/abhisek/sleeptracker/internal/screen"
	"github.com/abhisek/sleeptracker/internal/screens/home"
	insightscreen "github.com/abhisek/sleeptracker/internal/screens/insight"
	"github.com/abhisek/sleeptracker/internal/screens/quality"
	"github.com/abhisek/sleeptracker/internal/screens/welcome"
	"github.com/abhisek/sleeptracker/internal/store"
	"github.com/abhisek/sleeptracker/internal/tracker"
	"github.com/abhisek/sleeptracker/internal/ui/layout"
)

// Options holds what the screens need. Controller and Repo are required.
type Options struct {
	Controller *tracker.Controller
	Repo       store.NightRepo
	// Insight may be nil; the insight action is then hidden.
	Insight    *insight.Service
	Logger     *slog.Logger
	SkipSplash bool
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

func newAppModel(opts Options) AppModel {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	homeOpts := home.Options{
		NewQuality: func(n store.Night) screen.Screen {
			return quality.New(opts.Repo, n, tracker.WithLogger(logger))
		},
	}
	if opts.Insight.Available() {
		homeOpts.NewInsight = func() screen.Screen {
			return insightscreen.New(opts.Insight, opts.Repo)
		}
	}
	newHome := func() screen.Screen { return home.New(opts.Controller, homeOpts) }

	var first screen.Screen
	if opts.SkipSplash {
		first = newHome()
	} else {
		first = welcome.New(newHome)
	}
	return AppModel{router: router.New(first)}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.frame())
	return v
}

// frame renders the whole terminal: header, active screen and footer.
func (m AppModel) frame() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title, status := "", ""
	if active != nil {
		title = active.Title()
	}
	if sp, ok := active.(screen.StatusProvider); ok {
		status = sp.Status()
	}
	header := layout.RenderHeader(title, status, m.width)

	var hints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		hints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		hints = []layout.KeyHint{{Key: "Esc", Description: "Back"}}
	}
	hints = append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
	footer := layout.RenderFooter(hints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Close closes every screen still on the stack.
func (m AppModel) Close() {
	m.router.Close()
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := newAppModel(opts)
	defer m.Close()

	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}

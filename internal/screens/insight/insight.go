// Package insight shows an LLM commentary on recent nights.
package insight

import (
	"context"
	"errors"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	svc "github.com/abhisek/sleeptracker/internal/insight"
	"github.com/abhisek/sleeptracker/internal/screen"
	"github.com/abhisek/sleeptracker/internal/store"
	"github.com/abhisek/sleeptracker/internal/ui/layout"
	"github.com/abhisek/sleeptracker/internal/ui/theme"
)

type resultMsg struct {
	insight *svc.Insight
	err     error
}

// InsightScreen loads one insight when shown.
type InsightScreen struct {
	service *svc.Service
	repo    store.NightRepo

	ctx    context.Context
	cancel context.CancelFunc

	spinner spinner.Model
	loading bool
	result  *svc.Insight
	errMsg  string
}

var _ screen.Screen = (*InsightScreen)(nil)
var _ screen.KeyHintProvider = (*InsightScreen)(nil)
var _ screen.Closer = (*InsightScreen)(nil)

func New(service *svc.Service, repo store.NightRepo) *InsightScreen {
	ctx, cancel := context.WithCancel(context.Background())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)
	return &InsightScreen{
		service: service,
		repo:    repo,
		ctx:     ctx,
		cancel:  cancel,
		spinner: sp,
		loading: true,
	}
}

func (s *InsightScreen) Init() tea.Cmd {
	return tea.Batch(s.spinner.Tick, s.generate())
}

func (s *InsightScreen) Title() string {
	return "Insight"
}

func (s *InsightScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

// Close abandons a request still in flight.
func (s *InsightScreen) Close() {
	s.cancel()
}

func (s *InsightScreen) generate() tea.Cmd {
	ctx, service, repo := s.ctx, s.service, s.repo
	return func() tea.Msg {
		if !service.Available() {
			return resultMsg{err: svc.ErrUnavailable}
		}
		nights, err := repo.All(ctx)
		if err != nil {
			return resultMsg{err: err}
		}
		in, err := service.Generate(ctx, nights)
		return resultMsg{insight: in, err: err}
	}
}

func (s *InsightScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case resultMsg:
		s.loading = false
		switch {
		case errors.Is(msg.err, context.Canceled):
		case msg.err != nil:
			s.errMsg = msg.err.Error()
		default:
			s.result = msg.insight
		}
	}
	return s, nil
}

func (s *InsightScreen) View(width, height int) string {
	var content string
	switch {
	case s.loading:
		content = s.spinner.View() + " " + theme.Hint.Render("Reading your nights...")
	case s.errMsg != "":
		content = theme.ErrorText.Render(s.errMsg)
	case s.result != nil:
		wrap := lipgloss.NewStyle().Width(min(max(width-8, 20), 60))
		content = strings.Join([]string{
			theme.Title.Render(s.result.Headline),
			"",
			wrap.Inherit(theme.Body).Render(s.result.Observation),
			"",
			wrap.Foreground(theme.Accent).Render("Tip: " + s.result.Tip),
		}, "\n")
		content = theme.Card.Render(content)
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

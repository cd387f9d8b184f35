// Package quality is the screen that rates a night right after it stops.
package quality

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/sleeptracker/internal/format"
	"github.com/abhisek/sleeptracker/internal/router"
	"github.com/abhisek/sleeptracker/internal/screen"
	"github.com/abhisek/sleeptracker/internal/store"
	"github.com/abhisek/sleeptracker/internal/tracker"
	"github.com/abhisek/sleeptracker/internal/ui/components"
	"github.com/abhisek/sleeptracker/internal/ui/layout"
	"github.com/abhisek/sleeptracker/internal/ui/theme"
)

// DefaultRating is preselected when the night has no rating yet.
const DefaultRating = 3

type loadedMsg struct{ err error }

type savedMsg struct{ err error }

// QualityScreen owns a tracker.QualityController for one night.
type QualityScreen struct {
	ctl    *tracker.QualityController
	night  store.Night
	rating components.Rating

	loaded bool
	saving bool
	errMsg string
}

var _ screen.Screen = (*QualityScreen)(nil)
var _ screen.KeyHintProvider = (*QualityScreen)(nil)
var _ screen.Closer = (*QualityScreen)(nil)

// New creates a screen rating night, which the caller has just stopped.
func New(repo store.NightRepo, night store.Night, opts ...tracker.Option) *QualityScreen {
	selected := DefaultRating
	if night.Quality >= tracker.MinQuality {
		selected = night.Quality
	}
	return &QualityScreen{
		ctl:    tracker.NewQualityController(repo, night.ID, opts...),
		night:  night,
		rating: components.NewRating(tracker.MinQuality, tracker.MaxQuality, selected, format.Quality),
	}
}

func (s *QualityScreen) Init() tea.Cmd {
	task := s.ctl.Loaded()
	return func() tea.Msg {
		<-task.Done()
		return loadedMsg{err: task.Err()}
	}
}

func (s *QualityScreen) Title() string {
	return "How did you sleep?"
}

func (s *QualityScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Choose"},
		{Key: "0-5", Description: "Pick"},
		{Key: "Enter", Description: "Save"},
		{Key: "Esc", Description: "Skip"},
	}
}

// Close cancels a save still in flight.
func (s *QualityScreen) Close() {
	s.ctl.Close()
}

func (s *QualityScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.loaded = true
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			s.ctl.Failures().Acknowledge()
			return s, nil
		}
		if n := s.ctl.Night().Get(); n != nil {
			s.night = *n
		}
		return s, nil

	case savedMsg:
		s.saving = false
		if msg.err != nil {
			s.errMsg = msg.err.Error()
			s.ctl.Failures().Acknowledge()
			return s, nil
		}
		if _, ok := s.ctl.Done().Take(); ok {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, nil

	case tea.KeyPressMsg:
		if s.saving {
			return s, nil
		}
		if msg.String() == "enter" {
			return s, s.save()
		}
		s.rating, _ = s.rating.Update(msg)
	}
	return s, nil
}

func (s *QualityScreen) save() tea.Cmd {
	s.saving = true
	s.errMsg = ""
	task := s.ctl.SetQuality(context.Background(), s.rating.Selected)
	return func() tea.Msg {
		<-task.Done()
		return savedMsg{err: task.Err()}
	}
}

func (s *QualityScreen) View(width, height int) string {
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var b strings.Builder
	b.WriteString(center.Foreground(theme.Primary).Bold(true).Render("Night of " + format.Timestamp(s.night.StartTime)))
	b.WriteString("\n")
	b.WriteString(center.Foreground(theme.TextDim).Render("Slept " + format.Duration(s.night)))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Card.Render(s.rating.View())))
	b.WriteString("\n\n")

	switch {
	case s.errMsg != "":
		b.WriteString(center.Inherit(theme.ErrorText).Render(s.errMsg))
	case s.saving:
		b.WriteString(center.Inherit(theme.Hint).Render("saving..."))
	case !s.loaded:
		b.WriteString(center.Inherit(theme.Hint).Render("loading..."))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

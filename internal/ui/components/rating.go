package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/sleeptracker/internal/ui/theme"
)

// Rating picks one of a fixed range of integer scores.
type Rating struct {
	Min, Max int
	Selected int
	// Label describes a score; nil renders the bare number.
	Label func(int) string
}

// NewRating creates a picker over lo..hi starting at selected, clamped.
func NewRating(lo, hi, selected int, label func(int) string) Rating {
	r := Rating{Min: lo, Max: hi, Label: label}
	r.Selected = r.clamp(selected)
	return r
}

// Update moves the selection with arrow keys or jumps to a typed digit.
// It never submits; callers handle enter.
func (r Rating) Update(msg tea.Msg) (Rating, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return r, nil
	}

	switch s := kmsg.String(); s {
	case "up", "k", "right", "l":
		r.Selected = r.clamp(r.Selected + 1)
	case "down", "j", "left", "h":
		r.Selected = r.clamp(r.Selected - 1)
	default:
		if len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
			if v := int(s[0] - '0'); v >= r.Min && v <= r.Max {
				r.Selected = v
			}
		}
	}
	return r, nil
}

// View renders the scores from highest to lowest.
func (r Rating) View() string {
	var b strings.Builder
	for v := r.Max; v >= r.Min; v-- {
		line := fmt.Sprintf("%d", v)
		if r.Label != nil {
			line = fmt.Sprintf("%d  %s", v, r.Label(v))
		}
		if v == r.Selected {
			b.WriteString(theme.Selected.Render("▸ " + line))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Render("  " + line))
		}
		if v > r.Min {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (r Rating) clamp(v int) int {
	return min(max(v, r.Min), r.Max)
}

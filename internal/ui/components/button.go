package components

import (
	"github.com/abhisek/sleeptracker/internal/ui/theme"
)

// Button is a labelled action that can be disabled and focused.
type Button struct {
	Label   string
	Enabled bool
	Focused bool
}

// View renders the button.
func (b Button) View() string {
	switch {
	case !b.Enabled:
		return theme.ButtonDisabled.Render(b.Label)
	case b.Focused:
		return theme.ButtonFocused.Render(b.Label)
	default:
		return theme.ButtonEnabled.Render(b.Label)
	}
}

package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/sleeptracker/internal/ui/theme"
)

const bannerArt = `
 ┌─┐┬  ┌─┐┌─┐┌─┐┌┬┐┬─┐┌─┐┌─┐┬┌─┌─┐┬─┐
 └─┐│  ├┤ ├┤ ├─┘ │ ├┬┘├─┤│  ├┴┐├┤ ├┬┘
 └─┘┴─┘└─┘└─┘┴   ┴ ┴└─┴ ┴└─┘┴ ┴└─┘┴└─`

const bannerCompact = "S L E E P T R A C K E R"

// RenderBanner returns the banner styled in the primary color, falling
// back to spaced capitals below 40 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 40 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}

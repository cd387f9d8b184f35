package components

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// MenuItem is one button in a Menu.
type MenuItem struct {
	Label    string
	Action   func() tea.Cmd
	Disabled bool
}

// Menu is a horizontal row of buttons. Focus skips disabled items.
type Menu struct {
	Items    []MenuItem
	Selected int
}

// NewMenu creates a menu focused on its first enabled item.
func NewMenu(items []MenuItem) Menu {
	m := Menu{Items: items}
	m.Selected = m.firstEnabled()
	return m
}

// SetDisabled updates the enabled state of item i, moving focus off it
// when it becomes disabled.
func (m *Menu) SetDisabled(i int, disabled bool) {
	if i < 0 || i >= len(m.Items) {
		return
	}
	m.Items[i].Disabled = disabled
	if m.Selected < 0 || m.Items[m.Selected].Disabled {
		m.Selected = m.firstEnabled()
	}
}

// Update handles left/right navigation and enter.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch kmsg.String() {
	case "left", "h", "shift+tab":
		for i := m.Selected - 1; i >= 0; i-- {
			if !m.Items[i].Disabled {
				m.Selected = i
				break
			}
		}
	case "right", "l", "tab":
		for i := m.Selected + 1; i < len(m.Items); i++ {
			if !m.Items[i].Disabled {
				m.Selected = i
				break
			}
		}
	case "enter":
		if m.Selected >= 0 && m.Selected < len(m.Items) {
			item := m.Items[m.Selected]
			if item.Action != nil && !item.Disabled {
				return m, item.Action()
			}
		}
	}

	return m, nil
}

// View renders the buttons side by side.
func (m Menu) View() string {
	buttons := make([]string, 0, len(m.Items)*2)
	for i, item := range m.Items {
		if i > 0 {
			buttons = append(buttons, "  ")
		}
		buttons = append(buttons, Button{
			Label:   item.Label,
			Enabled: !item.Disabled,
			Focused: i == m.Selected,
		}.View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, buttons...)
}

func (m Menu) firstEnabled() int {
	for i, item := range m.Items {
		if !item.Disabled {
			return i
		}
	}
	return -1
}

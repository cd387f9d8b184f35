package home

import "charm.land/bubbles/v2/key"

type keyMap struct {
	Start   key.Binding
	Stop    key.Binding
	Clear   key.Binding
	Insight key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Start")),
		Stop:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "Stop")),
		Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "Clear")),
		Insight: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "Insight")),
		Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "Quit")),
	}
}

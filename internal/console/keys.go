package console

import "github.com/charmbracelet/bubbles/key"

// keyMap declares every binding the board understands.
type keyMap struct {
	NextPanel key.Binding
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Arm       key.Binding
	Engage    key.Binding
	Disarm    key.Binding
	Runbook   key.Binding
	Close     key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextPanel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "scope"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "scope"),
		),
		Arm: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "arm"),
		),
		Engage: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "engage"),
		),
		Disarm: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disarm"),
		),
		Runbook: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "runbook"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up   key.Binding
	down key.Binding
	open key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		open: key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open playlist")),
		quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.open, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.up, k.down}, {k.open, k.quit}}
}

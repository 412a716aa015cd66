package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	play   key.Binding
	stop   key.Binding
	remove key.Binding
	build  key.Binding
	yes    key.Binding
	no     key.Binding
	back   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		play:   key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "play")),
		stop:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		remove: key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		build:  key.NewBinding(key.WithKeys("b", "enter"), key.WithHelp("b", "build")),
		yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		back:   key.NewBinding(key.WithKeys("r", "esc"), key.WithHelp("r", "back")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.play, k.stop},
		{k.remove, k.build, k.yes, k.no},
		{k.back, k.quit},
	}
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Complete key.Binding
	Delete   key.Binding
	Add      key.Binding
	Switch   key.Binding
	Refresh  key.Binding
	Logout   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Complete: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "complete")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Switch:   key.NewBinding(key.WithKeys("c", "tab"), key.WithHelp("c", "tasks/challenges")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) taskHelp() []key.Binding {
	return []key.Binding{k.Complete, k.Delete, k.Add, k.Switch, k.Refresh, k.Logout}
}

func (k keyMap) challengeHelp() []key.Binding {
	return []key.Binding{k.Complete, k.Switch, k.Refresh, k.Logout}
}

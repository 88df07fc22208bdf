package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next        key.Binding
	Prev        key.Binding
	Submit      key.Binding
	Close       key.Binding
	Quit        key.Binding
	PageDetails key.Binding

	Login  key.Binding
	Signup key.Binding

	OpenTask   key.Binding
	CopyLink   key.Binding
	AddAnother key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Prev:        key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
		Submit:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "add task")),
		Close:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c")),
		PageDetails: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "use page details")),

		Login:  key.NewBinding(key.WithKeys("l", "enter"), key.WithHelp("l", "log in")),
		Signup: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sign up")),

		OpenTask:   key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open task")),
		CopyLink:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy link")),
		AddAnother: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add another")),
	}
}

func helpLine(bs ...key.Binding) string {
	out := ""
	for i, b := range bs {
		h := b.Help()
		if i > 0 {
			out += "  "
		}
		out += h.Key + " " + h.Desc
	}
	return out
}

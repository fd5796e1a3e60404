package main

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	SelectPrevMessage key.Binding
	SelectNextMessage key.Binding
	UnfocusInput      key.Binding
	FocusInput        key.Binding
	SubmitMessage     key.Binding
	NewConversation   key.Binding
	Quit              key.Binding
}

var DefaultKeyMap = KeyMap{
	SelectPrevMessage: key.NewBinding(key.WithKeys("up")),
	SelectNextMessage: key.NewBinding(key.WithKeys("down")),
	UnfocusInput:      key.NewBinding(key.WithKeys("esc", "ctrl+g")),
	FocusInput:        key.NewBinding(key.WithKeys("enter")),
	SubmitMessage:     key.NewBinding(key.WithKeys("tab")),
	NewConversation:   key.NewBinding(key.WithKeys("ctrl+n")),
	Quit:              key.NewBinding(key.WithKeys("ctrl+c")),
}

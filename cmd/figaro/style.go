package main

import "github.com/charmbracelet/lipgloss"

type Style struct {
	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style
	SelectedMessage  lipgloss.Style
	ErroredMessage   lipgloss.Style
	FocusedInput     lipgloss.Style
	BlurredInput     lipgloss.Style
	StatusBar        lipgloss.Style
}

type BorderColors struct {
	User      string
	Assistant string
	Selected  string
	Errored   string
	Focused   string
}

func DefaultStyles() *Style {
	lightModeColors := BorderColors{
		User:      "#CCCCCC",
		Assistant: "#AACCEE",
		Selected:  "#FFB6C1", // Light pink
		Errored:   "#EE9999",
		Focused:   "#FFFF99", // Light yellow
	}

	darkModeColors := BorderColors{
		User:      "#444444",
		Assistant: "#3B6A8F",
		Selected:  "#DD7090", // Desaturated pink for dark mode
		Errored:   "#AA5555",
		Focused:   "#DDDD77", // Desaturated yellow for dark mode
	}

	border := func(light string, dark string) lipgloss.Style {
		return lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: light,
				Dark:  dark,
			})
	}

	return &Style{
		UserMessage:      border(lightModeColors.User, darkModeColors.User),
		AssistantMessage: border(lightModeColors.Assistant, darkModeColors.Assistant),
		ErroredMessage:   border(lightModeColors.Errored, darkModeColors.Errored),
		SelectedMessage: lipgloss.NewStyle().Border(lipgloss.ThickBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: lightModeColors.Selected,
				Dark:  darkModeColors.Selected,
			}),
		FocusedInput: border(lightModeColors.Focused, darkModeColors.Focused),
		BlurredInput: border(lightModeColors.User, darkModeColors.User),
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}).
			Padding(0, 1),
	}
}

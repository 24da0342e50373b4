package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme and styling
type Theme struct {
	Name string

	// Background colors
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color

	// UI elements
	Border        lipgloss.Color
	BorderFocused lipgloss.Color
	Selection     lipgloss.Color
	Cursor        lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// Filter preview
	Connective lipgloss.Color
	Field      lipgloss.Color
	Operator   lipgloss.Color
	Value      lipgloss.Color

	// Condition groups
	GroupAnd lipgloss.Color
	GroupOr  lipgloss.Color
}

// Names lists the available themes
func Names() []string {
	return []string{"default", "catppuccin-mocha"}
}

// GetTheme returns a theme by name, falling back to the default theme
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin", "catppuccin-mocha":
		return CatppuccinMochaTheme()
	default:
		return DefaultTheme()
	}
}

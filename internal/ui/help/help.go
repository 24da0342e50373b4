package help

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazysearch/internal/ui/theme"
)

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         string
	Description string
}

// Section is a titled group of key bindings
type Section struct {
	Title string
	Keys  []KeyBinding
}

// GetGlobalKeys returns global key bindings
func GetGlobalKeys() []KeyBinding {
	return []KeyBinding{
		{"?", "Toggle help"},
		{"Ctrl+C", "Quit application"},
		{"Esc/Enter", "Dismiss error"},
	}
}

// GetPickerKeys returns profile picker key bindings
func GetPickerKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/k", "Move up"},
		{"↓/j", "Move down"},
		{"/", "Search profiles"},
		{"Enter", "Choose profile"},
		{"q, Esc", "Quit"},
	}
}

// GetEditorKeys returns condition editor key bindings
func GetEditorKeys() []KeyBinding {
	return []KeyBinding{
		{"a", "Add condition"},
		{"e", "Edit value or expression"},
		{"d", "Delete condition"},
		{"g", "Toggle AND/OR group"},
		{"Shift+K/J", "Move condition up/down"},
		{"t", "Switch lines/expression"},
		{"r", "Reset to profile"},
		{"Tab", "Complete field name"},
		{"Enter", "Search"},
		{"Esc", "Back to profiles"},
	}
}

// GetResultKeys returns result view key bindings
func GetResultKeys() []KeyBinding {
	return []KeyBinding{
		{"↑/k, ↓/j", "Move selection"},
		{"PgUp/PgDn", "Page up/down"},
		{"Enter", "Finish with this result"},
		{"Esc", "New search"},
	}
}

// Sections returns every help section in display order
func Sections() []Section {
	return []Section{
		{"Global", GetGlobalKeys()},
		{"Profiles", GetPickerKeys()},
		{"Conditions", GetEditorKeys()},
		{"Result", GetResultKeys()},
	}
}

// Render creates the help view
func Render(width, height int, th theme.Theme) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.BorderFocused).
		Padding(1, 0)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Info).
		Padding(0, 0, 0, 2)

	keyStyle := lipgloss.NewStyle().
		Foreground(th.Warning).
		Width(20)

	descStyle := lipgloss.NewStyle().
		Foreground(th.Foreground)

	var b strings.Builder

	b.WriteString(titleStyle.Render("lazysearch - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, section := range Sections() {
		b.WriteString(sectionStyle.Render(section.Title))
		b.WriteString("\n")
		for _, kb := range section.Keys {
			b.WriteString("  ")
			b.WriteString(keyStyle.Render(kb.Key))
			b.WriteString(descStyle.Render(kb.Description))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press '?' or Esc to close help"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.BorderFocused).
		Padding(1, 2).
		Width(width - 4).
		Height(height - 4)

	return boxStyle.Render(b.String())
}

package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazysearch/internal/ui/theme"
)

// ErrorOverlay shows a failure on top of the current view until dismissed
type ErrorOverlay struct {
	Title   string
	Message string
	// Detail is shown below the message, e.g. the rejected filter
	Detail string
	Width  int
	Theme  theme.Theme
}

// NewErrorOverlay creates an empty overlay
func NewErrorOverlay(th theme.Theme) *ErrorOverlay {
	return &ErrorOverlay{Theme: th, Width: 70}
}

// SetError fills the overlay
func (eo *ErrorOverlay) SetError(title, message, detail string) {
	eo.Title = title
	eo.Message = message
	eo.Detail = detail
}

// View renders the overlay
func (eo *ErrorOverlay) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(eo.Theme.Error)
	msgStyle := lipgloss.NewStyle().Foreground(eo.Theme.Foreground).Width(eo.Width - 4)
	detailStyle := lipgloss.NewStyle().Foreground(eo.Theme.Value).Italic(true).Width(eo.Width - 4)
	hintStyle := lipgloss.NewStyle().Foreground(eo.Theme.Muted)

	content := titleStyle.Render("✗ "+eo.Title) + "\n\n" + msgStyle.Render(eo.Message)
	if eo.Detail != "" {
		content += "\n\n" + detailStyle.Render(eo.Detail)
	}
	content += "\n\n" + hintStyle.Render("Press Esc or Enter to dismiss")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(eo.Theme.Error).
		Padding(1, 2).
		Width(eo.Width).
		Render(content)
}

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/rebeliceyang/lazysearch/internal/ui/theme"
)

// ResultView displays an opened search: its descriptor and the matching ids
type ResultView struct {
	Width  int
	Height int
	Theme  theme.Theme

	Result models.ResultDescriptor

	// Virtual scrolling state
	TopRow      int
	VisibleRows int
	SelectedRow int
}

// NewResultView creates a new result view
func NewResultView(th theme.Theme) *ResultView {
	return &ResultView{Theme: th}
}

// SetResult replaces the displayed result and resets scrolling
func (rv *ResultView) SetResult(r models.ResultDescriptor) {
	rv.Result = r
	rv.TopRow = 0
	rv.SelectedRow = 0
}

// SelectedID returns the id under the cursor
func (rv *ResultView) SelectedID() (int64, bool) {
	if rv.SelectedRow < 0 || rv.SelectedRow >= len(rv.Result.RecordIDs) {
		return 0, false
	}
	return rv.Result.RecordIDs[rv.SelectedRow], true
}

// View renders the result
func (rv *ResultView) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(rv.Theme.Foreground).
		Background(rv.Theme.Info).
		Padding(0, 1)
	b.WriteString(titleStyle.Render(rv.Result.Name))
	b.WriteString("\n")

	labelStyle := lipgloss.NewStyle().Foreground(rv.Theme.Muted)
	valueStyle := lipgloss.NewStyle().Foreground(rv.Theme.Value)
	b.WriteString(labelStyle.Render("Entity:  ") + rv.Result.EntityType + "\n")
	b.WriteString(labelStyle.Render("Filter:  ") + valueStyle.Render(truncate(rv.Result.Filter, rv.Width-12)) + "\n")
	if rv.Result.ActionID != "" {
		b.WriteString(labelStyle.Render("Action:  ") + rv.Result.ActionID + "\n")
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(rv.Theme.Field).
		Background(rv.Theme.Selection)
	b.WriteString(header.Render(fmt.Sprintf(" %-12s ", "ID")))
	b.WriteString("\n")

	ids := rv.Result.RecordIDs
	if len(ids) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(rv.Theme.Muted).Italic(true).Render(" No matching records"))
		return lipgloss.NewStyle().Width(rv.Width).Height(rv.Height).Render(b.String())
	}

	// Header lines + id header + status
	rv.VisibleRows = rv.Height - 6
	if rv.Result.ActionID != "" {
		rv.VisibleRows--
	}
	if rv.VisibleRows < 1 {
		rv.VisibleRows = 1
	}

	endRow := rv.TopRow + rv.VisibleRows
	if endRow > len(ids) {
		endRow = len(ids)
	}
	for i := rv.TopRow; i < endRow; i++ {
		line := fmt.Sprintf(" %-12d ", ids[i])
		if i == rv.SelectedRow {
			line = lipgloss.NewStyle().
				Background(rv.Theme.Cursor).
				Foreground(rv.Theme.Background).
				Bold(true).
				Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	status := fmt.Sprintf(" %d-%d of %d records", rv.TopRow+1, endRow, len(ids))
	b.WriteString(lipgloss.NewStyle().Foreground(rv.Theme.Muted).Italic(true).Render(status))

	return lipgloss.NewStyle().Width(rv.Width).Height(rv.Height).Render(b.String())
}

// MoveSelection moves the selection up or down
func (rv *ResultView) MoveSelection(delta int) {
	n := len(rv.Result.RecordIDs)
	if n == 0 {
		return
	}
	rv.SelectedRow += delta

	if rv.SelectedRow < 0 {
		rv.SelectedRow = 0
	}
	if rv.SelectedRow >= n {
		rv.SelectedRow = n - 1
	}

	visible := rv.VisibleRows
	if visible < 1 {
		visible = 1
	}
	if rv.SelectedRow < rv.TopRow {
		rv.TopRow = rv.SelectedRow
	}
	if rv.SelectedRow >= rv.TopRow+visible {
		rv.TopRow = rv.SelectedRow - visible + 1
	}
}

// PageUp/PageDown
func (rv *ResultView) PageUp() {
	rv.MoveSelection(-rv.page())
	rv.TopRow = rv.SelectedRow
}

func (rv *ResultView) PageDown() {
	n := len(rv.Result.RecordIDs)
	rv.MoveSelection(rv.page())
	rv.TopRow = rv.SelectedRow
	if rv.TopRow+rv.page() > n {
		rv.TopRow = n - rv.page()
		if rv.TopRow < 0 {
			rv.TopRow = 0
		}
	}
}

func (rv *ResultView) page() int {
	if rv.VisibleRows < 1 {
		return 1
	}
	return rv.VisibleRows
}

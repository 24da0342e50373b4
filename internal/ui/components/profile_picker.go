package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/rebeliceyang/lazysearch/internal/ui/theme"
)

// SelectProfileMsg is sent when a profile is chosen
type SelectProfileMsg struct {
	Profile models.Profile
}

// CloseProfilePickerMsg is sent when the picker should close
type CloseProfilePickerMsg struct{}

// ProfilePicker lists the profiles the user may search with
type ProfilePicker struct {
	Width  int
	Height int
	Theme  theme.Theme

	profiles []models.Profile
	visible  []int // indexes into profiles matching the search
	selected int
	offset   int

	search    textinput.Model
	searching bool
}

// NewProfilePicker creates a new profile picker
func NewProfilePicker(th theme.Theme) *ProfilePicker {
	ti := textinput.New()
	ti.Placeholder = "Filter profiles..."
	ti.CharLimit = 128
	ti.Width = 40

	return &ProfilePicker{
		Width:  80,
		Height: 24,
		Theme:  th,
		search: ti,
	}
}

// SetProfiles updates the profile list
func (pp *ProfilePicker) SetProfiles(profiles []models.Profile) {
	pp.profiles = profiles
	pp.applyFilter()
}

// Selected returns the highlighted profile
func (pp *ProfilePicker) Selected() (models.Profile, bool) {
	if pp.selected < 0 || pp.selected >= len(pp.visible) {
		return models.Profile{}, false
	}
	return pp.profiles[pp.visible[pp.selected]], true
}

// Searching reports whether the search input has focus
func (pp *ProfilePicker) Searching() bool {
	return pp.searching
}

// applyFilter keeps the profiles whose name or entity type contains the search text
func (pp *ProfilePicker) applyFilter() {
	term := strings.ToLower(strings.TrimSpace(pp.search.Value()))
	pp.visible = pp.visible[:0]
	for i, p := range pp.profiles {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.EntityType), term) {
			pp.visible = append(pp.visible, i)
		}
	}
	pp.selected = 0
	pp.offset = 0
}

func (pp *ProfilePicker) listHeight() int {
	h := (pp.Height - 8) / 2
	if h < 1 {
		h = 1
	}
	return h
}

// Update handles keyboard input
func (pp *ProfilePicker) Update(msg tea.KeyMsg) (*ProfilePicker, tea.Cmd) {
	if pp.searching {
		switch msg.String() {
		case "enter", "esc":
			pp.searching = false
			pp.search.Blur()
			return pp, nil
		}
		var cmd tea.Cmd
		pp.search, cmd = pp.search.Update(msg)
		pp.applyFilter()
		return pp, cmd
	}

	switch msg.String() {
	case "esc", "q":
		return pp, func() tea.Msg {
			return CloseProfilePickerMsg{}
		}
	case "/":
		pp.searching = true
		return pp, pp.search.Focus()
	case "up", "k":
		if pp.selected > 0 {
			pp.selected--
			if pp.selected < pp.offset {
				pp.offset = pp.selected
			}
		}
	case "down", "j":
		if pp.selected < len(pp.visible)-1 {
			pp.selected++
			if pp.selected >= pp.offset+pp.listHeight() {
				pp.offset = pp.selected - pp.listHeight() + 1
			}
		}
	case "enter":
		if p, ok := pp.Selected(); ok {
			return pp, func() tea.Msg {
				return SelectProfileMsg{Profile: p}
			}
		}
	}
	return pp, nil
}

// View renders the picker
func (pp *ProfilePicker) View() string {
	var sections []string

	titleStyle := lipgloss.NewStyle().
		Foreground(pp.Theme.Foreground).
		Background(pp.Theme.Info).
		Padding(0, 1).
		Bold(true)
	sections = append(sections, titleStyle.Render("Search Profiles"))

	instrStyle := lipgloss.NewStyle().
		Foreground(pp.Theme.Muted).
		Padding(0, 1)
	sections = append(sections, instrStyle.Render("↑↓: Navigate  Enter: Select  /: Filter  ?: Help  Esc: Quit"))

	if pp.searching || pp.search.Value() != "" {
		sections = append(sections, " "+pp.search.View())
	}

	switch {
	case len(pp.profiles) == 0:
		sections = append(sections, "\nNo search profiles available.")
	case len(pp.visible) == 0:
		sections = append(sections, "\nNo profile matches the filter.")
	default:
		sections = append(sections, "")
		end := pp.offset + pp.listHeight()
		if end > len(pp.visible) {
			end = len(pp.visible)
		}

		for i := pp.offset; i < end; i++ {
			p := pp.profiles[pp.visible[i]]

			name := truncate(p.Name, 40)
			detail := p.Condition()
			if p.UseExpression {
				detail = p.Expression
			}
			detail = truncate(detail, pp.Width-12)

			line := fmt.Sprintf("%s  [%s]\n  %s", name, p.EntityType, detail)

			style := lipgloss.NewStyle().Padding(0, 1)
			if i == pp.selected {
				style = style.Background(pp.Theme.Selection).Foreground(pp.Theme.Foreground)
			}
			sections = append(sections, style.Render(line))
		}
	}

	containerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pp.Theme.BorderFocused).
		Width(pp.Width).
		Height(pp.Height).
		Padding(1)

	return containerStyle.Render(strings.Join(sections, "\n"))
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

package components

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazysearch/internal/compiler"
	"github.com/rebeliceyang/lazysearch/internal/condition"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/rebeliceyang/lazysearch/internal/ui/theme"
)

// ConfirmSearchMsg is sent when the edited conditions should be searched
type ConfirmSearchMsg struct {
	Source compiler.Source
}

// CloseConditionEditorMsg is sent when the editor should close
type CloseConditionEditorMsg struct{}

// PreviewFunc compiles a source into the filter that would be searched
type PreviewFunc func(src compiler.Source) (domain.Domain, error)

// Edit modes
const (
	modeNavigate   = ""
	modeField      = "field"
	modeSubfield   = "subfield"
	modeOperator   = "operator"
	modeValue      = "value"
	modeExpression = "expression"
)

// ConditionEditor lets the user override a profile's conditions for one search
type ConditionEditor struct {
	Width  int
	Height int
	Theme  theme.Theme

	edit    condition.EditContext
	preview PreviewFunc

	// State
	title           string
	original        compiler.Source
	lines           []models.ConditionLine
	useExpression   bool
	expression      string
	currentIndex    int
	editMode        string
	editing         int // index of the line being edited, -1 when adding
	draft           models.ConditionLine
	fields          []models.Field
	operatorIndex   int
	input           textinput.Model
	validationError string
	previewText     string
	previewErr      bool
}

// NewConditionEditor creates a condition editor
func NewConditionEditor(th theme.Theme) *ConditionEditor {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 60

	return &ConditionEditor{
		Width:   80,
		Height:  30,
		Theme:   th,
		input:   ti,
		editing: -1,
	}
}

// Load starts editing src for the profile's entity type
func (ce *ConditionEditor) Load(title string, edit condition.EditContext, src compiler.Source, preview PreviewFunc) {
	ce.title = title
	ce.edit = edit
	ce.preview = preview
	ce.original = src
	ce.reset()
}

// reset goes back to the profile's own conditions
func (ce *ConditionEditor) reset() {
	ce.lines = models.SortLines(ce.original.Lines)
	ce.renumber()
	ce.useExpression = ce.original.UseExpression
	ce.expression = ce.original.Expression
	ce.currentIndex = 0
	ce.editMode = modeNavigate
	ce.validationError = ""
	ce.updatePreview()
}

// Source returns the conditions as currently edited
func (ce *ConditionEditor) Source() compiler.Source {
	lines := make([]models.ConditionLine, len(ce.lines))
	copy(lines, ce.lines)
	return compiler.Source{
		UseExpression: ce.useExpression,
		Expression:    ce.expression,
		Lines:         lines,
	}
}

// Lines returns the edited lines
func (ce *ConditionEditor) Lines() []models.ConditionLine {
	return ce.Source().Lines
}

// Editing reports whether a text input or the operator list has focus
func (ce *ConditionEditor) Editing() bool {
	return ce.editMode != modeNavigate
}

// SetError shows a message above the conditions, e.g. after a rejected search
func (ce *ConditionEditor) SetError(msg string) {
	ce.validationError = msg
}

// renumber makes sequences follow the displayed order
func (ce *ConditionEditor) renumber() {
	for i := range ce.lines {
		ce.lines[i].Sequence = (i + 1) * 10
	}
}

// Update handles keyboard input
func (ce *ConditionEditor) Update(msg tea.KeyMsg) (*ConditionEditor, tea.Cmd) {
	switch ce.editMode {
	case modeNavigate:
		return ce.handleNavigationMode(msg)
	case modeField, modeSubfield:
		return ce.handleFieldMode(msg)
	case modeOperator:
		return ce.handleOperatorMode(msg)
	case modeValue:
		return ce.handleValueMode(msg)
	case modeExpression:
		return ce.handleExpressionMode(msg)
	}
	return ce, nil
}

// handleNavigationMode handles keys in navigation mode
func (ce *ConditionEditor) handleNavigationMode(msg tea.KeyMsg) (*ConditionEditor, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if ce.currentIndex > 0 {
			ce.currentIndex--
		}
	case "down", "j":
		if ce.currentIndex < len(ce.lines)-1 {
			ce.currentIndex++
		}
	case "K":
		if !ce.useExpression && ce.currentIndex > 0 && ce.currentIndex < len(ce.lines) {
			i := ce.currentIndex
			ce.lines[i-1], ce.lines[i] = ce.lines[i], ce.lines[i-1]
			ce.currentIndex--
			ce.renumber()
			ce.updatePreview()
		}
	case "J":
		if !ce.useExpression && ce.currentIndex < len(ce.lines)-1 {
			i := ce.currentIndex
			ce.lines[i+1], ce.lines[i] = ce.lines[i], ce.lines[i+1]
			ce.currentIndex++
			ce.renumber()
			ce.updatePreview()
		}
	case "a", "n":
		if ce.useExpression {
			return ce, nil
		}
		ce.editing = -1
		ce.draft = models.ConditionLine{Group: models.GroupAnd}
		return ce, ce.startFieldMode()
	case "e":
		if ce.useExpression {
			return ce, ce.startExpressionMode()
		}
		if ce.currentIndex < len(ce.lines) {
			ce.editing = ce.currentIndex
			ce.draft = ce.lines[ce.currentIndex]
			return ce, ce.startValueMode(ce.draft.Value)
		}
	case "d", "x":
		if !ce.useExpression && ce.currentIndex < len(ce.lines) {
			ce.lines = append(ce.lines[:ce.currentIndex], ce.lines[ce.currentIndex+1:]...)
			if ce.currentIndex > 0 && ce.currentIndex >= len(ce.lines) {
				ce.currentIndex--
			}
			ce.renumber()
			ce.updatePreview()
		}
	case "g":
		if !ce.useExpression && ce.currentIndex < len(ce.lines) {
			line := &ce.lines[ce.currentIndex]
			if line.Group == models.GroupOr {
				line.Group = models.GroupAnd
			} else {
				line.Group = models.GroupOr
			}
			ce.updatePreview()
		}
	case "t":
		// switch between lines and expression
		ce.useExpression = !ce.useExpression
		ce.validationError = ""
		ce.updatePreview()
		if ce.useExpression && strings.TrimSpace(ce.expression) == "" {
			return ce, ce.startExpressionMode()
		}
	case "r":
		ce.reset()
	case "enter":
		ce.validationError = ""
		src := ce.Source()
		return ce, func() tea.Msg {
			return ConfirmSearchMsg{Source: src}
		}
	case "esc":
		return ce, func() tea.Msg {
			return CloseConditionEditorMsg{}
		}
	}
	return ce, nil
}

func (ce *ConditionEditor) startFieldMode() tea.Cmd {
	fields, err := condition.AllowedFields(context.Background(), ce.edit)
	if err != nil {
		ce.validationError = err.Error()
		return nil
	}
	ce.fields = fields
	ce.editMode = modeField
	ce.validationError = ""
	ce.input.SetValue("")
	ce.input.Placeholder = "field name (Tab completes)"
	return ce.input.Focus()
}

func (ce *ConditionEditor) startValueMode(value string) tea.Cmd {
	ce.editMode = modeValue
	ce.validationError = ""
	ce.input.SetValue(value)
	ce.input.Placeholder = "value"
	ce.input.CursorEnd()
	return ce.input.Focus()
}

func (ce *ConditionEditor) startExpressionMode() tea.Cmd {
	ce.editMode = modeExpression
	ce.validationError = ""
	ce.input.SetValue(ce.expression)
	ce.input.Placeholder = "[('field', 'operator', value)]"
	ce.input.CursorEnd()
	return ce.input.Focus()
}

func (ce *ConditionEditor) stopInput() {
	ce.input.Blur()
	ce.input.SetValue("")
	ce.editMode = modeNavigate
}

// handleFieldMode handles field and subfield selection
func (ce *ConditionEditor) handleFieldMode(msg tea.KeyMsg) (*ConditionEditor, tea.Cmd) {
	switch msg.String() {
	case "esc":
		ce.stopInput()
		ce.validationError = ""
		return ce, nil
	case "tab":
		prefix := strings.ToLower(ce.input.Value())
		for _, f := range ce.fields {
			if strings.HasPrefix(strings.ToLower(f.Name), prefix) {
				ce.input.SetValue(f.Name)
				ce.input.CursorEnd()
				break
			}
		}
		return ce, nil
	case "enter":
		name := strings.TrimSpace(ce.input.Value())
		for _, f := range ce.fields {
			if !strings.EqualFold(f.Name, name) {
				continue
			}
			if ce.editMode == modeSubfield {
				ce.draft.Subfield = f.Name
				ce.enterOperatorMode()
				return ce, nil
			}

			ce.draft = condition.SetField(ce.draft, f.Name)
			if !f.Type.IsRelational() {
				ce.enterOperatorMode()
				return ce, nil
			}
			subfields, err := condition.AllowedSubfields(context.Background(), ce.edit, f.Name)
			if err != nil {
				ce.validationError = err.Error()
				return ce, nil
			}
			ce.fields = subfields
			ce.editMode = modeSubfield
			ce.input.SetValue("")
			ce.input.Placeholder = fmt.Sprintf("subfield of %s", f.Name)
			ce.validationError = ""
			return ce, nil
		}
		// No match, show error and stay in field mode
		ce.validationError = fmt.Sprintf("Field '%s' not found", name)
		return ce, nil
	}

	var cmd tea.Cmd
	ce.input, cmd = ce.input.Update(msg)
	return ce, cmd
}

func (ce *ConditionEditor) enterOperatorMode() {
	ce.input.Blur()
	ce.editMode = modeOperator
	ce.operatorIndex = 0
	ce.validationError = ""
	for i, op := range models.Operators {
		if op == ce.draft.Operator {
			ce.operatorIndex = i
		}
	}
}

// handleOperatorMode handles operator selection
func (ce *ConditionEditor) handleOperatorMode(msg tea.KeyMsg) (*ConditionEditor, tea.Cmd) {
	switch msg.String() {
	case "esc":
		ce.editMode = modeNavigate
	case "up", "k":
		if ce.operatorIndex > 0 {
			ce.operatorIndex--
		}
	case "down", "j":
		if ce.operatorIndex < len(models.Operators)-1 {
			ce.operatorIndex++
		}
	case "enter":
		ce.draft.Operator = models.Operators[ce.operatorIndex]
		return ce, ce.startValueMode(ce.draft.Value)
	}
	return ce, nil
}

// handleValueMode handles value input
func (ce *ConditionEditor) handleValueMode(msg tea.KeyMsg) (*ConditionEditor, tea.Cmd) {
	switch msg.String() {
	case "esc":
		ce.stopInput()
		return ce, nil
	case "enter":
		ce.draft.Value = ce.input.Value()
		if err := condition.Validate(context.Background(), ce.edit, ce.draft); err != nil {
			ce.validationError = err.Error()
			return ce, nil
		}
		if ce.editing >= 0 && ce.editing < len(ce.lines) {
			ce.lines[ce.editing] = ce.draft
		} else {
			ce.lines = append(ce.lines, ce.draft)
			ce.currentIndex = len(ce.lines) - 1
		}
		ce.editing = -1
		ce.renumber()
		ce.stopInput()
		ce.updatePreview()
		return ce, nil
	}

	var cmd tea.Cmd
	ce.input, cmd = ce.input.Update(msg)
	return ce, cmd
}

// handleExpressionMode handles the filter expression input
func (ce *ConditionEditor) handleExpressionMode(msg tea.KeyMsg) (*ConditionEditor, tea.Cmd) {
	switch msg.String() {
	case "esc":
		ce.stopInput()
		return ce, nil
	case "enter":
		ce.expression = ce.input.Value()
		ce.stopInput()
		ce.updatePreview()
		return ce, nil
	}

	var cmd tea.Cmd
	ce.input, cmd = ce.input.Update(msg)
	return ce, cmd
}

// updatePreview compiles the current conditions
func (ce *ConditionEditor) updatePreview() {
	if ce.preview == nil {
		ce.previewText = ""
		return
	}
	d, err := ce.preview(ce.Source())
	if err != nil {
		ce.previewText = err.Error()
		ce.previewErr = true
		return
	}
	ce.previewText = d.String()
	ce.previewErr = false
}

// View renders the condition editor
func (ce *ConditionEditor) View() string {
	var sections []string

	titleStyle := lipgloss.NewStyle().
		Foreground(ce.Theme.Foreground).
		Background(ce.Theme.Info).
		Padding(0, 1).
		Bold(true)
	title := "Conditions"
	if ce.title != "" {
		title = ce.title
	}
	sections = append(sections, titleStyle.Render(title))

	// Instructions based on mode
	instructionStyle := lipgloss.NewStyle().
		Foreground(ce.Theme.Muted).
		Padding(0, 1)

	var instructions string
	switch ce.editMode {
	case modeField:
		instructions = "Type field name, Tab to complete, Enter to confirm, Esc to cancel"
	case modeSubfield:
		instructions = "Type subfield name, Tab to complete, Enter to confirm, Esc to cancel"
	case modeOperator:
		instructions = "↑↓ Select operator, Enter to confirm, Esc to cancel"
	case modeValue:
		instructions = "Type value, Enter to confirm, Esc to cancel"
	case modeExpression:
		instructions = "Type filter expression, Enter to confirm, Esc to cancel"
	default:
		if ce.useExpression {
			instructions = "e=Edit expression t=Use lines r=Reset Enter=Search Esc=Back"
		} else {
			instructions = "a=Add e=Edit d=Delete g=AND/OR K/J=Move t=Use expression r=Reset Enter=Search Esc=Back"
		}
	}
	sections = append(sections, instructionStyle.Render(instructions))

	if ce.validationError != "" {
		errorStyle := lipgloss.NewStyle().
			Foreground(ce.Theme.Error).
			Padding(0, 1).
			Bold(true).
			Width(ce.Width - 4)
		sections = append(sections, errorStyle.Render("Error: "+ce.validationError))
	}

	if ce.useExpression {
		sections = append(sections, "\nExpression:")
		expr := ce.expression
		if strings.TrimSpace(expr) == "" {
			expr = "(empty)"
		}
		sections = append(sections, lipgloss.NewStyle().Padding(0, 1).Render(expr))
	} else {
		sections = append(sections, "\nConditions:")
		if len(ce.lines) == 0 {
			sections = append(sections, lipgloss.NewStyle().
				Foreground(ce.Theme.Muted).
				Padding(0, 1).
				Render("No conditions, every record matches"))
		}
		for i, line := range ce.lines {
			groupColor := ce.Theme.GroupAnd
			if line.Group == models.GroupOr {
				groupColor = ce.Theme.GroupOr
			}
			group := lipgloss.NewStyle().Foreground(groupColor).Bold(true).Render(fmt.Sprintf("%-3s", line.Group))

			style := lipgloss.NewStyle().Padding(0, 1)
			if i == ce.currentIndex && ce.editMode == modeNavigate {
				style = style.Background(ce.Theme.Selection).Foreground(ce.Theme.Foreground)
			}
			sections = append(sections, style.Render(fmt.Sprintf(" %d. %s %s", i+1, group, line.RecName())))
		}
	}

	// Edit area
	if ce.editMode != modeNavigate {
		sections = append(sections, "")
		switch ce.editMode {
		case modeField, modeSubfield:
			label := "Field:"
			if ce.editMode == modeSubfield {
				label = fmt.Sprintf("Field: %s  Subfield:", ce.draft.Field)
			}
			sections = append(sections, label+" "+ce.input.View())
			names := make([]string, 0, len(ce.fields))
			for _, f := range ce.fields {
				names = append(names, f.Name)
			}
			sections = append(sections, instructionStyle.Render(truncate(strings.Join(names, " "), ce.Width-6)))
		case modeOperator:
			sections = append(sections, fmt.Sprintf("Field: %s", ce.draft.Path()))
			sections = append(sections, "Select operator:")
			for i, op := range models.Operators {
				style := lipgloss.NewStyle().Padding(0, 1)
				if i == ce.operatorIndex {
					style = style.Background(ce.Theme.Selection).Foreground(ce.Theme.Foreground)
				}
				sections = append(sections, style.Render(fmt.Sprintf("  %s", op)))
			}
		case modeValue:
			sections = append(sections, fmt.Sprintf("Field: %s %s", ce.draft.Path(), ce.draft.Operator))
			sections = append(sections, "Value: "+ce.input.View())
		case modeExpression:
			sections = append(sections, "Expression: "+ce.input.View())
		}
	}

	// Filter preview
	if ce.previewText != "" {
		sections = append(sections, "\nFilter:")
		previewStyle := lipgloss.NewStyle().
			Foreground(ce.Theme.Value).
			Padding(0, 1).
			Italic(true).
			Width(ce.Width - 4)
		if ce.previewErr {
			previewStyle = previewStyle.Foreground(ce.Theme.Warning)
		}
		sections = append(sections, previewStyle.Render(ce.previewText))
	}

	content := strings.Join(sections, "\n")

	containerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ce.Theme.BorderFocused).
		Width(ce.Width).
		Height(ce.Height).
		Padding(1)

	return containerStyle.Render(content)
}

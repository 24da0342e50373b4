package app

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rebeliceyang/lazysearch/internal/compiler"
	"github.com/rebeliceyang/lazysearch/internal/condition"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/rebeliceyang/lazysearch/internal/session"
	"github.com/rebeliceyang/lazysearch/internal/ui/components"
	"github.com/rebeliceyang/lazysearch/internal/ui/help"
	"github.com/rebeliceyang/lazysearch/internal/ui/theme"
	"go.uber.org/zap"
)

// Mode is the screen the app is showing
type Mode int

const (
	PickerMode Mode = iota
	EditorMode
	ExecutingMode
	ResultMode
)

// ProfileLister lists the profiles a user may search with
type ProfileLister interface {
	ListVisible(ctx context.Context, userGroups []string) ([]models.Profile, error)
}

// Deps holds what the app needs to run searches
type Deps struct {
	// Context bounds profile loading and searches; nil means context.Background()
	Context    context.Context
	Profiles   ProfileLister
	Session    session.Config
	UserGroups []string
	Theme      string
	Logger     *zap.Logger
	// Initial is chosen right away instead of showing the picker
	Initial *models.Profile
}

// App is the main application model
type App struct {
	deps   Deps
	theme  theme.Theme
	logger *zap.Logger

	width    int
	height   int
	mode     Mode
	showHelp bool

	picker *components.ProfilePicker
	editor *components.ConditionEditor
	result *components.ResultView

	// Error overlay
	showError    bool
	errorOverlay *components.ErrorOverlay

	session *session.Session
	outcome *models.ResultDescriptor
}

// ProfilesLoadedMsg is sent when the profile list is loaded
type ProfilesLoadedMsg struct {
	Profiles []models.Profile
	Err      error
}

// SearchDoneMsg is sent when a confirmed search finishes
type SearchDoneMsg struct {
	Result models.ResultDescriptor
	Err    error
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Title   string
	Message string
}

// New creates a new App instance
func New(deps Deps) *App {
	th := theme.GetTheme(deps.Theme)
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Session.Logger == nil {
		deps.Session.Logger = logger
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}

	return &App{
		deps:         deps,
		theme:        th,
		logger:       logger,
		picker:       components.NewProfilePicker(th),
		editor:       components.NewConditionEditor(th),
		result:       components.NewResultView(th),
		errorOverlay: components.NewErrorOverlay(th),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	if a.deps.Initial != nil {
		p := *a.deps.Initial
		return func() tea.Msg {
			return components.SelectProfileMsg{Profile: p}
		}
	}
	return a.loadProfiles
}

// Mode returns the current screen
func (a *App) Mode() Mode { return a.mode }

// Outcome returns the result the user finished with, if any
func (a *App) Outcome() (models.ResultDescriptor, bool) {
	if a.outcome == nil {
		return models.ResultDescriptor{}, false
	}
	return *a.outcome, true
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ErrorMsg:
		a.ShowError(msg.Title, msg.Message, "")
		return a, nil

	case ProfilesLoadedMsg:
		if msg.Err != nil {
			a.ShowError("Failed to load profiles", msg.Err.Error(), "")
			return a, nil
		}
		a.picker.SetProfiles(msg.Profiles)
		return a, nil

	case components.SelectProfileMsg:
		return a.startSession(msg.Profile)

	case components.CloseProfilePickerMsg:
		return a, tea.Quit

	case components.ConfirmSearchMsg:
		return a.confirm(msg.Source)

	case components.CloseConditionEditorMsg:
		a.cancelSession()
		a.mode = PickerMode
		if a.deps.Initial != nil {
			return a, tea.Quit
		}
		return a, a.loadProfiles

	case SearchDoneMsg:
		return a.searchDone(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.cancelSession()
			return a, tea.Quit
		}

		// Handle error overlay dismissal first if visible
		if a.showError {
			switch msg.String() {
			case "esc", "enter":
				a.DismissError()
			}
			return a, nil
		}

		if a.showHelp {
			switch msg.String() {
			case "?", "esc", "q":
				a.showHelp = false
			}
			return a, nil
		}
		if msg.String() == "?" && !a.inputFocused() {
			a.showHelp = true
			return a, nil
		}

		switch a.mode {
		case PickerMode:
			var cmd tea.Cmd
			a.picker, cmd = a.picker.Update(msg)
			return a, cmd
		case EditorMode:
			var cmd tea.Cmd
			a.editor, cmd = a.editor.Update(msg)
			return a, cmd
		case ResultMode:
			return a.handleResultKeys(msg)
		}
		return a, nil

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateDimensions()
	}
	return a, nil
}

func (a *App) inputFocused() bool {
	switch a.mode {
	case PickerMode:
		return a.picker.Searching()
	case EditorMode:
		return a.editor.Editing()
	}
	return false
}

func (a *App) loadProfiles() tea.Msg {
	profiles, err := a.deps.Profiles.ListVisible(a.deps.Context, a.deps.UserGroups)
	return ProfilesLoadedMsg{Profiles: profiles, Err: err}
}

// startSession opens the condition editor for p
func (a *App) startSession(p models.Profile) (tea.Model, tea.Cmd) {
	ctx := a.deps.Context
	sess, err := session.New(ctx, a.deps.Session, p)
	if err != nil {
		a.ShowError("Cannot search with this profile", err.Error(), "")
		return a, nil
	}
	a.session = sess

	cfg := a.deps.Session
	preview := func(src compiler.Source) (domain.Domain, error) {
		return cfg.Compiler.Compile(ctx, p, src)
	}
	edit := condition.EditContext{Catalog: cfg.Catalog, EntityType: p.EntityType}
	a.editor.Load(fmt.Sprintf("%s [%s]", p.Name, p.EntityType), edit, sess.Source(), preview)
	a.mode = EditorMode
	a.logger.Debug("search session started", zap.String("profile", p.Name))
	return a, nil
}

// confirm applies the edited conditions and runs the search in the background
func (a *App) confirm(src compiler.Source) (tea.Model, tea.Cmd) {
	if a.session == nil {
		return a, nil
	}

	var err error
	if src.UseExpression {
		err = a.session.SetOverrideExpression(src.Expression)
	} else {
		err = a.session.SetOverrideLines(src.Lines)
	}
	if err != nil {
		a.ShowError("Cannot search", err.Error(), "")
		return a, nil
	}

	a.mode = ExecutingMode
	sess := a.session
	ctx := a.deps.Context
	return a, func() tea.Msg {
		result, err := sess.Confirm(ctx)
		return SearchDoneMsg{Result: result, Err: err}
	}
}

func (a *App) searchDone(msg SearchDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err == nil {
		a.result.SetResult(msg.Result)
		a.mode = ResultMode
		return a, nil
	}

	a.mode = EditorMode
	var rejected *session.DomainValidationError
	if errors.As(msg.Err, &rejected) {
		a.editor.SetError("the search filter was rejected, adjust the conditions and search again")
		a.ShowError("Invalid search filter", rejected.Err.Error(), rejected.Filter.String())
		return a, nil
	}
	a.editor.SetError(msg.Err.Error())
	return a, nil
}

func (a *App) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		a.result.MoveSelection(-1)
	case "down", "j":
		a.result.MoveSelection(1)
	case "pgup":
		a.result.PageUp()
	case "pgdown":
		a.result.PageDown()
	case "enter", "q":
		result := a.result.Result
		a.outcome = &result
		return a, tea.Quit
	case "esc":
		a.session = nil
		a.mode = PickerMode
		if a.deps.Initial != nil {
			return a, tea.Quit
		}
		return a, a.loadProfiles
	}
	return a, nil
}

func (a *App) cancelSession() {
	if a.session == nil {
		return
	}
	if err := a.session.Cancel(); err != nil {
		a.logger.Debug("session not cancelled", zap.Error(err))
	}
	a.session = nil
}

// View implements tea.Model
func (a *App) View() string {
	// If error overlay is showing, render it centered on top of everything
	if a.showError {
		return lipgloss.Place(
			a.width, a.height,
			lipgloss.Center, lipgloss.Center,
			a.errorOverlay.View(),
		)
	}

	if a.showHelp {
		return help.Render(a.width, a.height, a.theme)
	}

	var body string
	switch a.mode {
	case PickerMode:
		body = a.picker.View()
	case EditorMode:
		body = a.editor.View()
	case ExecutingMode:
		body = lipgloss.Place(a.width, a.height-2, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(a.theme.Info).Render("Searching..."))
	case ResultMode:
		panel := components.Panel{
			Title:   "Result",
			Content: a.result.View(),
			Width:   a.width - 2,
			Height:  a.height - 4,
			Focused: true,
			Theme:   a.theme,
		}
		body = panel.View()
	}

	topBar := lipgloss.NewStyle().
		Width(a.width).
		Background(a.theme.BorderFocused).
		Foreground(a.theme.Background).
		Padding(0, 2).
		Render(a.formatStatusBar("lazysearch", a.statusRight()))

	bottomBar := lipgloss.NewStyle().
		Width(a.width).
		Background(a.theme.Selection).
		Foreground(a.theme.Foreground).
		Padding(0, 2).
		Render(a.formatStatusBar(a.bottomHint(), "[?] Help"))

	return lipgloss.JoinVertical(lipgloss.Left, topBar, body, bottomBar)
}

func (a *App) statusRight() string {
	if a.session == nil {
		return ""
	}
	p := a.session.Profile()
	return fmt.Sprintf("%s | %s", p.Name, a.session.State())
}

func (a *App) bottomHint() string {
	switch a.mode {
	case PickerMode:
		return "[enter] Choose | [/] Search | [q] Quit"
	case EditorMode:
		return "[enter] Search | [esc] Back"
	case ExecutingMode:
		return "Running search"
	case ResultMode:
		return "[enter] Done | [esc] New search"
	}
	return ""
}

// updateDimensions sizes the views to the window
func (a *App) updateDimensions() {
	if a.width <= 0 || a.height <= 0 {
		return
	}
	// Top and bottom bars take one line each, borders two more
	w := a.width - 2
	h := a.height - 4
	if h < 5 {
		h = 5
	}
	a.picker.Width, a.picker.Height = w, h
	a.editor.Width, a.editor.Height = w, h
	a.result.Width, a.result.Height = w-2, h-2
	a.errorOverlay.Width = min(a.width-4, 80)
}

// formatStatusBar formats a status bar with left and right aligned content
func (a *App) formatStatusBar(left, right string) string {
	// Account for padding (2 chars on each side = 4 total)
	availableWidth := a.width - 4
	if availableWidth < 0 {
		availableWidth = 0
	}

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)

	// If content is too wide, drop the right side
	if leftLen+rightLen > availableWidth {
		return left
	}

	spacing := availableWidth - leftLen - rightLen
	return left + lipgloss.NewStyle().Width(spacing).Render("") + right
}

// ShowError displays an error overlay
func (a *App) ShowError(title, message, detail string) {
	a.errorOverlay.SetError(title, message, detail)
	a.showError = true
}

// DismissError hides the error overlay
func (a *App) DismissError() {
	a.showError = false
}

package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/rebeliceyang/lazysearch/internal/ui/theme"
)

func testProfiles() []models.Profile {
	return []models.Profile{
		{Name: "Acme", EntityType: "party"},
		{Name: "Brussels addresses", EntityType: "address"},
		{Name: "Big customers", EntityType: "party", UseExpression: true, Expression: "[('credit_limit', '>', 1000)]"},
	}
}

func TestProfilePicker_Navigation(t *testing.T) {
	pp := NewProfilePicker(theme.DefaultTheme())
	pp.SetProfiles(testProfiles())

	pp.Update(tea.KeyMsg{Type: tea.KeyDown})
	pp.Update(tea.KeyMsg{Type: tea.KeyDown})
	pp.Update(tea.KeyMsg{Type: tea.KeyDown})

	p, ok := pp.Selected()
	if !ok || p.Name != "Big customers" {
		t.Errorf("Expected selection to stop on the last profile, got %q", p.Name)
	}

	_, cmd := pp.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Expected select command")
	}
	msg, ok := cmd().(SelectProfileMsg)
	if !ok || msg.Profile.Name != "Big customers" {
		t.Error("Expected SelectProfileMsg for the highlighted profile")
	}
}

func TestProfilePicker_Search(t *testing.T) {
	pp := NewProfilePicker(theme.DefaultTheme())
	pp.SetProfiles(testProfiles())

	pp.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !pp.Searching() {
		t.Fatal("Expected search mode")
	}
	for _, r := range "address" {
		pp.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	pp.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(pp.visible) != 1 {
		t.Fatalf("Expected 1 matching profile, got %d", len(pp.visible))
	}
	p, _ := pp.Selected()
	if p.Name != "Brussels addresses" {
		t.Errorf("Unexpected match %q", p.Name)
	}
}

func TestProfilePicker_EmptyState(t *testing.T) {
	pp := NewProfilePicker(theme.DefaultTheme())
	if _, ok := pp.Selected(); ok {
		t.Error("Expected no selection")
	}
	if !strings.Contains(pp.View(), "No search profiles") {
		t.Error("Expected empty state message")
	}

	_, cmd := pp.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(CloseProfilePickerMsg); !ok {
		t.Error("Expected CloseProfilePickerMsg")
	}
}

func TestResultView_Scrolling(t *testing.T) {
	rv := NewResultView(theme.DefaultTheme())
	rv.Width = 60
	rv.Height = 10
	ids := make([]int64, 50)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	rv.SetResult(models.ResultDescriptor{Name: "Acme - party", EntityType: "party", Filter: "[]", RecordIDs: ids})

	view := rv.View()
	if !strings.Contains(view, "Acme - party") || !strings.Contains(view, "of 50 records") {
		t.Error("Expected header and record count")
	}

	rv.PageDown()
	id, ok := rv.SelectedID()
	if !ok || id != int64(rv.VisibleRows+1) {
		t.Errorf("Expected id %d after page down, got %d", rv.VisibleRows+1, id)
	}

	rv.MoveSelection(-100)
	if id, _ := rv.SelectedID(); id != 1 || rv.TopRow != 0 {
		t.Errorf("Expected first record selected, got %d (top %d)", id, rv.TopRow)
	}

	rv.MoveSelection(100)
	if id, _ := rv.SelectedID(); id != 50 {
		t.Errorf("Expected last record selected, got %d", id)
	}
}

func TestResultView_NoRecords(t *testing.T) {
	rv := NewResultView(theme.DefaultTheme())
	rv.Width = 60
	rv.Height = 10
	rv.SetResult(models.ResultDescriptor{Name: "Nobody - party"})

	if !strings.Contains(rv.View(), "No matching records") {
		t.Error("Expected empty result message")
	}
	rv.MoveSelection(1)
	if _, ok := rv.SelectedID(); ok {
		t.Error("Expected no selection")
	}
}

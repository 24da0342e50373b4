package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ConditionLine is one ordered comparison of a profile.
//
// Value holds the text the user typed; it is converted to the field's
// declared type only when the line is compiled.
type ConditionLine struct {
	ID        string   `yaml:"id,omitempty" json:"id,omitempty"`
	ProfileID string   `yaml:"-" json:"-"`
	Sequence  int      `yaml:"sequence" json:"sequence"`
	Group     Group    `yaml:"group" json:"group"`
	Field     string   `yaml:"field" json:"field"`
	Subfield  string   `yaml:"subfield,omitempty" json:"subfield,omitempty"`
	Operator  Operator `yaml:"operator" json:"operator"`
	Value     string   `yaml:"value" json:"value"`
}

// Path returns "field" or "field.subfield"
func (l ConditionLine) Path() string {
	if l.Subfield != "" {
		return l.Field + "." + l.Subfield
	}
	return l.Field
}

// RecName renders the line the way it is listed in the profile editor
func (l ConditionLine) RecName() string {
	return fmt.Sprintf("'%s','%s','%s'", l.Path(), l.Operator, l.Value)
}

// SortLines returns a copy of lines ordered by sequence; equal sequences
// keep their insertion order
func SortLines(lines []ConditionLine) []ConditionLine {
	sorted := make([]ConditionLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Sequence < sorted[j].Sequence
	})
	return sorted
}

// Profile is a named, reusable search over one entity type
type Profile struct {
	ID         string `yaml:"id,omitempty" json:"id,omitempty"`
	Name       string `yaml:"name" json:"name"`
	EntityType string `yaml:"entity_type" json:"entity_type"`

	// UseExpression selects Expression over Lines as the condition source
	UseExpression bool            `yaml:"use_expression" json:"use_expression"`
	Expression    string          `yaml:"expression,omitempty" json:"expression,omitempty"`
	Lines         []ConditionLine `yaml:"lines,omitempty" json:"lines,omitempty"`

	// Groups restricts visibility; empty means everyone
	Groups   []string `yaml:"groups,omitempty" json:"groups,omitempty"`
	ActionID string   `yaml:"action_id,omitempty" json:"action_id,omitempty"`

	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Condition joins the profile's lines into a human readable text.
// It is for display only and never executed.
func (p Profile) Condition() string {
	parts := make([]string, 0, len(p.Lines))
	for _, line := range SortLines(p.Lines) {
		if line.Subfield != "" {
			parts = append(parts, fmt.Sprintf("('%s','%s','%s')", line.Path(), line.Operator, line.Value))
		} else {
			parts = append(parts, fmt.Sprintf("('%s', '%s', '%s')", line.Field, line.Operator, line.Value))
		}
	}
	return strings.Join(parts, ", ")
}

// RecName returns "<name> - <condition>"
func (p Profile) RecName() string {
	return fmt.Sprintf("%s - %s", p.Name, p.Condition())
}

// VisibleTo reports whether a user belonging to userGroups may use the profile
func (p Profile) VisibleTo(userGroups []string) bool {
	if len(p.Groups) == 0 {
		return true
	}
	for _, g := range p.Groups {
		for _, ug := range userGroups {
			if g == ug {
				return true
			}
		}
	}
	return false
}

// Action is a pre-existing result view a profile may be bound to.
// Domain is filter text in the expression syntax; it is conjoined with
// the profile's compiled filter.
type Action struct {
	ID         string            `yaml:"id,omitempty" json:"id,omitempty"`
	Name       string            `yaml:"name" json:"name"`
	EntityType string            `yaml:"entity_type" json:"entity_type"`
	Domain     string            `yaml:"domain,omitempty" json:"domain,omitempty"`
	Context    map[string]string `yaml:"context,omitempty" json:"context,omitempty"`
}

package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/compiler"
	"github.com/rebeliceyang/lazysearch/internal/condition"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// ValidationError reports a profile that cannot be saved as edited
type ValidationError struct {
	Profile string
	Msg     string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("profile %q: %s: %v", e.Profile, e.Msg, e.Err)
	}
	return fmt.Sprintf("profile %q: %s", e.Profile, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks a profile the way the editor does before saving it: the
// name is set, the entity type exists and is searchable, the expression is
// present exactly in expression mode, every line fits the catalog and a
// bound action targets the same entity type. actions may be nil when
// p is not bound to an action.
func Validate(ctx context.Context, cat catalog.Catalog, actions compiler.ActionSource, p models.Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Profile: p.Name, Msg: "name is required"}
	}

	entity, err := cat.Entity(ctx, p.EntityType)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return &ValidationError{Profile: p.Name, Msg: fmt.Sprintf("unknown entity type %q", p.EntityType), Err: err}
		}
		return fmt.Errorf("failed to look up entity type %q: %w", p.EntityType, err)
	}
	if !entity.Searchable {
		return &ValidationError{Profile: p.Name, Msg: fmt.Sprintf("entity type %q is not searchable", p.EntityType)}
	}

	if p.UseExpression {
		if strings.TrimSpace(p.Expression) == "" {
			return &ValidationError{Profile: p.Name, Msg: "an expression is required when the expression mode is on"}
		}
		if _, err := compiler.CompileExpression(p.Expression); err != nil {
			return &ValidationError{Profile: p.Name, Msg: "invalid expression", Err: err}
		}
	} else {
		ec := condition.EditContext{Catalog: cat, EntityType: p.EntityType}
		for _, line := range p.Lines {
			if err := ValidateLine(ctx, ec, line); err != nil {
				return &ValidationError{Profile: p.Name, Msg: "invalid condition", Err: err}
			}
		}
	}

	if p.ActionID != "" {
		if actions == nil {
			return &ValidationError{Profile: p.Name, Msg: fmt.Sprintf("bound to action %s but no actions are available", p.ActionID)}
		}
		action, err := actions.GetAction(ctx, p.ActionID)
		if err != nil {
			return &ValidationError{Profile: p.Name, Msg: "bound action not found", Err: err}
		}
		if action.EntityType != p.EntityType {
			return &ValidationError{Profile: p.Name,
				Msg: fmt.Sprintf("action %q opens %q, not %q", action.Name, action.EntityType, p.EntityType)}
		}
	}
	return nil
}

// ValidateLine checks one line against the edit context: a known field of
// the entity type, a subfield exactly when that field is relational, and a
// supported operator and group
func ValidateLine(ctx context.Context, ec condition.EditContext, line models.ConditionLine) error {
	return condition.Validate(ctx, ec, line)
}

// Package compiler turns a profile's condition lines or its filter
// expression into a domain.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/condition"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// UsageHint explains what a filter expression must produce
const UsageHint = `the expression must produce a variable holding a filter: domain = [(<field name>, <operator>, <operand>)]`

// DomainFieldError is returned when a filter expression yields no usable filter
type DomainFieldError struct {
	Msg string
	Err error
}

func (e *DomainFieldError) Error() string {
	if e.Msg == "" {
		return "error in field domain: " + UsageHint
	}
	return fmt.Sprintf("error in field domain: %s (%s)", e.Msg, UsageHint)
}

func (e *DomainFieldError) Unwrap() error { return e.Err }

// ActionSource looks up actions a profile may be bound to
type ActionSource interface {
	GetAction(ctx context.Context, id string) (models.Action, error)
}

// Source is what a filter is compiled from: either the expression or the lines
type Source struct {
	UseExpression bool
	Expression    string
	Lines         []models.ConditionLine
}

// SourceOf returns the profile's own condition source
func SourceOf(p models.Profile) Source {
	return Source{
		UseExpression: p.UseExpression,
		Expression:    p.Expression,
		Lines:         p.Lines,
	}
}

// Compiler compiles profiles against a catalog
type Compiler struct {
	catalog catalog.Catalog
	actions ActionSource
}

// New creates a compiler. actions may be nil when no profile is bound to an action.
func New(cat catalog.Catalog, actions ActionSource) *Compiler {
	return &Compiler{catalog: cat, actions: actions}
}

// CompileLines compiles lines of entity into a domain.
//
// Lines are taken in sequence order. OR lines are collected into
// ['OR', leaf, ...] and AND lines into [leaf, ...]; the result holds the
// OR group first and the AND group second, each only when non-empty. The
// first line that fails to resolve or coerce aborts compilation.
func (c *Compiler) CompileLines(ctx context.Context, entity string, lines []models.ConditionLine) (domain.Domain, error) {
	ec := condition.EditContext{Catalog: c.catalog, EntityType: entity}

	var and, or domain.Domain
	for _, line := range models.SortLines(lines) {
		leaf, err := condition.Evaluate(ctx, ec, line)
		if err != nil {
			return nil, err
		}
		if line.Group == models.GroupOr {
			or = append(or, leaf)
		} else {
			and = append(and, leaf)
		}
	}

	d := domain.Domain{}
	if len(or) > 0 {
		d = append(d, append(domain.Domain{domain.Or}, or...))
	}
	if len(and) > 0 {
		d = append(d, and)
	}
	return d, nil
}

// CompileExpression evaluates a filter expression. An expression that is
// not a filter, or is an empty one, is a DomainFieldError.
func CompileExpression(text string) (domain.Domain, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &DomainFieldError{}
	}

	d, err := domain.Parse(text)
	if err != nil {
		var typeErr *domain.TypeError
		if errors.As(err, &typeErr) {
			return nil, &DomainFieldError{Msg: typeErr.Error(), Err: err}
		}
		return nil, &DomainFieldError{Msg: err.Error(), Err: err}
	}
	if len(d) == 0 {
		return nil, &DomainFieldError{}
	}
	return d, nil
}

// ActionFilter returns the base filter of the action bound to p, or nil
func (c *Compiler) ActionFilter(ctx context.Context, p models.Profile) (domain.Domain, error) {
	if p.ActionID == "" {
		return nil, nil
	}
	if c.actions == nil {
		return nil, fmt.Errorf("profile %q is bound to action %s but no action store is configured", p.Name, p.ActionID)
	}
	action, err := c.actions.GetAction(ctx, p.ActionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load action %s: %w", p.ActionID, err)
	}
	if strings.TrimSpace(action.Domain) == "" {
		return nil, nil
	}
	d, err := domain.Parse(action.Domain)
	if err != nil {
		return nil, fmt.Errorf("invalid base filter of action %q: %w", action.Name, err)
	}
	return d, nil
}

// Compile compiles src for profile p and conjoins the base filter of the
// action p is bound to
func (c *Compiler) Compile(ctx context.Context, p models.Profile, src Source) (domain.Domain, error) {
	var d domain.Domain
	var err error
	if src.UseExpression {
		d, err = CompileExpression(src.Expression)
	} else {
		d, err = c.CompileLines(ctx, p.EntityType, src.Lines)
	}
	if err != nil {
		return nil, err
	}

	base, err := c.ActionFilter(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(base) > 0 {
		d = domain.Conjoin(d, base)
	}
	return d, nil
}

// EffectiveFilter compiles the profile's own lines or expression. It has no
// side effects; the same profile always yields an equal domain.
func (c *Compiler) EffectiveFilter(ctx context.Context, p models.Profile) (domain.Domain, error) {
	return c.Compile(ctx, p, SourceOf(p))
}

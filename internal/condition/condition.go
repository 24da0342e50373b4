// Package condition checks and evaluates single condition lines.
package condition

import (
	"context"
	"errors"
	"fmt"

	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/coerce"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// EditContext carries what a line needs to know about the profile being
// edited: the catalog and the profile's entity type
type EditContext struct {
	Catalog    catalog.Catalog
	EntityType string
}

// StructureError reports a line whose field, subfield or operator does not
// fit the catalog
type StructureError struct {
	Line string
	Msg  string
	Err  error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("condition %s: %s: %v", e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("condition %s: %s", e.Line, e.Msg)
}

func (e *StructureError) Unwrap() error { return e.Err }

// Resolved is a line together with the catalog entries it names
type Resolved struct {
	Line     models.ConditionLine
	Field    models.Field
	Subfield *models.Field
}

// Resolve looks up the line's field and subfield and checks the line's
// shape: the field belongs to the entity type, a subfield is set exactly
// when the field is relational and belongs to the relation target, and the
// operator and group are supported.
func Resolve(ctx context.Context, ec EditContext, line models.ConditionLine) (Resolved, error) {
	name := line.RecName()
	if line.Field == "" {
		return Resolved{}, &StructureError{Line: name, Msg: "field is required"}
	}
	if !line.Operator.Valid() {
		return Resolved{}, &StructureError{Line: name, Msg: fmt.Sprintf("unsupported operator %q", line.Operator)}
	}
	if _, err := models.ParseGroup(string(line.Group)); err != nil {
		return Resolved{}, &StructureError{Line: name, Msg: "invalid group", Err: err}
	}

	field, err := ec.Catalog.Field(ctx, ec.EntityType, line.Field)
	if err != nil {
		return Resolved{}, lookupError(name, fmt.Sprintf("field %q does not belong to %q", line.Field, ec.EntityType), err)
	}

	res := Resolved{Line: line, Field: field}
	if !field.Type.IsRelational() {
		if line.Subfield != "" {
			return Resolved{}, &StructureError{Line: name,
				Msg: fmt.Sprintf("field %q is of type %s and cannot have a subfield", field.Name, field.Type)}
		}
		return res, nil
	}

	if line.Subfield == "" {
		return Resolved{}, &StructureError{Line: name,
			Msg: fmt.Sprintf("field %q is of type %s and requires a subfield", field.Name, field.Type)}
	}
	sub, err := ec.Catalog.Field(ctx, field.Relation, line.Subfield)
	if err != nil {
		return Resolved{}, lookupError(name, fmt.Sprintf("subfield %q does not belong to %q", line.Subfield, field.Relation), err)
	}
	res.Subfield = &sub
	return res, nil
}

func lookupError(line, msg string, err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return &StructureError{Line: line, Msg: msg, Err: err}
	}
	return fmt.Errorf("failed to look up condition %s: %w", line, err)
}

// Validate is Resolve without the result
func Validate(ctx context.Context, ec EditContext, line models.ConditionLine) error {
	_, err := Resolve(ctx, ec, line)
	return err
}

// Evaluate resolves the line and converts it into a leaf. The raw value is
// coerced with the declared type of the line's field.
func Evaluate(ctx context.Context, ec EditContext, line models.ConditionLine) (domain.Leaf, error) {
	res, err := Resolve(ctx, ec, line)
	if err != nil {
		return domain.Leaf{}, err
	}
	value, err := coerce.Coerce(res.Field.Name, res.Field.Type, line.Value)
	if err != nil {
		return domain.Leaf{}, err
	}
	return domain.Leaf{Path: line.Path(), Operator: line.Operator, Value: value}, nil
}

// AllowedFields lists the fields a line of the context's entity type may use
func AllowedFields(ctx context.Context, ec EditContext) ([]models.Field, error) {
	e, err := ec.Catalog.Entity(ctx, ec.EntityType)
	if err != nil {
		return nil, err
	}
	return e.Fields, nil
}

// AllowedSubfields lists the fields of field's relation target; it is empty
// for non-relational fields
func AllowedSubfields(ctx context.Context, ec EditContext, field string) ([]models.Field, error) {
	f, err := ec.Catalog.Field(ctx, ec.EntityType, field)
	if err != nil {
		return nil, err
	}
	if !f.Type.IsRelational() {
		return nil, nil
	}
	target, err := ec.Catalog.Entity(ctx, f.Relation)
	if err != nil {
		return nil, err
	}
	return target.Fields, nil
}

// SetField changes a line's field; the subfield no longer applies and is cleared
func SetField(line models.ConditionLine, field string) models.ConditionLine {
	if line.Field != field {
		line.Subfield = ""
	}
	line.Field = field
	return line
}

// Package backend executes compiled domains against PostgreSQL.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// idColumn is the primary key of every entity table
const idColumn = "id"

// Builder generates SQL from domains, resolving field paths through a catalog
type Builder struct {
	catalog catalog.Catalog
	schema  string
}

// NewBuilder creates a builder; schema may be empty to use the search_path
func NewBuilder(cat catalog.Catalog, schema string) *Builder {
	return &Builder{catalog: cat, schema: schema}
}

// query accumulates positional arguments while a statement is built
type query struct {
	args []any
}

func (q *query) param(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

// BuildSearch returns the statement selecting the ids of entityType's
// records matching d, ordered by id
func (b *Builder) BuildSearch(ctx context.Context, entityType string, d domain.Domain) (string, []any, error) {
	entity, err := b.catalog.Entity(ctx, entityType)
	if err != nil {
		return "", nil, err
	}

	where, args, err := b.BuildWhere(ctx, entity, d)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", quote(idColumn), b.table(entity))
	if where != "" {
		sql += " " + where
	}
	sql += " ORDER BY " + quote(idColumn)
	return sql, args, nil
}

// BuildWhere generates a WHERE clause from a domain. The empty domain
// yields an empty clause.
func (b *Builder) BuildWhere(ctx context.Context, entity models.EntityType, d domain.Domain) (string, []any, error) {
	if len(d.Operands()) == 0 {
		return "", nil, nil
	}

	q := &query{}
	clause, err := b.buildGroup(ctx, q, entity, d)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + clause, q.args, nil
}

// buildGroup recursively builds a domain and its nested domains
func (b *Builder) buildGroup(ctx context.Context, q *query, entity models.EntityType, d domain.Domain) (string, error) {
	operands := d.Operands()
	if len(operands) == 0 {
		return "TRUE", nil
	}

	clauses := make([]string, 0, len(operands))
	for _, term := range operands {
		switch t := term.(type) {
		case domain.Leaf:
			clause, err := b.buildCondition(ctx, q, entity, strings.Split(t.Path, "."), t.Operator, t.Value)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, clause)
		case domain.Domain:
			clause, err := b.buildGroup(ctx, q, entity, t)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, "("+clause+")")
		default:
			return "", fmt.Errorf("unexpected %v inside a domain", t)
		}
	}

	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return strings.Join(clauses, " "+string(d.Connective())+" "), nil
}

// buildCondition builds one leaf. Paths through relational fields become
// subqueries on the relation target.
func (b *Builder) buildCondition(ctx context.Context, q *query, entity models.EntityType, path []string, op models.Operator, value any) (string, error) {
	field, err := b.lookupField(ctx, entity, path[0])
	if err != nil {
		return "", err
	}

	if !field.Type.IsRelational() {
		if len(path) > 1 {
			return "", fmt.Errorf("field %s.%s is of type %s and has no subfield %q",
				entity.Name, field.Name, field.Type, strings.Join(path[1:], "."))
		}
		return compare(q, quote(field.ColumnName()), op, value)
	}

	if len(path) == 1 && field.Type == models.TypeMany2One {
		return compare(q, quote(field.ColumnName()), op, value)
	}

	target, err := b.catalog.Entity(ctx, field.Relation)
	if err != nil {
		return "", fmt.Errorf("relation target of %s.%s: %w", entity.Name, field.Name, err)
	}
	rest := path[1:]
	if len(rest) == 0 {
		rest = []string{idColumn}
	}
	inner, err := b.buildCondition(ctx, q, target, rest, op, value)
	if err != nil {
		return "", err
	}
	sub := fmt.Sprintf("SELECT %s FROM %s WHERE %s", quote(idColumn), b.table(target), inner)

	switch field.Type {
	case models.TypeMany2One:
		return fmt.Sprintf("%s IN (%s)", quote(field.ColumnName()), sub), nil
	case models.TypeOne2Many:
		if field.ReverseColumn == "" {
			return "", fmt.Errorf("one2many field %s.%s has no reverse column", entity.Name, field.Name)
		}
		return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s)",
			quote(idColumn), quote(field.ReverseColumn), b.table(target), inner), nil
	default:
		if field.LinkTable == "" || field.OriginColumn == "" || field.TargetColumn == "" {
			return "", fmt.Errorf("many2many field %s.%s has no link table", entity.Name, field.Name)
		}
		return fmt.Sprintf("%s IN (SELECT %s FROM %s WHERE %s IN (%s))",
			quote(idColumn), quote(field.OriginColumn), b.identifier(field.LinkTable),
			quote(field.TargetColumn), sub), nil
	}
}

func (b *Builder) lookupField(ctx context.Context, entity models.EntityType, name string) (models.Field, error) {
	if name == "" {
		return models.Field{}, fmt.Errorf("empty field name in path on %s", entity.Name)
	}
	return b.catalog.Field(ctx, entity.Name, name)
}

// compare renders "column operator value"
func compare(q *query, column string, op models.Operator, value any) (string, error) {
	switch op {
	case models.OpEqual, models.OpNotEqual:
		if value == nil {
			if op == models.OpEqual {
				return column + " IS NULL", nil
			}
			return column + " IS NOT NULL", nil
		}
		if _, ok := value.([]any); ok {
			return "", fmt.Errorf("operator %q does not take a list, use 'in'", op)
		}
		return fmt.Sprintf("%s %s %s", column, op, q.param(param(value))), nil
	case models.OpLessThan, models.OpGreaterThan, models.OpLessOrEqual, models.OpGreaterOrEqual:
		if value == nil {
			return "", fmt.Errorf("operator %q cannot compare with None", op)
		}
		if _, ok := value.([]any); ok {
			return "", fmt.Errorf("operator %q does not take a list", op)
		}
		return fmt.Sprintf("%s %s %s", column, op, q.param(param(value))), nil
	case models.OpLike, models.OpNotLike, models.OpILike, models.OpNotILike:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("operator %q needs a text value, got %T", op, value)
		}
		return fmt.Sprintf("%s::text %s %s", column, strings.ToUpper(string(op)), q.param(s)), nil
	case models.OpIn, models.OpNotIn:
		items, ok := value.([]any)
		if !ok {
			return "", fmt.Errorf("operator %q needs a list value, got %T", op, value)
		}
		if len(items) == 0 {
			if op == models.OpIn {
				return "FALSE", nil
			}
			return "TRUE", nil
		}
		placeholders := make([]string, len(items))
		for i, item := range items {
			placeholders[i] = q.param(param(item))
		}
		return fmt.Sprintf("%s %s (%s)", column, strings.ToUpper(string(op)), strings.Join(placeholders, ", ")), nil
	default:
		return "", fmt.Errorf("unsupported operator: %s", op)
	}
}

// param converts domain values into values pgx can encode
func param(v any) any {
	switch val := v.(type) {
	case models.Date:
		return pgtype.Date{Time: val.Time(), Valid: true}
	default:
		return v
	}
}

func (b *Builder) table(e models.EntityType) string {
	name := e.Table
	if name == "" {
		name = e.Name
	}
	return b.identifier(name)
}

func (b *Builder) identifier(name string) string {
	if b.schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{b.schema, name}.Sanitize()
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

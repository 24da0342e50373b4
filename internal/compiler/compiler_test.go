package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/rebeliceyang/lazysearch/internal/catalog/catalogtest"
	"github.com/rebeliceyang/lazysearch/internal/coerce"
	"github.com/rebeliceyang/lazysearch/internal/condition"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actionMap map[string]models.Action

func (m actionMap) GetAction(_ context.Context, id string) (models.Action, error) {
	a, ok := m[id]
	if !ok {
		return models.Action{}, errors.New("no such action")
	}
	return a, nil
}

func line(seq int, group models.Group, field string, op models.Operator, value string) models.ConditionLine {
	return models.ConditionLine{Sequence: seq, Group: group, Field: field, Operator: op, Value: value}
}

func TestCompileLinesEmpty(t *testing.T) {
	c := New(catalogtest.New(), nil)
	d, err := c.CompileLines(context.Background(), "party", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Domain{}, d)
}

func TestCompileLinesBuckets(t *testing.T) {
	c := New(catalogtest.New(), nil)
	lines := []models.ConditionLine{
		line(0, models.GroupAnd, "employees", models.OpEqual, "5"),
		line(1, models.GroupOr, "id", models.OpEqual, "6"),
	}

	d, err := c.CompileLines(context.Background(), "party", lines)
	require.NoError(t, err)
	want := domain.Domain{
		domain.Domain{domain.Or, domain.Leaf{Path: "id", Operator: models.OpEqual, Value: int64(6)}},
		domain.Domain{domain.Leaf{Path: "employees", Operator: models.OpEqual, Value: int64(5)}},
	}
	assert.Equal(t, want, d)
	assert.Equal(t, "[['OR', ('id', '=', 6)], [('employees', '=', 5)]]", d.String())
}

func TestCompileLinesOrderFollowsSequenceWithinBuckets(t *testing.T) {
	c := New(catalogtest.New(), nil)
	ctx := context.Background()

	lines := []models.ConditionLine{
		line(20, models.GroupAnd, "name", models.OpILike, "%a%"),
		line(5, models.GroupOr, "code", models.OpEqual, "A"),
		line(10, models.GroupAnd, "kind", models.OpEqual, "person"),
		line(1, models.GroupOr, "code", models.OpEqual, "B"),
		line(10, models.GroupAnd, "notes", models.OpLike, "x"),
	}
	d, err := c.CompileLines(ctx, "party", lines)
	require.NoError(t, err)
	assert.Equal(t, "[['OR', ('code', '=', 'B'), ('code', '=', 'A')], [('kind', '=', 'person'), ('notes', 'like', 'x'), ('name', 'ilike', '%a%')]]", d.String())

	// swapping sequences reorders within a bucket and never moves a line across buckets
	lines[0].Sequence, lines[2].Sequence = 10, 20
	d, err = c.CompileLines(ctx, "party", lines)
	require.NoError(t, err)
	assert.Equal(t, "[['OR', ('code', '=', 'B'), ('code', '=', 'A')], [('name', 'ilike', '%a%'), ('notes', 'like', 'x'), ('kind', '=', 'person')]]", d.String())
}

func TestCompileLinesOnlyAnd(t *testing.T) {
	c := New(catalogtest.New(), nil)
	d, err := c.CompileLines(context.Background(), "party", []models.ConditionLine{
		line(0, "", "name", models.OpILike, "%acme%"),
		line(1, models.GroupAnd, "country", models.OpEqual, "ES"),
	})
	require.Error(t, err, "relational field without subfield must be rejected")

	var se *condition.StructureError
	assert.True(t, errors.As(err, &se))
	assert.Nil(t, d)

	d, err = c.CompileLines(context.Background(), "party", []models.ConditionLine{
		line(0, "", "name", models.OpILike, "%acme%"),
	})
	require.NoError(t, err)
	assert.Equal(t, `[[('name', 'ilike', '%acme%')]]`, d.String())
}

func TestCompileLinesFailsFast(t *testing.T) {
	c := New(catalogtest.New(), nil)
	_, err := c.CompileLines(context.Background(), "party", []models.ConditionLine{
		line(0, models.GroupAnd, "birthday", models.OpEqual, "2024-01-01"),
		line(1, models.GroupAnd, "employees", models.OpEqual, "many"),
	})
	var vfe *coerce.ValueFormatError
	require.True(t, errors.As(err, &vfe))
	assert.Equal(t, "birthday", vfe.Field, "first error in sequence order wins")
}

func TestCompileExpression(t *testing.T) {
	d, err := CompileExpression("[('x','=',1)]")
	require.NoError(t, err)
	assert.Equal(t, domain.Domain{domain.Leaf{Path: "x", Operator: models.OpEqual, Value: int64(1)}}, d)

	for _, text := range []string{"5", "", "   ", "[]", "domain = []", "[('x', '=')]", "[(", "os.system('ls')"} {
		_, err := CompileExpression(text)
		var dfe *DomainFieldError
		require.True(t, errors.As(err, &dfe), "%q: expected DomainFieldError, got %v", text, err)
		assert.Contains(t, err.Error(), "holding a filter")
	}

	_, err = CompileExpression("[('x', 'child_of', 1)]")
	var typeErr *domain.TypeError
	assert.True(t, errors.As(err, &typeErr), "type errors stay reachable through the DomainFieldError")
}

func TestEffectiveFilterConjoinsActionDomain(t *testing.T) {
	actions := actionMap{
		"act":    {ID: "act", Name: "Active parties", EntityType: "party", Domain: "[('active', '=', True)]"},
		"empty":  {ID: "empty", Name: "All", EntityType: "party"},
		"broken": {ID: "broken", Name: "Broken", EntityType: "party", Domain: "[("},
	}
	c := New(catalogtest.New(), actions)
	ctx := context.Background()

	p := models.Profile{
		Name:       "Acme",
		EntityType: "party",
		Lines:      []models.ConditionLine{line(0, models.GroupAnd, "name", models.OpILike, "%acme%")},
		ActionID:   "act",
	}
	d, err := c.EffectiveFilter(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, `[[('name', 'ilike', '%acme%')], ('active', '=', True)]`, d.String())

	p.UseExpression = true
	p.Expression = "[('code', '=', 'A')]"
	d, err = c.EffectiveFilter(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, `[('code', '=', 'A'), ('active', '=', True)]`, d.String())

	p.ActionID = "empty"
	d, err = c.EffectiveFilter(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, `[('code', '=', 'A')]`, d.String())

	p.ActionID = "broken"
	_, err = c.EffectiveFilter(ctx, p)
	assert.Error(t, err)

	p.ActionID = "missing"
	_, err = c.EffectiveFilter(ctx, p)
	assert.Error(t, err)
}

func TestEffectiveFilterIsIdempotent(t *testing.T) {
	c := New(catalogtest.New(), nil)
	p := models.Profile{
		Name:       "Mixed",
		EntityType: "party",
		Lines: []models.ConditionLine{
			line(1, models.GroupOr, "rating", models.OpGreaterThan, "4.5"),
			line(0, models.GroupAnd, "credit_limit", models.OpGreaterOrEqual, "1000.00"),
			line(2, models.GroupOr, "country", models.OpEqual, "x"),
		},
	}
	p.Lines[2].Subfield = "code"

	first, err := c.EffectiveFilter(context.Background(), p)
	require.NoError(t, err)
	second, err := c.EffectiveFilter(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "[['OR', ('rating', '>', 4.5), ('country.code', '=', 'x')], [('credit_limit', '>=', Decimal('1000.00'))]]", first.String())
}

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleDomain(t *testing.T) {
	d, err := Parse("[('x','=',1)]")
	require.NoError(t, err)
	assert.Equal(t, Domain{Leaf{Path: "x", Operator: models.OpEqual, Value: int64(1)}}, d)
}

func TestParseAssignmentAndNesting(t *testing.T) {
	text := `domain = [
		['OR', ('state', '=', "done"), ('state', 'in', ['draft', 'open'])],
		('amount', '>=', Decimal('10.50')),
		('active', '!=', False),
		('parent', '=', None),
		('date', '<', date(2024, 2, 29)),
		('create_date', '>', datetime(2024, 1, 1, 8, 30)),
	]`
	d, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, d, 6)

	nested, ok := d[0].(Domain)
	require.True(t, ok)
	assert.Equal(t, Or, nested.Connective())
	assert.Len(t, nested.Operands(), 2)
	assert.Equal(t, []any{"draft", "open"}, nested[2].(Leaf).Value)

	amount := d[1].(Leaf).Value.(pgtype.Numeric)
	assert.Equal(t, "10.50", NumericText(amount))
	assert.Equal(t, false, d[2].(Leaf).Value)
	assert.Nil(t, d[3].(Leaf).Value)
	assert.Equal(t, models.Date{Year: 2024, Month: time.February, Day: 29}, d[4].(Leaf).Value)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC), d[5].(Leaf).Value)
}

func TestParseRejectsNonFilters(t *testing.T) {
	tests := map[string]string{
		"number":          "5",
		"string":          "'x'",
		"unknown name":    "__import__('os')",
		"call":            "open('/etc/passwd')",
		"bad operator":    "[('x', 'child_of', 1)]",
		"short leaf":      "[('x', '=')]",
		"long leaf":       "[('x', '=', 1, 2)]",
		"stray string":    "[('x','=',1), 'OR']",
		"number element":  "[1, 2]",
		"unterminated":    "[('x', '=', 1)",
		"trailing tokens": "[] []",
		"bad date":        "[('d', '=', date(2024, 2, 30))]",
		"float overflow":  "[('x', '=', 1e999)]",
		"nan decimal":     "[('x', '=', Decimal('nan'))]",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(text)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			var typeErr *TypeError
			assert.True(t, errors.As(err, &syntaxErr) || errors.As(err, &typeErr), "unexpected error type %T", err)
		})
	}
}

func TestParseDecimalExponent(t *testing.T) {
	d, err := Parse("[('a', '=', Decimal('1e3')), ('b', '=', Decimal('-2.5E-1'))]")
	require.NoError(t, err)
	assert.Equal(t, "1000", NumericText(d[0].(Leaf).Value.(pgtype.Numeric)))
	assert.Equal(t, "-0.25", NumericText(d[1].(Leaf).Value.(pgtype.Numeric)))
}

func TestParseStringEscapes(t *testing.T) {
	d, err := Parse(`[('code', 'like', '100\%'), ('name', '=', 'o\'neil'), ('path', '=', 'a\\b'), ('memo', '=', "x\ty")]`)
	require.NoError(t, err)
	assert.Equal(t, `100\%`, d[0].(Leaf).Value)
	assert.Equal(t, "o'neil", d[1].(Leaf).Value)
	assert.Equal(t, `a\b`, d[2].(Leaf).Value)
	assert.Equal(t, "x\ty", d[3].(Leaf).Value)

	back, err := Parse(d.String())
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestParseDepthLimit(t *testing.T) {
	text := ""
	for i := 0; i < maxDepth+2; i++ {
		text += "["
	}
	_, err := Parse(text)
	var syntaxErr *SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
}

func TestStringRoundTripsThroughParse(t *testing.T) {
	d := Domain{
		Domain{Or, Leaf{"y", models.OpEqual, int64(6)}, Leaf{"name", models.OpILike, "%o'neil%"}},
		Domain{Leaf{"x", models.OpEqual, int64(5)}, Leaf{"rate", models.OpLessThan, 2.0}},
		Leaf{"day", models.OpEqual, models.Date{Year: 2024, Month: time.March, Day: 1}},
	}
	text := d.String()
	assert.Equal(t, `[['OR', ('y', '=', 6), ('name', 'ilike', '%o\'neil%')], [('x', '=', 5), ('rate', '<', 2.0)], ('day', '=', date(2024, 3, 1))]`, text)

	back, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestEncode(t *testing.T) {
	var amount pgtype.Numeric
	require.NoError(t, amount.Scan("-0.05"))

	d := Domain{
		Domain{Or, Leaf{"y", models.OpEqual, int64(6)}},
		Domain{
			Leaf{"day", models.OpEqual, models.Date{Year: 2024, Month: time.March, Day: 1}},
			Leaf{"amount", models.OpGreaterThan, amount},
		},
	}
	got, err := Encode(d)
	require.NoError(t, err)
	assert.JSONEq(t, `[["OR", ["y", "=", 6]], [["day", "=", {"__class__": "date", "year": 2024, "month": 3, "day": 1}], ["amount", ">", {"__class__": "Decimal", "decimal": "-0.05"}]]]`, got)

	empty, err := Encode(Domain{})
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestConjoinAndLeaves(t *testing.T) {
	base := Domain{Leaf{"a", models.OpEqual, int64(1)}}
	extra := Domain{Domain{Or, Leaf{"b", models.OpEqual, int64(2)}, Leaf{"c", models.OpEqual, int64(3)}}}

	joined := Conjoin(base, extra)
	assert.Len(t, joined, 2)
	assert.Len(t, base, 1, "Conjoin must not modify its input")
	assert.Equal(t, []string{"a", "b", "c"}, paths(joined.Leaves()))
}

func paths(leaves []Leaf) []string {
	out := make([]string, len(leaves))
	for i, l := range leaves {
		out[i] = l.Path
	}
	return out
}

package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/catalog/catalogtest"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) domain.Domain {
	t.Helper()
	d, err := domain.Parse(text)
	require.NoError(t, err)
	return d
}

func TestBuildSearchEmptyDomainMatchesAll(t *testing.T) {
	b := NewBuilder(catalogtest.New(), "")
	sql, args, err := b.BuildSearch(context.Background(), "party", domain.Domain{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "party_party" ORDER BY "id"`, sql)
	assert.Empty(t, args)
}

func TestBuildSearchWithSchema(t *testing.T) {
	b := NewBuilder(catalogtest.New(), "public")
	sql, args, err := b.BuildSearch(context.Background(), "party", mustParse(t, "[('name', 'ilike', '%acme%')]"))
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "public"."party_party" WHERE "name"::text ILIKE $1 ORDER BY "id"`, sql)
	assert.Equal(t, []any{"%acme%"}, args)
}

func TestBuildWhere(t *testing.T) {
	b := NewBuilder(catalogtest.New(), "")
	party, err := catalogtest.New().Entity(context.Background(), "party")
	require.NoError(t, err)

	tests := []struct {
		name     string
		domain   string
		expected string
		args     []any
	}{
		{
			name:     "two buckets",
			domain:   "[['OR', ('code', '=', 'A'), ('code', '=', 'B')], [('name', 'ilike', '%acme%'), ('employees', '>', 10)]]",
			expected: `WHERE ("code" = $1 OR "code" = $2) AND ("name"::text ILIKE $3 AND "employees" > $4)`,
			args:     []any{"A", "B", "%acme%", int64(10)},
		},
		{
			name:     "is null",
			domain:   "[('code', '=', None), ('notes', '!=', None)]",
			expected: `WHERE "code" IS NULL AND "notes" IS NOT NULL`,
		},
		{
			name:     "not like",
			domain:   "[('name', 'not ilike', 'x%')]",
			expected: `WHERE "name"::text NOT ILIKE $1`,
			args:     []any{"x%"},
		},
		{
			name:     "in list",
			domain:   "[('id', 'in', [1, 2, 3])]",
			expected: `WHERE "id" IN ($1, $2, $3)`,
			args:     []any{int64(1), int64(2), int64(3)},
		},
		{
			name:     "empty in list",
			domain:   "['OR', ('id', 'in', []), ('id', 'not in', [])]",
			expected: `WHERE FALSE OR TRUE`,
		},
		{
			name:     "many2one id",
			domain:   "[('country', '=', 4)]",
			expected: `WHERE "country_id" = $1`,
			args:     []any{int64(4)},
		},
		{
			name:     "many2one subfield",
			domain:   "[('country.code', '=', 'ES')]",
			expected: `WHERE "country_id" IN (SELECT "id" FROM "country" WHERE "code" = $1)`,
			args:     []any{"ES"},
		},
		{
			name:     "one2many subfield",
			domain:   "[('addresses.city', 'ilike', '%paris%')]",
			expected: `WHERE "id" IN (SELECT "party_id" FROM "address" WHERE "city"::text ILIKE $1)`,
			args:     []any{"%paris%"},
		},
		{
			name:     "many2many subfield",
			domain:   "[('categories.name', '=', 'vip')]",
			expected: `WHERE "id" IN (SELECT "party_id" FROM "party_category_rel" WHERE "category_id" IN (SELECT "id" FROM "category" WHERE "name" = $1))`,
			args:     []any{"vip"},
		},
		{
			name:     "date value",
			domain:   "[('birthday', '>=', date(1990, 5, 17))]",
			expected: `WHERE "birthday" >= $1`,
			args:     []any{pgtype.Date{Time: time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC), Valid: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := b.BuildWhere(context.Background(), party, mustParse(t, tt.domain))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, where)
			if tt.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.args, args)
			}
		})
	}
}

func TestBuildWhereRejects(t *testing.T) {
	b := NewBuilder(catalogtest.New(), "")
	party, err := catalogtest.New().Entity(context.Background(), "party")
	require.NoError(t, err)

	for _, text := range []string{
		"[('nickname', '=', 'x')]",
		"[('name.first', '=', 'x')]",
		"[('country.flag', '=', 'x')]",
		"[('employees', 'like', 5)]",
		"[('id', 'in', 5)]",
		"[('id', '=', [1, 2])]",
		"[('employees', '<', None)]",
	} {
		_, _, err := b.BuildWhere(context.Background(), party, mustParse(t, text))
		assert.Error(t, err, text)
	}

	_, _, err = b.BuildWhere(context.Background(), party, mustParse(t, "[('nickname', '=', 'x')]"))
	assert.True(t, errors.Is(err, catalog.ErrNotFound))

	_, _, err = b.BuildSearch(context.Background(), "invoice", domain.Domain{})
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestBuildWhereKeepsNumericExact(t *testing.T) {
	b := NewBuilder(catalogtest.New(), "")
	party, err := catalogtest.New().Entity(context.Background(), "party")
	require.NoError(t, err)

	where, args, err := b.BuildWhere(context.Background(), party, mustParse(t, "[('credit_limit', '>=', Decimal('1000.50'))]"))
	require.NoError(t, err)
	assert.Equal(t, `WHERE "credit_limit" >= $1`, where)
	require.Len(t, args, 1)
	n, ok := args[0].(pgtype.Numeric)
	require.True(t, ok)
	assert.Equal(t, "1000.50", domain.NumericText(n))
}

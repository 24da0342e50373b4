package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/catalog/catalogtest"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticLookups(t *testing.T) {
	c := catalogtest.New()
	ctx := context.Background()

	entities, err := c.Entities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 4)
	assert.Equal(t, "address", entities[0].Name)

	f, err := c.Field(ctx, "party", "country")
	require.NoError(t, err)
	assert.Equal(t, models.TypeMany2One, f.Type)
	assert.Equal(t, "country_id", f.ColumnName())

	target, err := catalog.RelationTarget(ctx, c, "party", "categories")
	require.NoError(t, err)
	assert.Equal(t, "category", target.Name)

	_, err = catalog.RelationTarget(ctx, c, "party", "name")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))

	_, err = c.Field(ctx, "party", "nope")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))

	_, err = c.Entity(ctx, "invoice")
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
}

func TestNewStaticRejectsBrokenDefinitions(t *testing.T) {
	_, err := catalog.NewStatic(models.EntityType{Name: "a", Fields: []models.Field{
		{Name: "b", Type: models.TypeMany2One, Relation: "missing"},
	}})
	assert.Error(t, err)

	_, err = catalog.NewStatic(models.EntityType{Name: "a", Fields: []models.Field{
		{Name: "b", Type: "blob"},
	}})
	assert.Error(t, err)

	_, err = catalog.NewStatic(models.EntityType{Name: "a"}, models.EntityType{Name: "a"})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `entities:
  - name: party
    label: Party
    table: party_party
    searchable: true
    fields:
      - {name: name, type: char, required: true}
      - {name: country, type: many2one, relation: country, column: country_id}
  - name: country
    label: Country
    fields:
      - {name: name, type: char}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := catalog.LoadFile(path)
	require.NoError(t, err)

	party, err := c.Entity(context.Background(), "party")
	require.NoError(t, err)
	assert.True(t, party.Searchable)
	assert.Equal(t, "Party", party.DisplayLabel())
	assert.Len(t, party.Fields, 2)

	_, err = catalog.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

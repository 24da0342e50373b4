// Package catalogtest provides a small catalog for tests.
package catalogtest

import (
	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// Entities returns the fixture entity types: party (searchable), address
// (searchable), country and category
func Entities() []models.EntityType {
	return []models.EntityType{
		{
			Name: "party", Label: "party", Table: "party_party", Searchable: true,
			Fields: []models.Field{
				{Name: "id", Type: models.TypeInteger, Required: true},
				{Name: "name", Type: models.TypeChar, Required: true},
				{Name: "code", Type: models.TypeChar},
				{Name: "active", Type: models.TypeBoolean},
				{Name: "credit_limit", Type: models.TypeNumeric},
				{Name: "rating", Type: models.TypeFloat},
				{Name: "employees", Type: models.TypeInteger},
				{Name: "birthday", Type: models.TypeDate},
				{Name: "create_date", Type: models.TypeDateTime},
				{Name: "write_date", Type: models.TypeTimestamp},
				{Name: "kind", Type: models.TypeSelection},
				{Name: "notes", Type: models.TypeText},
				{Name: "country", Type: models.TypeMany2One, Relation: "country", Column: "country_id"},
				{Name: "addresses", Type: models.TypeOne2Many, Relation: "address", ReverseColumn: "party_id"},
				{Name: "categories", Type: models.TypeMany2Many, Relation: "category",
					LinkTable: "party_category_rel", OriginColumn: "party_id", TargetColumn: "category_id"},
			},
		},
		{
			Name: "address", Label: "Address", Searchable: true,
			Fields: []models.Field{
				{Name: "id", Type: models.TypeInteger, Required: true},
				{Name: "street", Type: models.TypeChar},
				{Name: "city", Type: models.TypeChar},
				{Name: "party", Type: models.TypeMany2One, Relation: "party", Column: "party_id"},
			},
		},
		{
			Name: "country", Label: "Country",
			Fields: []models.Field{
				{Name: "id", Type: models.TypeInteger, Required: true},
				{Name: "name", Type: models.TypeChar},
				{Name: "code", Type: models.TypeChar},
			},
		},
		{
			Name: "category", Label: "Category",
			Fields: []models.Field{
				{Name: "id", Type: models.TypeInteger, Required: true},
				{Name: "name", Type: models.TypeChar},
			},
		},
	}
}

// New returns the fixture catalog
func New() *catalog.Static {
	c, err := catalog.NewStatic(Entities()...)
	if err != nil {
		panic(err)
	}
	return c
}

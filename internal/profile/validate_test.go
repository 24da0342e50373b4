package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/rebeliceyang/lazysearch/internal/catalog/catalogtest"
	"github.com/rebeliceyang/lazysearch/internal/condition"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type actionMap map[string]models.Action

func (m actionMap) GetAction(_ context.Context, id string) (models.Action, error) {
	a, ok := m[id]
	if !ok {
		return models.Action{}, ErrNotFound
	}
	return a, nil
}

func TestValidate(t *testing.T) {
	cat := catalogtest.New()
	actions := actionMap{
		"parties":   {ID: "parties", Name: "Parties", EntityType: "party"},
		"addresses": {ID: "addresses", Name: "Addresses", EntityType: "address"},
	}
	ctx := context.Background()

	valid := func() models.Profile {
		return models.Profile{
			Name:       "Acme",
			EntityType: "party",
			Lines: []models.ConditionLine{
				{Field: "name", Operator: models.OpILike, Value: "%acme%"},
				{Group: models.GroupOr, Field: "country", Subfield: "code", Operator: models.OpEqual, Value: "ES"},
			},
			ActionID: "parties",
		}
	}
	require.NoError(t, Validate(ctx, cat, actions, valid()))

	tests := []struct {
		name   string
		mutate func(p *models.Profile)
	}{
		{"empty name", func(p *models.Profile) { p.Name = " " }},
		{"unknown entity", func(p *models.Profile) { p.EntityType = "invoice" }},
		{"entity not searchable", func(p *models.Profile) { p.EntityType = "country"; p.Lines = nil; p.ActionID = "" }},
		{"relational field without subfield", func(p *models.Profile) { p.Lines[1].Subfield = "" }},
		{"plain field with subfield", func(p *models.Profile) { p.Lines[0].Subfield = "name" }},
		{"subfield of another entity", func(p *models.Profile) { p.Lines[1].Subfield = "street" }},
		{"unknown operator", func(p *models.Profile) { p.Lines[0].Operator = "child_of" }},
		{"unknown group", func(p *models.Profile) { p.Lines[0].Group = "XOR" }},
		{"expression mode without expression", func(p *models.Profile) { p.UseExpression = true }},
		{"expression that is not a filter", func(p *models.Profile) { p.UseExpression = true; p.Expression = "5" }},
		{"missing action", func(p *models.Profile) { p.ActionID = "gone" }},
		{"action of another entity", func(p *models.Profile) { p.ActionID = "addresses" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			err := Validate(ctx, cat, actions, p)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestValidateIgnoresInactiveSource(t *testing.T) {
	cat := catalogtest.New()
	ctx := context.Background()

	// lines are not checked in expression mode
	p := models.Profile{
		Name:          "Raw",
		EntityType:    "party",
		UseExpression: true,
		Expression:    "domain = [('name', 'ilike', '%acme%')]",
		Lines:         []models.ConditionLine{{Field: "country", Operator: models.OpEqual, Value: "ES"}},
	}
	require.NoError(t, Validate(ctx, cat, nil, p))

	err := Validate(ctx, cat, nil, models.Profile{Name: "Bound", EntityType: "party", ActionID: "x"})
	assert.Error(t, err)
}

func TestValidateLineWrapsStructureErrors(t *testing.T) {
	ec := condition.EditContext{Catalog: catalogtest.New(), EntityType: "party"}
	err := ValidateLine(context.Background(), ec, models.ConditionLine{Field: "categories", Operator: models.OpIn, Value: "1"})
	var se *condition.StructureError
	require.True(t, errors.As(err, &se))

	require.NoError(t, ValidateLine(context.Background(), ec,
		models.ConditionLine{Field: "categories", Subfield: "name", Operator: models.OpEqual, Value: "vip"}))
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionLineRecName(t *testing.T) {
	plain := ConditionLine{Field: "name", Operator: OpILike, Value: "%acme%"}
	assert.Equal(t, `'name','ilike','%acme%'`, plain.RecName())

	relational := ConditionLine{Field: "country", Subfield: "code", Operator: OpEqual, Value: "FR"}
	assert.Equal(t, `'country.code','=','FR'`, relational.RecName())
}

func TestProfileCondition(t *testing.T) {
	p := Profile{
		Name:       "French Acme",
		EntityType: "party",
		Lines: []ConditionLine{
			{Sequence: 20, Field: "country", Subfield: "code", Operator: OpEqual, Value: "FR"},
			{Sequence: 10, Field: "name", Operator: OpILike, Value: "%acme%"},
		},
	}

	assert.Equal(t, `('name', 'ilike', '%acme%'), ('country.code','=','FR')`, p.Condition())
	assert.Equal(t, `French Acme - ('name', 'ilike', '%acme%'), ('country.code','=','FR')`, p.RecName())
}

func TestProfileConditionEmpty(t *testing.T) {
	p := Profile{Name: "Everything"}
	assert.Equal(t, "", p.Condition())
	assert.Equal(t, "Everything - ", p.RecName())
}

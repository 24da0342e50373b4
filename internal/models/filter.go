package models

import "fmt"

// Operator is a comparison operator usable in a condition line
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "!="
	OpLike           Operator = "like"
	OpNotLike        Operator = "not like"
	OpILike          Operator = "ilike"
	OpNotILike       Operator = "not ilike"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not in"
	OpLessThan       Operator = "<"
	OpGreaterThan    Operator = ">"
	OpLessOrEqual    Operator = "<="
	OpGreaterOrEqual Operator = ">="
)

// Operators lists every supported operator in display order
var Operators = []Operator{
	OpEqual, OpNotEqual,
	OpLike, OpNotLike, OpILike, OpNotILike,
	OpIn, OpNotIn,
	OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual,
}

// Valid reports whether op is one of the supported operators
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// ParseOperator converts text into an Operator
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", fmt.Errorf("unsupported operator: %q", s)
	}
	return op, nil
}

// Group tags which bucket a condition line belongs to
type Group string

const (
	GroupAnd Group = "AND"
	GroupOr  Group = "OR"
)

// ParseGroup converts text into a Group; empty text yields GroupAnd
func ParseGroup(s string) (Group, error) {
	switch Group(s) {
	case "", GroupAnd:
		return GroupAnd, nil
	case GroupOr:
		return GroupOr, nil
	}
	return "", fmt.Errorf("unsupported condition group: %q", s)
}

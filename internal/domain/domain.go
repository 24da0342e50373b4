// Package domain holds the structured boolean filter produced by compiling a
// search profile.
//
// A Domain is a sequence of terms. Terms are leaves (path, operator, value),
// nested domains, or a leading AND/OR connective. Terms without a connective
// are conjoined.
package domain

import (
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// Term is an element of a Domain
type Term interface {
	isTerm()
}

// Connective is the "AND" or "OR" marker heading a domain
type Connective string

const (
	And Connective = "AND"
	Or  Connective = "OR"
)

func (Connective) isTerm() {}

// Leaf is one atomic comparison
type Leaf struct {
	Path     string
	Operator models.Operator
	Value    any
}

func (Leaf) isTerm() {}

// Domain is a sequence of terms; the empty domain matches every record
type Domain []Term

func (Domain) isTerm() {}

// Connective returns the domain's leading connective, And when absent
func (d Domain) Connective() Connective {
	if len(d) > 0 {
		if c, ok := d[0].(Connective); ok {
			return c
		}
	}
	return And
}

// Operands returns the terms without the leading connective
func (d Domain) Operands() []Term {
	if len(d) > 0 {
		if _, ok := d[0].(Connective); ok {
			return d[1:]
		}
	}
	return d
}

// Conjoin appends extra to d, returning a new domain
func Conjoin(d Domain, extra Domain) Domain {
	out := make(Domain, 0, len(d)+len(extra))
	out = append(out, d...)
	return append(out, extra...)
}

// Leaves returns every leaf of d in depth-first order
func (d Domain) Leaves() []Leaf {
	var leaves []Leaf
	for _, term := range d {
		switch t := term.(type) {
		case Leaf:
			leaves = append(leaves, t)
		case Domain:
			leaves = append(leaves, t.Leaves()...)
		}
	}
	return leaves
}

package models

import "fmt"

// FieldType is the declared type of a field in the metadata catalog
type FieldType string

const (
	TypeBoolean   FieldType = "boolean"
	TypeInteger   FieldType = "integer"
	TypeFloat     FieldType = "float"
	TypeNumeric   FieldType = "numeric"
	TypeChar      FieldType = "char"
	TypeText      FieldType = "text"
	TypeSelection FieldType = "selection"
	TypeDate      FieldType = "date"
	TypeDateTime  FieldType = "datetime"
	TypeTimestamp FieldType = "timestamp"
	TypeReference FieldType = "reference"
	TypeMany2One  FieldType = "many2one"
	TypeOne2Many  FieldType = "one2many"
	TypeMany2Many FieldType = "many2many"
)

// FieldTypes lists every declared type the catalog may report
var FieldTypes = []FieldType{
	TypeBoolean, TypeInteger, TypeFloat, TypeNumeric,
	TypeChar, TypeText, TypeSelection,
	TypeDate, TypeDateTime, TypeTimestamp,
	TypeReference, TypeMany2One, TypeOne2Many, TypeMany2Many,
}

// IsRelational reports whether the type points at another entity type
func (t FieldType) IsRelational() bool {
	switch t {
	case TypeMany2One, TypeOne2Many, TypeMany2Many:
		return true
	}
	return false
}

// Known reports whether t is one of FieldTypes
func (t FieldType) Known() bool {
	for _, ft := range FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// EntityType is a record type registered in the metadata catalog
type EntityType struct {
	Name       string  `yaml:"name"`
	Label      string  `yaml:"label"`
	Table      string  `yaml:"table"`
	Searchable bool    `yaml:"searchable"`
	Fields     []Field `yaml:"fields"`
}

// DisplayLabel returns the label, falling back to the name
func (e EntityType) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Name
}

// Field describes one field of an entity type.
//
// Relation is the target entity type name for relational fields. One2many
// fields name the column on the target that points back (ReverseColumn);
// many2many fields name the link table and its two columns.
type Field struct {
	Name     string    `yaml:"name"`
	Type     FieldType `yaml:"type"`
	Required bool      `yaml:"required"`
	Column   string    `yaml:"column,omitempty"`
	Relation string    `yaml:"relation,omitempty"`

	ReverseColumn string `yaml:"reverse_column,omitempty"`
	LinkTable     string `yaml:"link_table,omitempty"`
	OriginColumn  string `yaml:"origin_column,omitempty"`
	TargetColumn  string `yaml:"target_column,omitempty"`
}

// ColumnName returns the storage column, defaulting to the field name
func (f Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

func (f Field) String() string {
	if f.Relation != "" {
		return fmt.Sprintf("%s (%s -> %s)", f.Name, f.Type, f.Relation)
	}
	return fmt.Sprintf("%s (%s)", f.Name, f.Type)
}

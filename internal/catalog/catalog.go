// Package catalog answers which entity types exist and what their fields are.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rebeliceyang/lazysearch/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned for unknown entity types and fields
var ErrNotFound = errors.New("not found")

// Catalog is the read side of the metadata store
type Catalog interface {
	Entities(ctx context.Context) ([]models.EntityType, error)
	Entity(ctx context.Context, name string) (models.EntityType, error)
	Field(ctx context.Context, entity, field string) (models.Field, error)
}

// RelationTarget returns the entity type a relational field points at
func RelationTarget(ctx context.Context, c Catalog, entity, field string) (models.EntityType, error) {
	f, err := c.Field(ctx, entity, field)
	if err != nil {
		return models.EntityType{}, err
	}
	if !f.Type.IsRelational() || f.Relation == "" {
		return models.EntityType{}, fmt.Errorf("field %s.%s has no relation target: %w", entity, field, ErrNotFound)
	}
	return c.Entity(ctx, f.Relation)
}

// Static is a catalog held in memory, usually loaded from a YAML file
type Static struct {
	entities map[string]models.EntityType
}

type catalogFile struct {
	Entities []models.EntityType `yaml:"entities"`
}

// NewStatic builds a catalog from entity definitions and checks that every
// field type is known and every relation resolves
func NewStatic(entities ...models.EntityType) (*Static, error) {
	s := &Static{entities: make(map[string]models.EntityType, len(entities))}
	for _, e := range entities {
		if e.Name == "" {
			return nil, fmt.Errorf("entity type without a name")
		}
		if _, dup := s.entities[e.Name]; dup {
			return nil, fmt.Errorf("entity type %q defined twice", e.Name)
		}
		s.entities[e.Name] = e
	}

	for _, e := range s.entities {
		seen := make(map[string]bool, len(e.Fields))
		for _, f := range e.Fields {
			if seen[f.Name] {
				return nil, fmt.Errorf("field %s.%s defined twice", e.Name, f.Name)
			}
			seen[f.Name] = true
			if !f.Type.Known() {
				return nil, fmt.Errorf("field %s.%s has unknown type %q", e.Name, f.Name, f.Type)
			}
			if f.Type.IsRelational() {
				if _, ok := s.entities[f.Relation]; !ok {
					return nil, fmt.Errorf("field %s.%s points at unknown entity type %q", e.Name, f.Name, f.Relation)
				}
			}
		}
	}
	return s, nil
}

// LoadFile reads a YAML catalog:
//
//	entities:
//	  - name: party
//	    label: Party
//	    searchable: true
//	    fields:
//	      - {name: name, type: char}
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return NewStatic(file.Entities...)
}

// Entities returns all entity types sorted by name
func (s *Static) Entities(_ context.Context) ([]models.EntityType, error) {
	out := make([]models.EntityType, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Entity returns one entity type
func (s *Static) Entity(_ context.Context, name string) (models.EntityType, error) {
	e, ok := s.entities[name]
	if !ok {
		return models.EntityType{}, fmt.Errorf("entity type %q: %w", name, ErrNotFound)
	}
	return e, nil
}

// Field returns one field of an entity type
func (s *Static) Field(ctx context.Context, entity, field string) (models.Field, error) {
	e, err := s.Entity(ctx, entity)
	if err != nil {
		return models.Field{}, err
	}
	for _, f := range e.Fields {
		if f.Name == field {
			return f, nil
		}
	}
	return models.Field{}, fmt.Errorf("field %s.%s: %w", entity, field, ErrNotFound)
}

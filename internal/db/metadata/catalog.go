package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/models"
)

// Catalog exposes the tables of one PostgreSQL schema as entity types.
// Columns map to scalar fields and single-column foreign keys to many2one
// fields. Results are cached for ttl.
type Catalog struct {
	q          Querier
	schema     string
	searchable map[string]bool
	ttl        time.Duration
	now        func() time.Time

	mu       sync.Mutex
	tables   []Table
	loadedAt time.Time
	entities map[string]cachedEntity
}

type cachedEntity struct {
	entity   models.EntityType
	loadedAt time.Time
}

var _ catalog.Catalog = (*Catalog)(nil)

// NewCatalog creates a catalog over schema. Only tables listed in
// searchable may be targeted by a profile; an empty list allows all.
func NewCatalog(q Querier, schema string, searchable []string, ttl time.Duration) *Catalog {
	if schema == "" {
		schema = "public"
	}
	set := make(map[string]bool, len(searchable))
	for _, name := range searchable {
		set[name] = true
	}
	return &Catalog{
		q:          q,
		schema:     schema,
		searchable: set,
		ttl:        ttl,
		now:        time.Now,
		entities:   make(map[string]cachedEntity),
	}
}

// Entities lists the schema's tables. Fields are not loaded; use Entity.
func (c *Catalog) Entities(ctx context.Context) ([]models.EntityType, error) {
	tables, err := c.listTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.EntityType, 0, len(tables))
	for _, t := range tables {
		out = append(out, c.entityFor(t))
	}
	return out, nil
}

// Entity returns one table with its fields
func (c *Catalog) Entity(ctx context.Context, name string) (models.EntityType, error) {
	c.mu.Lock()
	cached, ok := c.entities[name]
	c.mu.Unlock()
	if ok && c.fresh(cached.loadedAt) {
		return cached.entity, nil
	}

	tables, err := c.listTables(ctx)
	if err != nil {
		return models.EntityType{}, err
	}
	var table *Table
	for i := range tables {
		if tables[i].Name == name {
			table = &tables[i]
			break
		}
	}
	if table == nil {
		return models.EntityType{}, fmt.Errorf("table %s.%s: %w", c.schema, name, catalog.ErrNotFound)
	}

	columns, err := GetTableColumns(ctx, c.q, c.schema, name)
	if err != nil {
		return models.EntityType{}, err
	}
	keys, err := GetForeignKeys(ctx, c.q, c.schema, name)
	if err != nil {
		return models.EntityType{}, err
	}

	entity := c.entityFor(*table)
	entity.Fields = buildFields(columns, keys)

	c.mu.Lock()
	c.entities[name] = cachedEntity{entity: entity, loadedAt: c.now()}
	c.mu.Unlock()

	return entity, nil
}

// Field returns one column of a table
func (c *Catalog) Field(ctx context.Context, entity, field string) (models.Field, error) {
	e, err := c.Entity(ctx, entity)
	if err != nil {
		return models.Field{}, err
	}
	for _, f := range e.Fields {
		if f.Name == field {
			return f, nil
		}
	}
	return models.Field{}, fmt.Errorf("column %s.%s: %w", entity, field, catalog.ErrNotFound)
}

func (c *Catalog) listTables(ctx context.Context) ([]Table, error) {
	c.mu.Lock()
	if c.tables != nil && c.fresh(c.loadedAt) {
		tables := c.tables
		c.mu.Unlock()
		return tables, nil
	}
	c.mu.Unlock()

	tables, err := ListTables(ctx, c.q, c.schema)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables = tables
	c.loadedAt = c.now()
	c.mu.Unlock()
	return tables, nil
}

func (c *Catalog) fresh(loadedAt time.Time) bool {
	return c.ttl > 0 && c.now().Sub(loadedAt) < c.ttl
}

func (c *Catalog) entityFor(t Table) models.EntityType {
	label := t.Comment
	if label == "" {
		label = t.Name
	}
	return models.EntityType{
		Name:       t.Name,
		Label:      label,
		Table:      t.Name,
		Searchable: len(c.searchable) == 0 || c.searchable[t.Name],
	}
}

func buildFields(columns []Column, keys []ForeignKey) []models.Field {
	targets := make(map[string]string, len(keys))
	for _, k := range keys {
		targets[k.Column] = k.ForeignTable
	}

	fields := make([]models.Field, 0, len(columns))
	for _, col := range columns {
		f := models.Field{
			Name:     col.Name,
			Type:     FieldTypeFor(col.DataType),
			Required: !col.IsNullable,
			Column:   col.Name,
		}
		if target, ok := targets[col.Name]; ok {
			f.Type = models.TypeMany2One
			f.Relation = target
		}
		fields = append(fields, f)
	}
	return fields
}

// FieldTypeFor maps an information_schema data_type to a declared field type.
// Types without a mapping are returned verbatim so coercion reports them.
func FieldTypeFor(dataType string) models.FieldType {
	switch dataType {
	case "boolean":
		return models.TypeBoolean
	case "smallint", "integer", "bigint":
		return models.TypeInteger
	case "real", "double precision":
		return models.TypeFloat
	case "numeric", "money":
		return models.TypeNumeric
	case "character varying", "character", "USER-DEFINED":
		return models.TypeChar
	case "text":
		return models.TypeText
	case "date":
		return models.TypeDate
	case "timestamp without time zone":
		return models.TypeDateTime
	case "timestamp with time zone":
		return models.TypeTimestamp
	}
	return models.FieldType(dataType)
}

package metadata

import (
	"context"
	"fmt"
)

// Querier runs a query and returns rows as column maps; *connection.Pool
// satisfies it
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error)
}

// toString safely converts an interface{} to string
func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Table represents a PostgreSQL table
type Table struct {
	Schema  string
	Name    string
	Comment string
}

// ListTables returns all tables in a schema
func ListTables(ctx context.Context, q Querier, schema string) ([]Table, error) {
	query := `
		SELECT
			t.schemaname AS schema,
			t.tablename AS name,
			COALESCE(obj_description(format('%I.%I', t.schemaname, t.tablename)::regclass, 'pg_class'), '') AS comment
		FROM pg_catalog.pg_tables t
		WHERE t.schemaname = $1
		ORDER BY t.tablename;
	`

	rows, err := q.Query(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]Table, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, Table{
			Schema:  toString(row["schema"]),
			Name:    toString(row["name"]),
			Comment: toString(row["comment"]),
		})
	}

	return tables, nil
}

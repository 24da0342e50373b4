package metadata

import (
	"context"
	"fmt"
)

// ForeignKey is a single-column foreign key
type ForeignKey struct {
	Column       string
	ForeignTable string
}

// GetForeignKeys retrieves the single-column foreign keys of a table.
// Multi-column keys cannot be expressed as a many2one field and are skipped.
func GetForeignKeys(ctx context.Context, q Querier, schema, table string) ([]ForeignKey, error) {
	query := `
		SELECT
			att.attname AS column_name,
			clf.relname AS foreign_table
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class cl ON con.conrelid = cl.oid
		JOIN pg_catalog.pg_namespace ns ON cl.relnamespace = ns.oid
		JOIN pg_catalog.pg_class clf ON con.confrelid = clf.oid
		JOIN pg_catalog.pg_namespace nf ON clf.relnamespace = nf.oid
		JOIN pg_catalog.pg_attribute att ON att.attrelid = con.conrelid
			AND att.attnum = con.conkey[1]
		WHERE con.contype = 'f'
			AND array_length(con.conkey, 1) = 1
			AND ns.nspname = $1 AND cl.relname = $2 AND nf.nspname = $1
		ORDER BY con.conname
	`

	rows, err := q.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}

	keys := make([]ForeignKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, ForeignKey{
			Column:       toString(row["column_name"]),
			ForeignTable: toString(row["foreign_table"]),
		})
	}

	return keys, nil
}

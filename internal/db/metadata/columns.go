package metadata

import (
	"context"
	"fmt"
)

// Column is one column as reported by information_schema
type Column struct {
	Name       string
	DataType   string
	IsNullable bool
}

// GetTableColumns retrieves column metadata for a table
func GetTableColumns(ctx context.Context, q Querier, schema, table string) ([]Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := q.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	columns := make([]Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, Column{
			Name:       toString(row["column_name"]),
			DataType:   toString(row["data_type"]),
			IsNullable: toString(row["is_nullable"]) == "YES",
		})
	}

	return columns, nil
}

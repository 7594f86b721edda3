package catalog

import (
	"context"
)

func storageOps() []Operation {
	return []Operation{
		{
			Name:        "database_size",
			Category:    "storage",
			Description: "Total on-disk size of the current database.",
			Risk:        RiskRead,
			Input:       nil,
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				var size string
				err := q.QueryRow(ctx, "SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&size)
				if err != nil {
					return nil, err
				}
				return ScalarResult(size), nil
			},
		},
		{
			Name:        "table_sizes",
			Category:    "storage",
			Description: "Per-table storage usage, largest first.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "limit", Type: TypeInteger, Required: false, Default: 20, Description: "How many tables to report."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				rows, err := q.Query(ctx, `SELECT schemaname, tablename,
						pg_size_pretty(pg_total_relation_size(format('%I.%I', schemaname, tablename))) AS total_size
					FROM pg_catalog.pg_tables
					WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
					ORDER BY pg_total_relation_size(format('%I.%I', schemaname, tablename)) DESC
					LIMIT $1`, args["limit"])
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "list_extensions",
			Category:    "storage",
			Description: "List installed PostgreSQL extensions.",
			Risk:        RiskRead,
			Input:       nil,
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				rows, err := q.Query(ctx, "SELECT extname, extversion FROM pg_catalog.pg_extension ORDER BY extname")
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
	}
}

package catalog

import (
	"context"
	"fmt"
	"strings"
)

func indexOps() []Operation {
	return []Operation{
		{
			Name:        "list_indexes",
			Category:    "index",
			Description: "List indexes, optionally restricted to one table.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: false, Pattern: Identifier, Description: "Only show indexes of this table."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				query := `SELECT schemaname, tablename, indexname, indexdef
					FROM pg_catalog.pg_indexes
					WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`
				var params []any
				if table, ok := args["table"].(string); ok && table != "" {
					_, bare := splitQualified(table)
					query += " AND tablename = $1"
					params = append(params, bare)
				}
				rows, err := q.Query(ctx, query+" ORDER BY schemaname, tablename, indexname", params...)
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "create_index",
			Category:    "index",
			Description: "Create an index on one or more columns of a table.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "name", Type: TypeString, Required: true, Pattern: Identifier, Description: "Name of the new index."},
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table to index."},
				{Name: "columns", Type: TypeStringArray, Required: true, Pattern: Identifier, Description: "Columns to index, in order."},
				{Name: "unique", Type: TypeBoolean, Required: false, Default: false, Description: "Create a UNIQUE index."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				cols := args["columns"].([]string)
				if len(cols) == 0 {
					return nil, fmt.Errorf("at least one column is required")
				}
				kind := "INDEX"
				if args["unique"] == true {
					kind = "UNIQUE INDEX"
				}
				stmt := fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, args["name"], args["table"], strings.Join(cols, ", "))
				tag, err := q.Exec(ctx, stmt)
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "drop_index",
			Category:    "index",
			Description: "Drop an index.",
			Risk:        RiskDestructive,
			Input: []Field{
				{Name: "name", Type: TypeString, Required: true, Pattern: Identifier, Description: "Index to drop."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				tag, err := q.Exec(ctx, fmt.Sprintf("DROP INDEX %s", args["name"]))
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
	}
}

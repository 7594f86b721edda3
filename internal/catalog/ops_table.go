package catalog

import (
	"context"
	"fmt"
	"strings"
)

func tableOps() []Operation {
	return []Operation{
		{
			Name:        "list_tables",
			Category:    "table",
			Description: "List user tables with their schema and owner.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "schema", Type: TypeString, Required: false, Pattern: Identifier, Description: "Restrict to one schema."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				query := `SELECT schemaname, tablename, tableowner
					FROM pg_catalog.pg_tables
					WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`
				var params []any
				if schema, ok := args["schema"].(string); ok && schema != "" {
					query += " AND schemaname = $1"
					params = append(params, schema)
				}
				rows, err := q.Query(ctx, query+" ORDER BY schemaname, tablename", params...)
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "describe_table",
			Category:    "table",
			Description: "Show the columns of one table: name, type, nullability, default.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table name, optionally schema-qualified."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				schema, table := splitQualified(args["table"].(string))
				rows, err := q.Query(ctx, `SELECT column_name, data_type, is_nullable, column_default
					FROM information_schema.columns
					WHERE table_schema = $1 AND table_name = $2
					ORDER BY ordinal_position`, schema, table)
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "create_table",
			Category:    "table",
			Description: "Create a table from a list of column definitions.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Name of the new table."},
				{Name: "columns", Type: TypeStringArray, Required: true, Pattern: SafeExpr, Description: "Column definitions, e.g. [\"id serial primary key\", \"name text not null\"]."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				cols := args["columns"].([]string)
				if len(cols) == 0 {
					return nil, fmt.Errorf("at least one column definition is required")
				}
				stmt := fmt.Sprintf("CREATE TABLE %s (%s)", args["table"], strings.Join(cols, ", "))
				tag, err := q.Exec(ctx, stmt)
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "alter_table",
			Category:    "table",
			Description: "Apply one ALTER TABLE action to a table.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table to alter."},
				{Name: "action", Type: TypeString, Required: true, Pattern: SafeExpr, Description: "The ALTER action, e.g. \"ADD COLUMN age integer\" or \"RENAME COLUMN a TO b\"."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				tag, err := q.Exec(ctx, fmt.Sprintf("ALTER TABLE %s %s", args["table"], args["action"]))
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "drop_table",
			Category:    "table",
			Description: "Drop a table and everything stored in it.",
			Risk:        RiskDestructive,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table to drop."},
				{Name: "cascade", Type: TypeBoolean, Required: false, Default: false, Description: "Also drop dependent objects."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				stmt := fmt.Sprintf("DROP TABLE %s", args["table"])
				if args["cascade"] == true {
					stmt += " CASCADE"
				}
				tag, err := q.Exec(ctx, stmt)
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
	}
}

// splitQualified splits "schema.table" into its parts, defaulting the
// schema to public.
func splitQualified(name string) (schema, table string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "public", name
}

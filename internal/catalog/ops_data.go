package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

func dataOps() []Operation {
	return []Operation{
		{
			Name:        "insert_row",
			Category:    "data",
			Description: "Insert one row. Values are bound as parameters, never spliced into SQL.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Target table."},
				{Name: "values", Type: TypeObject, Required: true, Description: "Column → value map for the new row."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				values := args["values"].(map[string]any)
				cols, params, err := bindColumns(values)
				if err != nil {
					return nil, err
				}
				placeholders := make([]string, len(cols))
				for i := range cols {
					placeholders[i] = fmt.Sprintf("$%d", i+1)
				}
				stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
					args["table"], strings.Join(cols, ", "), strings.Join(placeholders, ", "))
				tag, err := q.Exec(ctx, stmt, params...)
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "update_rows",
			Category:    "data",
			Description: "Update rows matching a WHERE clause. The clause is mandatory — there is no implicit full-table update.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Target table."},
				{Name: "set", Type: TypeObject, Required: true, Description: "Column → new value map."},
				{Name: "where", Type: TypeString, Required: true, Pattern: SafeExpr, Description: "Row filter, e.g. \"id = 42\"."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				values := args["set"].(map[string]any)
				cols, params, err := bindColumns(values)
				if err != nil {
					return nil, err
				}
				assignments := make([]string, len(cols))
				for i, col := range cols {
					assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
				}
				stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
					args["table"], strings.Join(assignments, ", "), args["where"])
				tag, err := q.Exec(ctx, stmt, params...)
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "delete_rows",
			Category:    "data",
			Description: "Delete rows matching a WHERE clause.",
			Risk:        RiskDestructive,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Target table."},
				{Name: "where", Type: TypeString, Required: true, Pattern: SafeExpr, Description: "Row filter. Use \"true\" to delete every row."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", args["table"], args["where"])
				tag, err := q.Exec(ctx, stmt)
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
	}
}

// bindColumns splits a column → value map into a deterministic column
// list and matching parameter slice. Column names are spliced into SQL,
// so each must be identifier-shaped; values always go through binding.
func bindColumns(values map[string]any) (cols []string, params []any, err error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("at least one column is required")
	}
	for col := range values {
		if !Identifier.MatchString(col) {
			return nil, nil, fmt.Errorf("invalid column name %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		params = append(params, values[col])
	}
	return cols, params, nil
}

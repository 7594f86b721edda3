package catalog

import (
	"context"
	"fmt"
)

var policyCommands = []string{"ALL", "SELECT", "INSERT", "UPDATE", "DELETE"}

func policyOps() []Operation {
	return []Operation{
		{
			Name:        "list_policies",
			Category:    "policy",
			Description: "List row-level security policies, optionally for one table.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: false, Pattern: Identifier, Description: "Only show policies of this table."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				query := `SELECT schemaname, tablename, policyname, cmd, qual, with_check
					FROM pg_catalog.pg_policies`
				var params []any
				if table, ok := args["table"].(string); ok && table != "" {
					_, bare := splitQualified(table)
					query += " WHERE tablename = $1"
					params = append(params, bare)
				}
				rows, err := q.Query(ctx, query+" ORDER BY schemaname, tablename, policyname", params...)
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "create_policy",
			Category:    "policy",
			Description: "Create a row-level security policy on a table.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "name", Type: TypeString, Required: true, Pattern: Identifier, Description: "Name of the new policy."},
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table the policy guards."},
				{Name: "command", Type: TypeString, Required: false, Enum: policyCommands, Default: "ALL", Description: "Statement kind the policy applies to."},
				{Name: "using", Type: TypeString, Required: true, Pattern: SafeExpr, Description: "Row visibility expression, e.g. \"owner = current_user\"."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				tag, err := q.Exec(ctx, fmt.Sprintf("CREATE POLICY %s ON %s FOR %s USING (%s)",
					args["name"], args["table"], args["command"], args["using"]))
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "drop_policy",
			Category:    "policy",
			Description: "Drop a row-level security policy.",
			Risk:        RiskDestructive,
			Input: []Field{
				{Name: "name", Type: TypeString, Required: true, Pattern: Identifier, Description: "Policy to drop."},
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table the policy is attached to."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				tag, err := q.Exec(ctx, fmt.Sprintf("DROP POLICY %s ON %s", args["name"], args["table"]))
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "enable_rls",
			Category:    "policy",
			Description: "Enable row-level security on a table.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table to protect."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				tag, err := q.Exec(ctx, fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", args["table"]))
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
	}
}

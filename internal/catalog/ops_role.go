package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// rolePassword excludes quotes so the literal can be spliced into
// CREATE ROLE (passwords cannot be bound as parameters in DDL).
var rolePassword = regexp.MustCompile(`^[^'\\]+$`)

var privileges = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "TRUNCATE", "REFERENCES", "TRIGGER", "ALL"}

func roleOps() []Operation {
	return []Operation{
		{
			Name:        "list_roles",
			Category:    "role",
			Description: "List database roles and their attributes.",
			Risk:        RiskRead,
			Input:       nil,
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				rows, err := q.Query(ctx, `SELECT rolname, rolsuper, rolcreatedb, rolcreaterole, rolcanlogin
					FROM pg_catalog.pg_roles
					WHERE rolname NOT LIKE 'pg\_%'
					ORDER BY rolname`)
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "create_role",
			Category:    "role",
			Description: "Create a role, optionally with login and a password.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "name", Type: TypeString, Required: true, Pattern: Identifier, Description: "Name of the new role."},
				{Name: "login", Type: TypeBoolean, Required: false, Default: false, Description: "Allow the role to log in."},
				{Name: "password", Type: TypeString, Required: false, Pattern: rolePassword, Description: "Password for login roles."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				var sb strings.Builder
				fmt.Fprintf(&sb, "CREATE ROLE %s", args["name"])
				if args["login"] == true {
					sb.WriteString(" LOGIN")
				}
				if pw, ok := args["password"].(string); ok && pw != "" {
					fmt.Fprintf(&sb, " PASSWORD '%s'", pw)
				}
				tag, err := q.Exec(ctx, sb.String())
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "grant_privilege",
			Category:    "role",
			Description: "Grant a table privilege to a role.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "privilege", Type: TypeString, Required: true, Enum: privileges, Description: "Privilege to grant."},
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table the privilege applies to."},
				{Name: "role", Type: TypeString, Required: true, Pattern: Identifier, Description: "Role receiving the privilege."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				tag, err := q.Exec(ctx, fmt.Sprintf("GRANT %s ON %s TO %s",
					args["privilege"], args["table"], args["role"]))
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
		{
			Name:        "revoke_privilege",
			Category:    "role",
			Description: "Revoke a table privilege from a role.",
			Risk:        RiskWrite,
			Input: []Field{
				{Name: "privilege", Type: TypeString, Required: true, Enum: privileges, Description: "Privilege to revoke."},
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table the privilege applies to."},
				{Name: "role", Type: TypeString, Required: true, Pattern: Identifier, Description: "Role losing the privilege."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				tag, err := q.Exec(ctx, fmt.Sprintf("REVOKE %s ON %s FROM %s",
					args["privilege"], args["table"], args["role"]))
				if err != nil {
					return nil, err
				}
				return CommandResult(tag), nil
			},
		},
	}
}

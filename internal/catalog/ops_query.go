package catalog

import (
	"context"
	"fmt"
	"strings"
)

// queryOps defines the essential query category: read-only access that
// is always available without a load step.
func queryOps() []Operation {
	return []Operation{
		{
			Name:        "run_query",
			Category:    "query",
			Description: "Execute a read-only SQL query (SELECT or WITH) and return the rows.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "query", Type: TypeString, Required: true, Description: "The SQL text. Only SELECT and WITH statements are accepted."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				query := args["query"].(string)
				if err := ensureReadOnly(query); err != nil {
					return nil, err
				}
				rows, err := q.Query(ctx, query)
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "explain_query",
			Category:    "query",
			Description: "Show the execution plan for a read-only SQL query.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "query", Type: TypeString, Required: true, Description: "The SQL text to explain."},
				{Name: "analyze", Type: TypeBoolean, Required: false, Default: false, Description: "Actually run the query and report timings (EXPLAIN ANALYZE)."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				query := args["query"].(string)
				if err := ensureReadOnly(query); err != nil {
					return nil, err
				}
				stmt := "EXPLAIN "
				if args["analyze"] == true {
					stmt = "EXPLAIN (ANALYZE, BUFFERS) "
				}
				rows, err := q.Query(ctx, stmt+query)
				if err != nil {
					return nil, err
				}
				return RowsResult(rows)
			},
		},
		{
			Name:        "count_rows",
			Category:    "query",
			Description: "Count the rows of one table.",
			Risk:        RiskRead,
			Input: []Field{
				{Name: "table", Type: TypeString, Required: true, Pattern: Identifier, Description: "Table name, optionally schema-qualified."},
			},
			Execute: func(ctx context.Context, q Querier, args map[string]any) (*Result, error) {
				var count int64
				err := q.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", args["table"])).Scan(&count)
				if err != nil {
					return nil, err
				}
				return ScalarResult(count), nil
			},
		},
	}
}

// ensureReadOnly rejects anything that is not a plain SELECT or WITH
// statement. This is a coarse gate, not a SQL parser: parameter values
// never pass through here, only statements typed by the client.
func ensureReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT and WITH statements are allowed here")
	}
	if i := strings.Index(trimmed, ";"); i >= 0 && strings.TrimRight(trimmed[i:], "; \t\r\n") != "" {
		return fmt.Errorf("multiple statements are not allowed")
	}
	return nil
}

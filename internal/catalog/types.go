// Package catalog defines the static operation catalogue: every database
// operation pgmcp exposes, grouped into named categories.
//
// The catalogue is built once at startup from declared literals and is
// read-only afterwards. There is no runtime addition or removal of
// operations — that absence is deliberate, it keeps registration-state
// reasoning in the registry trivial.
package catalog

import (
	"context"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of a database connection an operation body needs.
// *pgxpool.Conn satisfies it; tests supply fakes.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Risk classifies how dangerous an operation is. Destructive operations
// additionally require a confirm flag at invocation time.
type Risk string

const (
	RiskRead        Risk = "read"
	RiskWrite       Risk = "write"
	RiskDestructive Risk = "destructive"
)

// FieldType is the wire type of a tool argument.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	// TypeStringArray is a JSON array of strings.
	TypeStringArray FieldType = "array"
	// TypeObject is a JSON object with string keys (e.g. column → value).
	TypeObject FieldType = "object"
)

// Field declares one accepted argument of an operation. Validation is
// data-driven: the dispatcher evaluates these constraints with a single
// generic routine, there is no per-operation parsing code.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string

	// Enum restricts a string field to a fixed set of values.
	Enum []string
	// Pattern restricts a string field (and each element of an array
	// field) to a shape, e.g. Identifier for table and column names.
	Pattern *regexp.Regexp
	// Default is substituted when an optional field is absent.
	Default any
}

// Identifier matches a safe SQL identifier, optionally schema-qualified.
// Everything spliced into SQL text (rather than bound as a parameter)
// must match this.
var Identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// SafeExpr matches column definitions, WHERE clauses and policy
// expressions: permissive enough for real DDL, but rejects statement
// separators and comment markers.
var SafeExpr = regexp.MustCompile(`^[^;]+$`)

// Operation is one invocable database action. Immutable after catalogue
// construction.
type Operation struct {
	Name        string
	Category    string
	Description string
	Risk        Risk
	Input       []Field

	// Execute runs the operation against a borrowed connection with
	// already-validated arguments. It must not retain q past the call.
	Execute func(ctx context.Context, q Querier, args map[string]any) (*Result, error)
}

// Category is a named partition of the operation set and the unit of
// lazy loading. Essential categories are registered at startup and need
// no explicit load step.
type Category struct {
	Name        string
	Description string
	Essential   bool
}

// ResultKind discriminates the payload shape of a Result.
type ResultKind string

const (
	KindRows    ResultKind = "rows"
	KindScalar  ResultKind = "scalar"
	KindCommand ResultKind = "command"
)

// Result is the raw, unshaped outcome of one operation. The response
// shaper turns it into a bounded envelope; nothing here is truncated.
type Result struct {
	Kind ResultKind

	// Rows payload.
	Columns []string
	Rows    [][]any

	// Scalar payload.
	Scalar any

	// Command payload.
	Command      string
	RowsAffected int64
}

// RowsResult drains rows into a Result. It always closes rows.
func RowsResult(rows pgx.Rows) (*Result, error) {
	defer rows.Close()

	res := &Result{Kind: KindRows}
	for _, fd := range rows.FieldDescriptions() {
		res.Columns = append(res.Columns, string(fd.Name))
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// ScalarResult wraps a single value.
func ScalarResult(v any) *Result {
	return &Result{Kind: KindScalar, Scalar: v}
}

// CommandResult wraps a command tag from Exec.
func CommandResult(tag pgconn.CommandTag) *Result {
	return &Result{
		Kind:         KindCommand,
		Command:      tag.String(),
		RowsAffected: tag.RowsAffected(),
	}
}

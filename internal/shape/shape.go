// Package shape turns raw execution results into bounded response
// envelopes: row-count capping, field-size truncation and structural
// conversion. It is format-agnostic — rendering an envelope as JSON,
// markdown or a table happens outside this package.
package shape

import (
	"fmt"
	"regexp"

	"github.com/pgmcp/pgmcp/internal/catalog"
)

// Limits bounds the size of a shaped payload. Zero values fall back to
// the defaults, so an empty Limits is usable.
type Limits struct {
	// MaxRows caps how many rows a tabular payload carries.
	MaxRows int
	// MaxFieldChars caps the rendered length of one field value.
	MaxFieldChars int
}

const (
	DefaultMaxRows       = 100
	DefaultMaxFieldChars = 4096
)

func (l Limits) maxRows() int {
	if l.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return l.MaxRows
}

func (l Limits) maxFieldChars() int {
	if l.MaxFieldChars <= 0 {
		return DefaultMaxFieldChars
	}
	return l.MaxFieldChars
}

// Envelope is the outward-facing result of one invocation. Created
// fresh per invocation and never mutated after it is handed out.
type Envelope struct {
	Status       string `json:"status"`
	Payload      any    `json:"payload,omitempty"`
	Truncated    bool   `json:"truncated"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// TablePayload is a shaped row-set. TotalRows is the pre-cap count so
// clients can tell how much was cut.
type TablePayload struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	TotalRows int      `json:"total_rows"`
}

// ScalarPayload wraps a single value.
type ScalarPayload struct {
	Value any `json:"value"`
}

// CommandPayload reports a statement that returned no rows.
type CommandPayload struct {
	Command      string `json:"command"`
	RowsAffected int64  `json:"rows_affected"`
}

// Shape converts a raw result into a bounded ok-envelope. Row capping
// and field truncation are independent; both may apply to one result.
func Shape(res *catalog.Result, limits Limits) Envelope {
	env := Envelope{Status: StatusOK}

	switch res.Kind {
	case catalog.KindRows:
		payload := TablePayload{
			Columns:   res.Columns,
			Rows:      res.Rows,
			TotalRows: len(res.Rows),
		}
		if max := limits.maxRows(); len(payload.Rows) > max {
			payload.Rows = payload.Rows[:max]
			env.Truncated = true
		}
		shaped := make([][]any, len(payload.Rows))
		for i, row := range payload.Rows {
			out := make([]any, len(row))
			for j, v := range row {
				tv, cut := truncateValue(v, limits.maxFieldChars())
				out[j] = tv
				if cut {
					env.Truncated = true
				}
			}
			shaped[i] = out
		}
		payload.Rows = shaped
		env.Payload = payload

	case catalog.KindScalar:
		v, cut := truncateValue(res.Scalar, limits.maxFieldChars())
		env.Payload = ScalarPayload{Value: v}
		env.Truncated = cut

	case catalog.KindCommand:
		env.Payload = CommandPayload{Command: res.Command, RowsAffected: res.RowsAffected}
	}

	return env
}

// ShapeError builds an error envelope. The message is sanitized:
// database error text can quote connection strings or credentials and
// must never reach a client verbatim.
func ShapeError(kind, message string) Envelope {
	return Envelope{
		Status:       StatusError,
		ErrorKind:    kind,
		ErrorMessage: Sanitize(message),
	}
}

// truncateValue shortens oversized string-ish values, appending a size
// marker. Non-string values (numbers, bools, time) pass through; byte
// slices are summarized rather than dumped.
func truncateValue(v any, maxChars int) (any, bool) {
	switch s := v.(type) {
	case string:
		if len(s) <= maxChars {
			return s, false
		}
		return fmt.Sprintf("%s… (%d bytes truncated)", s[:maxChars], len(s)-maxChars), true
	case []byte:
		if len(s) <= maxChars {
			return fmt.Sprintf("\\x%x", s), false
		}
		return fmt.Sprintf("<binary, %d bytes>", len(s)), true
	default:
		return v, false
	}
}

var (
	connStringRe = regexp.MustCompile(`(postgres(?:ql)?://)[^\s"']+`)
	keywordRe    = regexp.MustCompile(`(?i)(password|passfile|sslkey)=\S+`)
)

// Sanitize redacts connection strings and credential keywords from
// error text.
func Sanitize(msg string) string {
	msg = connStringRe.ReplaceAllString(msg, "${1}[redacted]")
	msg = keywordRe.ReplaceAllString(msg, "${1}=[redacted]")
	return msg
}

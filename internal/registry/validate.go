package registry

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/pgmcp/pgmcp/internal/catalog"
)

// validateArgs checks raw arguments against an operation's declared
// fields and returns a normalized copy: defaults applied, JSON numbers
// coerced, array elements type-checked. One generic routine serves all
// operations; there is no per-operation parsing code.
//
// The confirm flag of destructive operations is accepted here but
// enforced by the dispatcher, so a missing flag surfaces as
// confirmation_required rather than invalid_arguments.
func validateArgs(op *catalog.Operation, raw map[string]any) (map[string]any, []string) {
	var violations []string
	normalized := make(map[string]any, len(op.Input))

	known := make(map[string]*catalog.Field, len(op.Input))
	for i := range op.Input {
		known[op.Input[i].Name] = &op.Input[i]
	}

	for name := range raw {
		if name == "confirm" && op.Risk == catalog.RiskDestructive {
			continue
		}
		if _, ok := known[name]; !ok {
			violations = append(violations, fmt.Sprintf("%s: unexpected argument", name))
		}
	}

	for _, f := range op.Input {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Required {
				violations = append(violations, fmt.Sprintf("%s: required", f.Name))
			} else if f.Default != nil {
				normalized[f.Name] = f.Default
			}
			continue
		}

		value, err := normalizeField(&f, v)
		if err != nil {
			violations = append(violations, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		normalized[f.Name] = value
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return normalized, nil
}

func normalizeField(f *catalog.Field, v any) (any, error) {
	switch f.Type {
	case catalog.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return checkString(f, s)

	case catalog.TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return b, nil

	case catalog.TypeInteger:
		return coerceInt(v)

	case catalog.TypeStringArray:
		items, ok := v.([]any)
		if !ok {
			if ss, ok := v.([]string); ok {
				items = make([]any, len(ss))
				for i, s := range ss {
					items[i] = s
				}
			} else {
				return nil, fmt.Errorf("must be an array of strings")
			}
		}
		out := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d must be a string", i)
			}
			if _, err := checkString(f, s); err != nil {
				return nil, fmt.Errorf("element %d %v", i, err)
			}
			out = append(out, s)
		}
		return out, nil

	case catalog.TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("must be an object")
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported field type %q", f.Type)
	}
}

// checkString applies the declarative string constraints.
func checkString(f *catalog.Field, s string) (string, error) {
	if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
		return "", fmt.Errorf("must be one of %v", f.Enum)
	}
	if f.Pattern != nil && !f.Pattern.MatchString(s) {
		return "", fmt.Errorf("has an invalid shape")
	}
	return s, nil
}

// coerceInt accepts the integer spellings JSON decoding produces.
func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("must be an integer")
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer")
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("must be an integer")
	}
}

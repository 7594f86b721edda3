package catalog

import (
	"encoding/json"
	"fmt"
)

// Catalog is the immutable set of categories and operations. Lookups
// need no synchronization; nothing mutates after New returns.
type Catalog struct {
	categories []Category
	byCategory map[string][]*Operation
	byName     map[string]*Operation
}

// New builds a catalogue from declared categories and operations.
// It fails if an operation name repeats, if an operation references a
// category that was not declared, or if a category has no operations.
// A failure here is fatal at startup — the server never comes up with a
// partial catalogue.
func New(categories []Category, operations []Operation) (*Catalog, error) {
	c := &Catalog{
		categories: categories,
		byCategory: make(map[string][]*Operation, len(categories)),
		byName:     make(map[string]*Operation, len(operations)),
	}

	declared := make(map[string]bool, len(categories))
	for _, cat := range categories {
		if declared[cat.Name] {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		declared[cat.Name] = true
	}

	for i := range operations {
		op := &operations[i]
		if op.Execute == nil {
			return nil, fmt.Errorf("operation %q has no body", op.Name)
		}
		if _, dup := c.byName[op.Name]; dup {
			return nil, fmt.Errorf("duplicate operation %q", op.Name)
		}
		if !declared[op.Category] {
			return nil, fmt.Errorf("operation %q references unknown category %q", op.Name, op.Category)
		}
		c.byName[op.Name] = op
		c.byCategory[op.Category] = append(c.byCategory[op.Category], op)
	}

	for _, cat := range categories {
		if len(c.byCategory[cat.Name]) == 0 {
			return nil, fmt.Errorf("category %q has no operations", cat.Name)
		}
	}

	return c, nil
}

// AllCategories returns every category in declaration order.
func (c *Catalog) AllCategories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// OperationsOf returns the operations of one category in declaration
// order, or an error for an unknown category name.
func (c *Catalog) OperationsOf(category string) ([]*Operation, error) {
	ops, ok := c.byCategory[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	out := make([]*Operation, len(ops))
	copy(out, ops)
	return out, nil
}

// Operation resolves one operation by name.
func (c *Catalog) Operation(name string) (*Operation, error) {
	op, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", name)
	}
	return op, nil
}

// HasCategory reports whether the category exists.
func (c *Catalog) HasCategory(name string) bool {
	_, ok := c.byCategory[name]
	return ok
}

// InputSchemaJSON renders an operation's field declarations as a JSON
// schema for MCP tool registration. Destructive operations get an
// implicit confirm flag in the schema so clients see the requirement.
func (op *Operation) InputSchemaJSON() json.RawMessage {
	props := make(map[string]any, len(op.Input)+1)
	var required []string

	for _, f := range op.Input {
		prop := map[string]any{
			"type":        jsonType(f.Type),
			"description": f.Description,
		}
		switch f.Type {
		case TypeStringArray:
			prop["items"] = map[string]any{"type": "string"}
		case TypeObject:
			prop["additionalProperties"] = true
		}
		if len(f.Enum) > 0 {
			prop["enum"] = f.Enum
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}

	if op.Risk == RiskDestructive {
		props["confirm"] = map[string]any{
			"type":        "boolean",
			"description": "Must be true; this operation is destructive and will not run without explicit confirmation.",
		}
		required = append(required, "confirm")
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, _ := json.Marshal(schema)
	return data
}

func jsonType(t FieldType) string {
	switch t {
	case TypeStringArray:
		return "array"
	case TypeObject:
		return "object"
	default:
		return string(t)
	}
}

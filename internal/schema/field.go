package schema

import (
	"slices"
	"strings"
)

// Lookup is a named alias for a literal value, e.g. "Enabled" -> true.
type Lookup struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Field is a declared, typed, filterable attribute.
//
// Fields are immutable once built; accessors return copies.
type Field struct {
	name      string
	label     string
	typ       FieldType
	operators []Operator
	values    []Lookup
}

// FieldDeclaration describes a field before its operator set is derived.
type FieldDeclaration struct {
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"`
	Array    bool   `json:"array,omitempty" yaml:"array,omitempty"`
	Nullable bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Lookup   string `json:"lookup,omitempty" yaml:"lookup,omitempty"`
}

// NewField builds a field from a declaration and its resolved lookup table.
func NewField(decl FieldDeclaration, lookups []Lookup) (*Field, error) {
	name := strings.TrimSpace(decl.Name)
	if name == "" {
		return nil, &SchemaError{Field: "name", Message: "field name is required"}
	}
	label := strings.TrimSpace(decl.Label)
	if label == "" {
		return nil, &SchemaError{Field: name + ".label", Message: "field label is required"}
	}
	if strings.TrimSpace(decl.Type) == "" {
		return nil, &SchemaError{Field: name + ".type", Message: "field type is required"}
	}
	typ, ok := ParseFieldType(decl.Type)
	if !ok {
		return nil, &SchemaError{Field: name + ".type", Message: "unknown field type " + decl.Type}
	}
	if decl.Array {
		typ = typ.ArrayOf()
	}

	return &Field{
		name:      name,
		label:     label,
		typ:       typ,
		operators: deriveOperators(typ, decl.Nullable, len(lookups) > 0),
		values:    slices.Clone(lookups),
	}, nil
}

// deriveOperators computes the allowed operator set from the field shape.
func deriveOperators(typ FieldType, nullable, hasLookup bool) []Operator {
	var ops []Operator
	if typ.IsArray() {
		ops = append(ops, OpContain, OpNotContain)
	} else {
		ops = append(ops, OpEqual, OpNotEqual, OpIn, OpNotIn)
		if !hasLookup {
			switch {
			case typ.IsOrdered():
				ops = append(ops, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual)
			case typ == TypeString:
				ops = append(ops, OpContain, OpNotContain, OpStartWith, OpNotStartWith, OpEndWith, OpNotEndWith)
			}
		}
	}
	if typ.IsArray() || nullable {
		ops = append(ops, OpBlank, OpNotBlank)
	}
	slices.Sort(ops)
	return ops
}

func (f *Field) Name() string    { return f.name }
func (f *Field) Label() string   { return f.label }
func (f *Field) Type() FieldType { return f.typ }

// Operators returns the allowed operators in declaration order.
func (f *Field) Operators() []Operator {
	return slices.Clone(f.operators)
}

// Allows reports whether op is in the field's operator set.
func (f *Field) Allows(op Operator) bool {
	return slices.Contains(f.operators, op)
}

// Lookups returns the field's lookup table, if any.
func (f *Field) Lookups() []Lookup {
	return slices.Clone(f.values)
}

// Resolve maps a symbolic lookup name to its value. Matching is
// case-insensitive; ok is false when no lookup matches.
func (f *Field) Resolve(name string) (any, bool) {
	key := Fold(name)
	for _, lk := range f.values {
		if Fold(lk.Name) == key {
			return lk.Value, true
		}
	}
	return nil, false
}

// Matches reports whether s names this field by name or label.
func (f *Field) Matches(s string) bool {
	key := Fold(s)
	return key == Fold(f.name) || key == Fold(f.label)
}

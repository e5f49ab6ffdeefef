package schema

import (
	"fmt"
	"strings"
)

// FieldType identifies the declared type of a field.
//
// Each scalar type has an array variant. Types compare by name.
type FieldType string

const (
	TypeUnknown  FieldType = "unknown"
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeTime     FieldType = "time"
	TypeDateTime FieldType = "datetime"

	TypeStringArray   FieldType = "string-array"
	TypeNumberArray   FieldType = "number-array"
	TypeBooleanArray  FieldType = "boolean-array"
	TypeDateArray     FieldType = "date-array"
	TypeTimeArray     FieldType = "time-array"
	TypeDateTimeArray FieldType = "datetime-array"
)

const arraySuffix = "-array"

var scalarTypes = []FieldType{TypeString, TypeNumber, TypeBoolean, TypeDate, TypeTime, TypeDateTime}

// ParseFieldType resolves a type name such as "number" or "string-array".
// The "[]string" spelling is accepted as an alias for array types.
func ParseFieldType(name string) (FieldType, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	array := false
	if rest, ok := strings.CutPrefix(n, "[]"); ok {
		n, array = rest, true
	}
	if rest, ok := strings.CutSuffix(n, arraySuffix); ok {
		n, array = rest, true
	}
	for _, t := range scalarTypes {
		if string(t) == n {
			if array {
				return t.ArrayOf(), true
			}
			return t, true
		}
	}
	return TypeUnknown, false
}

// IsArray reports whether t is an array variant.
func (t FieldType) IsArray() bool {
	return strings.HasSuffix(string(t), arraySuffix)
}

// Elem returns the scalar type of an array type, or t itself.
func (t FieldType) Elem() FieldType {
	if t.IsArray() {
		return FieldType(strings.TrimSuffix(string(t), arraySuffix))
	}
	return t
}

// ArrayOf returns the array variant of a scalar type.
func (t FieldType) ArrayOf() FieldType {
	if t.IsArray() || t == TypeUnknown || t == "" {
		return t
	}
	return FieldType(string(t) + arraySuffix)
}

// IsKnown reports whether t is one of the declared scalar or array types.
func (t FieldType) IsKnown() bool {
	for _, s := range scalarTypes {
		if t.Elem() == s {
			return true
		}
	}
	return false
}

// IsOrdered reports whether values of t support the comparison operators.
func (t FieldType) IsOrdered() bool {
	switch t.Elem() {
	case TypeNumber, TypeDate, TypeTime, TypeDateTime:
		return true
	}
	return false
}

// Operator is one of the sixteen comparison operators.
type Operator int

const (
	OpEqual Operator = iota + 1
	OpNotEqual
	OpContain
	OpNotContain
	OpStartWith
	OpNotStartWith
	OpEndWith
	OpNotEndWith
	OpBlank
	OpNotBlank
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpNotIn
)

type operatorInfo struct {
	name  string
	label string
}

var operatorTable = map[Operator]operatorInfo{
	OpEqual:              {"equal", "Equal"},
	OpNotEqual:           {"not-equal", "Not Equal"},
	OpContain:            {"contain", "Contain"},
	OpNotContain:         {"not-contain", "Not Contain"},
	OpStartWith:          {"start-with", "Start With"},
	OpNotStartWith:       {"not-start-with", "Not Start With"},
	OpEndWith:            {"end-with", "End With"},
	OpNotEndWith:         {"not-end-with", "Not End With"},
	OpBlank:              {"blank", "Blank"},
	OpNotBlank:           {"not-blank", "Not Blank"},
	OpGreaterThan:        {"greater-than", "Greater Than"},
	OpGreaterThanOrEqual: {"greater-than-or-equal", "Greater Than Or Equal"},
	OpLessThan:           {"less-than", "Less Than"},
	OpLessThanOrEqual:    {"less-than-or-equal", "Less Than Or Equal"},
	OpIn:                 {"in", "In"},
	OpNotIn:              {"not-in", "Not In"},
}

// Operators lists every operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorTable))
	for op := OpEqual; op <= OpNotIn; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Name returns the canonical name, e.g. "not-equal".
func (o Operator) Name() string {
	if info, ok := operatorTable[o]; ok {
		return info.name
	}
	return fmt.Sprintf("operator(%d)", int(o))
}

// Label returns the human label, e.g. "Not Equal".
func (o Operator) Label() string {
	if info, ok := operatorTable[o]; ok {
		return info.label
	}
	return o.Name()
}

func (o Operator) String() string { return o.Name() }

// Valid reports whether o is a declared operator.
func (o Operator) Valid() bool {
	_, ok := operatorTable[o]
	return ok
}

// IsNoOperand reports whether o takes no value (blank, not-blank).
func (o Operator) IsNoOperand() bool {
	return o == OpBlank || o == OpNotBlank
}

// IsMultiValue reports whether o takes a list of values (in, not-in).
func (o Operator) IsMultiValue() bool {
	return o == OpIn || o == OpNotIn
}

// TakesValue reports whether o expects at least one value operand.
func (o Operator) TakesValue() bool {
	return o.Valid() && !o.IsNoOperand()
}

// MarshalText encodes the canonical name.
func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid operator %d", int(o))
	}
	return []byte(o.Name()), nil
}

// UnmarshalText accepts either the name or the label.
func (o *Operator) UnmarshalText(b []byte) error {
	op, ok := ParseOperator(string(b))
	if !ok {
		return fmt.Errorf("unknown operator %q", string(b))
	}
	*o = op
	return nil
}

var operatorSymbols = map[string]Operator{
	"=":  OpEqual,
	"==": OpEqual,
	"!=": OpNotEqual,
	"<>": OpNotEqual,
	">":  OpGreaterThan,
	">=": OpGreaterThanOrEqual,
	"<":  OpLessThan,
	"<=": OpLessThanOrEqual,
}

// ParseOperator matches s case-insensitively against operator names and
// labels. Hyphens and runs of spaces are interchangeable. The comparison
// symbols (=, !=, <>, >, >=, <, <=) are accepted too.
func ParseOperator(s string) (Operator, bool) {
	if op, ok := operatorSymbols[strings.TrimSpace(s)]; ok {
		return op, true
	}
	key := operatorKey(s)
	if key == "" {
		return 0, false
	}
	for op, info := range operatorTable {
		if operatorKey(info.name) == key || operatorKey(info.label) == key {
			return op, true
		}
	}
	return 0, false
}

func operatorKey(s string) string {
	return strings.Join(strings.FieldsFunc(Fold(s), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '\t'
	}), " ")
}

// Logic combines expressions.
type Logic int

const (
	LogicAnd Logic = iota + 1
	LogicOr
)

// Name returns "and" or "or".
func (l Logic) Name() string {
	switch l {
	case LogicAnd:
		return "and"
	case LogicOr:
		return "or"
	default:
		return fmt.Sprintf("logic(%d)", int(l))
	}
}

// Label returns "And" or "Or".
func (l Logic) Label() string {
	switch l {
	case LogicAnd:
		return "And"
	case LogicOr:
		return "Or"
	default:
		return l.Name()
	}
}

func (l Logic) String() string { return l.Name() }

// Valid reports whether l is and/or.
func (l Logic) Valid() bool {
	return l == LogicAnd || l == LogicOr
}

// MarshalText encodes the canonical name.
func (l Logic) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid logic %d", int(l))
	}
	return []byte(l.Name()), nil
}

// UnmarshalText accepts "and"/"or" in any case.
func (l *Logic) UnmarshalText(b []byte) error {
	v, ok := ParseLogic(string(b))
	if !ok {
		return fmt.Errorf("unknown logic %q", string(b))
	}
	*l = v
	return nil
}

// ParseLogic resolves "and", "or", "&&" and "||".
func ParseLogic(s string) (Logic, bool) {
	switch Fold(strings.TrimSpace(s)) {
	case "and", "&&":
		return LogicAnd, true
	case "or", "||":
		return LogicOr, true
	}
	return 0, false
}

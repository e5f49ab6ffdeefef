// Package token classifies fragments of a filter query into typed tokens.
//
// Classification has two stages. A Table matches raw lexemes against an
// ordered, schema-aware pattern list. A State, derived from the tokens
// accepted so far, decides whether a candidate is admissible at that point
// and casts values against the active field. Rejected candidates are kept
// in-band as tokens carrying a Rejection, so tokenizing never fails on a
// single bad fragment.
package token

import (
	"fmt"

	"github.com/roach88/filtex/internal/schema"
)

// Type is the lexical or semantic category of a token.
type Type int

const (
	TypeOpenBracket Type = iota + 1
	TypeCloseBracket
	TypeComma
	TypeSlash
	TypeSpace
	TypeAnd
	TypeOr

	// One type per operator, in schema.Operator order.
	TypeEqual
	TypeNotEqual
	TypeContain
	TypeNotContain
	TypeStartWith
	TypeNotStartWith
	TypeEndWith
	TypeNotEndWith
	TypeBlank
	TypeNotBlank
	TypeGreaterThan
	TypeGreaterThanOrEqual
	TypeLessThan
	TypeLessThanOrEqual
	TypeIn
	TypeNotIn

	TypeField
	TypeValue

	// Value kinds. A kind is only a shape hint; the active field's type
	// decides the cast.
	TypeString
	TypeNumber
	TypeBoolean
	TypeDate
	TypeTime
	TypeDateTime
	TypeLiteral
)

var typeNames = map[Type]string{
	TypeOpenBracket:  "open-bracket",
	TypeCloseBracket: "close-bracket",
	TypeComma:        "comma",
	TypeSlash:        "slash",
	TypeSpace:        "space",
	TypeAnd:          "and",
	TypeOr:           "or",
	TypeField:        "field",
	TypeValue:        "value",
	TypeString:       "string",
	TypeNumber:       "number",
	TypeBoolean:      "boolean",
	TypeDate:         "date",
	TypeTime:         "time",
	TypeDateTime:     "datetime",
	TypeLiteral:      "literal",
}

func (t Type) String() string {
	if op, ok := t.Operator(); ok {
		return op.Name()
	}
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// MarshalText encodes the type name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// OperatorType returns the token type for op.
func OperatorType(op schema.Operator) Type {
	return TypeEqual + Type(op-schema.OpEqual)
}

// Operator returns the operator a comparison token type stands for.
func (t Type) Operator() (schema.Operator, bool) {
	if t < TypeEqual || t > TypeNotIn {
		return 0, false
	}
	return schema.OpEqual + schema.Operator(t-TypeEqual), true
}

// LogicType returns the token type for l.
func LogicType(l schema.Logic) Type {
	if l == schema.LogicOr {
		return TypeOr
	}
	return TypeAnd
}

// Logic returns the logic a logic token type stands for.
func (t Type) Logic() (schema.Logic, bool) {
	switch t {
	case TypeAnd:
		return schema.LogicAnd, true
	case TypeOr:
		return schema.LogicOr, true
	}
	return 0, false
}

// IsValueKind reports whether t is one of the scalar value shapes.
func (t Type) IsValueKind() bool {
	return t >= TypeString && t <= TypeDateTime
}

// IsSeparator reports whether t separates the values of a multi-value clause.
func (t Type) IsSeparator() bool {
	return t == TypeComma || t == TypeSlash
}

// Reason explains why a candidate was rejected.
type Reason string

const (
	ReasonUnexpected         Reason = "unexpected"
	ReasonUnbalanced         Reason = "unbalanced"
	ReasonUnknownField       Reason = "unknown-field"
	ReasonOperatorNotAllowed Reason = "operator-not-allowed"
	ReasonInvalidValue       Reason = "invalid-value"
	ReasonUnmatched          Reason = "unmatched"
)

// Rejection marks a token that was classified but not admissible.
type Rejection struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Token is one classified fragment.
//
// Value holds the canonical payload: the field name for field tokens, the
// schema.Operator or schema.Logic for operator and logic tokens, the cast
// value for value tokens and the raw text otherwise.
type Token struct {
	Type   Type       `json:"type"`
	Value  any        `json:"value,omitempty"`
	Text   string     `json:"text"`
	Pos    int        `json:"pos"`
	Reject *Rejection `json:"reject,omitempty"`
}

// Rejected reports whether the token was refused by context.
func (t Token) Rejected() bool {
	return t.Reject != nil
}

// FieldName returns the canonical field name of a field token.
func (t Token) FieldName() string {
	s, _ := t.Value.(string)
	return s
}

func (t Token) String() string {
	if t.Rejected() {
		return fmt.Sprintf("%s %q rejected (%s)", t.Type, t.Text, t.Reject.Reason)
	}
	return fmt.Sprintf("%s %q", t.Type, t.Text)
}

// Reject returns t marked as refused for reason.
func Reject(t Token, reason Reason, format string, args ...any) Token {
	t.Reject = &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
	return t
}

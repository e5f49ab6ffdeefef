// Package ast defines the filter expression tree produced by the parsers
// and consumed by the backends.
//
// Expression is a sealed interface: only *OperatorExpression and
// *LogicExpression implement it, so backends can switch exhaustively:
//
//	switch e := expr.(type) {
//	case *ast.OperatorExpression:
//	    // field, operator, value
//	case *ast.LogicExpression:
//	    // and/or over children
//	}
//
// Values are canonical: float64 for numbers, bool, string, time.Time in UTC
// for dates and datetimes, time.Duration for times. Multi-value operators
// (in, not-in) always carry a []any; blank and not-blank carry nil.
package ast

import (
	"encoding/json"
	"time"

	"github.com/roach88/filtex/internal/cast"
	"github.com/roach88/filtex/internal/schema"
)

// Expression is a node of the filter tree.
type Expression interface {
	expressionNode() // seals the interface to this package
}

// OperatorExpression compares one field against a value.
type OperatorExpression struct {
	Type     schema.FieldType
	Field    string
	Operator schema.Operator
	Value    any
}

func (*OperatorExpression) expressionNode() {}

// LogicExpression combines child expressions with and/or. It always has at
// least one child.
type LogicExpression struct {
	Logic       schema.Logic
	Expressions []Expression
}

func (*LogicExpression) expressionNode() {}

// NewLogic returns a logic node over children.
func NewLogic(l schema.Logic, children ...Expression) *LogicExpression {
	return &LogicExpression{Logic: l, Expressions: children}
}

type operatorJSON struct {
	Type     schema.FieldType `json:"type"`
	Field    string           `json:"field"`
	Operator schema.Operator  `json:"operator"`
	Value    any              `json:"value,omitempty"`
}

// MarshalJSON encodes dates as 2006-01-02, datetimes as RFC 3339 and times
// as duration strings.
func (e *OperatorExpression) MarshalJSON() ([]byte, error) {
	return json.Marshal(operatorJSON{
		Type:     e.Type,
		Field:    e.Field,
		Operator: e.Operator,
		Value:    EncodeValue(e.Type, e.Value),
	})
}

type logicJSON struct {
	Logic       schema.Logic `json:"logic"`
	Expressions []Expression `json:"expressions"`
}

func (e *LogicExpression) MarshalJSON() ([]byte, error) {
	children := e.Expressions
	if children == nil {
		children = []Expression{}
	}
	return json.Marshal(logicJSON{Logic: e.Logic, Expressions: children})
}

// EncodeValue converts a canonical value into a JSON-friendly one.
func EncodeValue(t schema.FieldType, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = EncodeValue(t, item)
		}
		return out
	case time.Time, time.Duration:
		return cast.Format(t.Elem(), x)
	}
	return v
}

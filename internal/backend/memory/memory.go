// Package memory compiles expressions into in-process predicates over
// records keyed by field name.
//
// String matching (contain, start-with, end-with) ignores case. A missing
// or nil record value matches blank and the negated operators (not-equal,
// not-in and so on) and nothing else.
package memory

import (
	"strings"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend"
	"github.com/roach88/filtex/internal/cast"
	"github.com/roach88/filtex/internal/schema"
)

const name = "memory"

// Predicate reports whether a record matches.
type Predicate func(record map[string]any) bool

// Build compiles expr. A nil expression matches every record.
func Build(expr ast.Expression) (Predicate, error) {
	switch e := expr.(type) {
	case nil:
		return func(map[string]any) bool { return true }, nil
	case *ast.LogicExpression:
		return buildLogic(e)
	case *ast.OperatorExpression:
		return buildOperator(e)
	}
	return nil, backend.ErrUnbuildable
}

// Filter returns the records matching p, in order.
func Filter(p Predicate, records []map[string]any) []map[string]any {
	out := []map[string]any{}
	for _, r := range records {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}

func buildLogic(e *ast.LogicExpression) (Predicate, error) {
	children := make([]Predicate, 0, len(e.Expressions))
	for _, child := range e.Expressions {
		p, err := Build(child)
		if err != nil {
			return nil, err
		}
		children = append(children, p)
	}

	switch e.Logic {
	case schema.LogicAnd:
		return func(r map[string]any) bool {
			for _, p := range children {
				if !p(r) {
					return false
				}
			}
			return true
		}, nil
	case schema.LogicOr:
		return func(r map[string]any) bool {
			for _, p := range children {
				if p(r) {
					return true
				}
			}
			return false
		}, nil
	}
	return nil, backend.ErrUnbuildable
}

func buildOperator(e *ast.OperatorExpression) (Predicate, error) {
	if !backend.Supported(e.Operator, e.Type) {
		return nil, backend.Unbuildable(name, e)
	}
	t, field, want := e.Type, e.Field, e.Value

	var match func(v any) bool
	switch e.Operator {
	case schema.OpEqual, schema.OpNotEqual:
		match = func(v any) bool { return v != nil && cast.Equal(t, v, want) }
	case schema.OpIn, schema.OpNotIn:
		values := backend.Values(want)
		match = func(v any) bool {
			if v == nil {
				return false
			}
			for _, w := range values {
				if cast.Equal(t, v, w) {
					return true
				}
			}
			return false
		}
	case schema.OpGreaterThan:
		match = compare(t, want, func(c int) bool { return c > 0 })
	case schema.OpGreaterThanOrEqual:
		match = compare(t, want, func(c int) bool { return c >= 0 })
	case schema.OpLessThan:
		match = compare(t, want, func(c int) bool { return c < 0 })
	case schema.OpLessThanOrEqual:
		match = compare(t, want, func(c int) bool { return c <= 0 })
	case schema.OpContain, schema.OpNotContain:
		if t.IsArray() {
			match = func(v any) bool {
				for _, item := range cast.Elements(v) {
					if cast.Equal(t, item, want) {
						return true
					}
				}
				return false
			}
		} else {
			match = text(want, strings.Contains)
		}
	case schema.OpStartWith, schema.OpNotStartWith:
		match = text(want, strings.HasPrefix)
	case schema.OpEndWith, schema.OpNotEndWith:
		match = text(want, strings.HasSuffix)
	case schema.OpBlank, schema.OpNotBlank:
		match = cast.IsBlank
	default:
		return nil, backend.Unbuildable(name, e)
	}

	if negated(e.Operator) {
		return func(r map[string]any) bool { return !match(r[field]) }, nil
	}
	return func(r map[string]any) bool { return match(r[field]) }, nil
}

func negated(op schema.Operator) bool {
	switch op {
	case schema.OpNotEqual, schema.OpNotIn, schema.OpNotContain,
		schema.OpNotStartWith, schema.OpNotEndWith, schema.OpNotBlank:
		return true
	}
	return false
}

func compare(t schema.FieldType, want any, ok func(int) bool) func(any) bool {
	return func(v any) bool {
		if v == nil {
			return false
		}
		c, comparable := cast.Compare(t, v, want)
		return comparable && ok(c)
	}
}

func text(want any, fn func(s, sub string) bool) func(any) bool {
	sub, _ := cast.String(want)
	sub = strings.ToLower(sub)
	return func(v any) bool {
		s, ok := v.(string)
		return ok && fn(strings.ToLower(s), sub)
	}
}

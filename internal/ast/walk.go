package ast

import (
	"fmt"
	"slices"

	"github.com/roach88/filtex/internal/cast"
	"github.com/roach88/filtex/internal/schema"
)

// Walk visits expr depth-first, parents before children. Returning false
// from fn skips the node's children.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	if l, ok := expr.(*LogicExpression); ok {
		for _, child := range l.Expressions {
			Walk(child, fn)
		}
	}
}

// Fields returns the distinct field names referenced by expr, in first-use
// order.
func Fields(expr Expression) []string {
	var out []string
	Walk(expr, func(e Expression) bool {
		if op, ok := e.(*OperatorExpression); ok && !slices.Contains(out, op.Field) {
			out = append(out, op.Field)
		}
		return true
	})
	return out
}

// Depth returns the nesting depth of expr; a single clause has depth 1.
func Depth(expr Expression) int {
	l, ok := expr.(*LogicExpression)
	if !ok {
		if expr == nil {
			return 0
		}
		return 1
	}
	deepest := 0
	for _, child := range l.Expressions {
		deepest = max(deepest, Depth(child))
	}
	return deepest + 1
}

// Equal reports whether a and b are the same tree. Values compare by their
// canonical form, so dates compare as instants.
func Equal(a, b Expression) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *OperatorExpression:
		y, ok := b.(*OperatorExpression)
		if !ok || x.Type != y.Type || x.Field != y.Field || x.Operator != y.Operator {
			return false
		}
		return valuesEqual(x.Type, x.Value, y.Value)
	case *LogicExpression:
		y, ok := b.(*LogicExpression)
		if !ok || x.Logic != y.Logic || len(x.Expressions) != len(y.Expressions) {
			return false
		}
		for i := range x.Expressions {
			if !Equal(x.Expressions[i], y.Expressions[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func valuesEqual(t schema.FieldType, a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if cast.IsArray(a) != cast.IsArray(b) {
		return false
	}
	as, bs := cast.Elements(a), cast.Elements(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !cast.Equal(t, as[i], bs[i]) {
			return false
		}
	}
	return true
}

// CheckError reports a tree that breaks a structural invariant.
type CheckError struct {
	Path    string
	Message string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("ast: %s: %s", e.Path, e.Message)
}

// Check verifies expr against md: every clause names a declared field with
// an allowed operator and a value of the right shape, and every logic node
// has a valid logic and at least one child.
func Check(md *schema.Metadata, expr Expression) error {
	return check(md, expr, "$")
}

func check(md *schema.Metadata, expr Expression, path string) error {
	switch e := expr.(type) {
	case *OperatorExpression:
		f, ok := md.Field(e.Field)
		if !ok {
			return &CheckError{Path: path, Message: fmt.Sprintf("unknown field %q", e.Field)}
		}
		if f.Type() != e.Type {
			return &CheckError{Path: path, Message: fmt.Sprintf("field %s has type %s, not %s", f.Name(), f.Type(), e.Type)}
		}
		if !f.Allows(e.Operator) {
			return &CheckError{Path: path, Message: fmt.Sprintf("operator %s is not allowed on %s", e.Operator, f.Name())}
		}
		switch {
		case e.Operator.IsNoOperand() && e.Value != nil:
			return &CheckError{Path: path, Message: "blank operators take no value"}
		case e.Operator.IsMultiValue() && !cast.IsArray(e.Value):
			return &CheckError{Path: path, Message: "in operators take a list of values"}
		case e.Operator.TakesValue() && !e.Operator.IsMultiValue() && (e.Value == nil || cast.IsArray(e.Value)):
			return &CheckError{Path: path, Message: "operator takes a single value"}
		}
		return nil
	case *LogicExpression:
		if !e.Logic.Valid() {
			return &CheckError{Path: path, Message: "invalid logic"}
		}
		if len(e.Expressions) == 0 {
			return &CheckError{Path: path, Message: "logic has no children"}
		}
		for i, child := range e.Expressions {
			if err := check(md, child, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return &CheckError{Path: path, Message: "nil expression"}
	}
	return &CheckError{Path: path, Message: fmt.Sprintf("unexpected node %T", expr)}
}

package ast

import (
	"strings"

	"github.com/roach88/filtex/internal/cast"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// Format renders expr in the text DSL. Nested logic nodes are bracketed,
// so parsing the result yields an equal tree. The one exception is an
// in/not-in clause with an empty list, which only the JSON syntax can
// express: it renders as "Field In ()" and the text parser rejects it.
func Format(expr Expression) string {
	var b strings.Builder
	writeText(&b, expr, false)
	return b.String()
}

func writeText(b *strings.Builder, expr Expression, nested bool) {
	switch e := expr.(type) {
	case *OperatorExpression:
		b.WriteString(e.Field)
		b.WriteByte(' ')
		b.WriteString(e.Operator.Label())
		if !e.Operator.TakesValue() {
			return
		}
		b.WriteByte(' ')
		values := cast.Elements(e.Value)
		if len(values) == 0 && e.Operator.IsMultiValue() {
			b.WriteString("()")
			return
		}
		for i, v := range values {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(formatTextValue(e.Type, v))
		}
	case *LogicExpression:
		if nested {
			b.WriteByte('(')
		}
		for i, child := range e.Expressions {
			if i > 0 {
				b.WriteByte(' ')
				b.WriteString(e.Logic.Label())
				b.WriteByte(' ')
			}
			writeText(b, child, true)
		}
		if nested {
			b.WriteByte(')')
		}
	}
}

func formatTextValue(t schema.FieldType, v any) string {
	if s, ok := v.(string); ok {
		return token.Quote(s)
	}
	return cast.Format(t, v)
}

// Tuple renders expr in the JSON tuple form: [field, operator, value] for
// clauses and [logic, [children...]] for logic nodes.
func Tuple(expr Expression) any {
	switch e := expr.(type) {
	case *OperatorExpression:
		var value any
		if e.Operator.TakesValue() {
			value = EncodeValue(e.Type, e.Value)
		}
		return []any{e.Field, e.Operator.Name(), value}
	case *LogicExpression:
		children := make([]any, len(e.Expressions))
		for i, child := range e.Expressions {
			children[i] = Tuple(child)
		}
		return []any{e.Logic.Label(), children}
	}
	return nil
}

package query

import (
	"fmt"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// partial is a clause or group under construction. Both surfaces reduce
// their input to partials and share one conversion into the tree, so the
// value rules for blank and multi-value operators live only here.
type partial interface {
	build(md *schema.Metadata) (ast.Expression, error)
}

// partialClause accumulates field, operator and values. list is set when
// the values were written as an explicit list, which may be empty.
type partialClause struct {
	field    token.Token
	operator token.Token
	hasOp    bool
	values   []any
	list     bool
	path     string
}

func (c *partialClause) setOperator(tok token.Token) error {
	if c.hasOp {
		return &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "clause already has an operator", Token: tokenRef(tok), Path: c.path}
	}
	c.operator = tok
	c.hasOp = true
	return nil
}

func (c *partialClause) addValue(tok token.Token) error {
	if !c.hasOp {
		return &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "value without an operator", Token: tokenRef(tok), Path: c.path}
	}
	c.values = append(c.values, tok.Value)
	return nil
}

func (c *partialClause) build(md *schema.Metadata) (ast.Expression, error) {
	f, ok := md.Field(c.field.FieldName())
	if !ok {
		return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: fmt.Sprintf("unknown field %q", c.field.Text), Token: tokenRef(c.field), Path: c.path}
	}
	if !c.hasOp {
		return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "clause has no operator", Token: tokenRef(c.field), Path: c.path}
	}
	op, ok := c.operator.Value.(schema.Operator)
	if !ok || !op.Valid() {
		return nil, &ParseError{Code: ErrCodeOperatorCouldNotBeParsed, Message: fmt.Sprintf("unknown operator %q", c.operator.Text), Token: tokenRef(c.operator), Path: c.path}
	}
	if !f.Allows(op) {
		return nil, &ParseError{Code: ErrCodeOperatorCouldNotBeParsed, Message: fmt.Sprintf("operator %s is not allowed on %s", op.Label(), f.Label()), Token: tokenRef(c.operator), Path: c.path}
	}

	expr := &ast.OperatorExpression{Type: f.Type(), Field: f.Name(), Operator: op}
	switch {
	case op.IsNoOperand():
		if len(c.values) > 0 {
			return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: op.Label() + " takes no value", Token: tokenRef(c.operator), Path: c.path}
		}
	case op.IsMultiValue():
		if len(c.values) == 0 && !c.list {
			return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "clause has no value", Token: tokenRef(c.operator), Path: c.path}
		}
		expr.Value = append([]any{}, c.values...)
	case len(c.values) == 1:
		expr.Value = c.values[0]
	case len(c.values) == 0:
		return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "clause has no value", Token: tokenRef(c.operator), Path: c.path}
	default:
		return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: op.Label() + " takes a single value", Token: tokenRef(c.operator), Path: c.path}
	}
	return expr, nil
}

// partialGroup is a logic node over finished partials.
type partialGroup struct {
	logic   token.Token
	clauses []partial
	path    string
}

func (g *partialGroup) build(md *schema.Metadata) (ast.Expression, error) {
	l, ok := g.logic.Value.(schema.Logic)
	if !ok || !l.Valid() {
		return nil, &ParseError{Code: ErrCodeLogicCouldNotBeParsed, Message: fmt.Sprintf("unknown logic %q", g.logic.Text), Token: tokenRef(g.logic), Path: g.path}
	}
	if len(g.clauses) == 0 {
		return nil, &ParseError{Code: ErrCodeLogicCouldNotBeParsed, Message: l.Label() + " has no clauses", Token: tokenRef(g.logic), Path: g.path}
	}
	children := make([]ast.Expression, 0, len(g.clauses))
	for _, c := range g.clauses {
		child, err := c.build(md)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return ast.NewLogic(l, children...), nil
}

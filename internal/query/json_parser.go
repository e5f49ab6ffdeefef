package query

import (
	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// JSONValidator checks a JSON tuple query without building a tree.
type JSONValidator struct {
	tokenizer *JSONTokenizer
}

func NewJSONValidator(md *schema.Metadata, opts Options) *JSONValidator {
	return &JSONValidator{tokenizer: NewJSONTokenizer(md, opts)}
}

// Validate tokenizes input and checks every node. Empty input and null are
// valid. Structural failures are returned as TokenizeError.
func (v *JSONValidator) Validate(input []byte) error {
	node, err := v.tokenizer.Tokenize(input)
	if err != nil {
		return err
	}
	return ValidateNode(node)
}

// ValidateNode reports the first rejected leaf, depth first.
func ValidateNode(n Node) error {
	switch node := n.(type) {
	case nil:
		return nil
	case *ClauseNode:
		if node.Field.Rejected() {
			return &ValidateError{Code: ErrCodeInvalidField, Message: node.Field.Reject.Message, Token: tokenRef(node.Field), Path: node.Path + "[0]"}
		}
		if node.Operator.Rejected() {
			return &ValidateError{Code: ErrCodeInvalidOperator, Message: node.Operator.Reject.Message, Token: tokenRef(node.Operator), Path: node.Path + "[1]"}
		}
		for _, v := range node.Values {
			if v.Rejected() {
				return &ValidateError{Code: ErrCodeInvalidValue, Message: v.Reject.Message, Token: tokenRef(v), Path: node.Path + "[2]"}
			}
		}
		return nil
	case *GroupNode:
		if node.Logic.Rejected() {
			return &ValidateError{Code: ErrCodeInvalidLogic, Message: node.Logic.Reject.Message, Token: tokenRef(node.Logic), Path: node.Path + "[0]"}
		}
		if len(node.Clauses) == 0 {
			return &ValidateError{Code: ErrCodeInvalidLogic, Message: "logic has no clauses", Token: tokenRef(node.Logic), Path: node.Path + "[1]"}
		}
		for _, c := range node.Clauses {
			if err := ValidateNode(c); err != nil {
				return err
			}
		}
		return nil
	}
	return &ValidateError{Code: ErrCodeInvalidToken, Message: "unexpected node"}
}

// JSONParser turns a JSON tuple query into an expression tree.
type JSONParser struct {
	md        *schema.Metadata
	tokenizer *JSONTokenizer
}

func NewJSONParser(md *schema.Metadata, opts Options) *JSONParser {
	return &JSONParser{md: md, tokenizer: NewJSONTokenizer(md, opts)}
}

// Parse tokenizes and converts input. Empty input and null yield a nil
// expression and no error. A 2-element group becomes a logic node over all
// of its clauses.
func (p *JSONParser) Parse(input []byte) (ast.Expression, error) {
	node, err := p.tokenizer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	return ParseNode(p.md, node)
}

// ParseNode converts a tokenized JSON query.
func ParseNode(md *schema.Metadata, n Node) (ast.Expression, error) {
	if n == nil {
		return nil, nil
	}
	pt, err := partialOf(n)
	if err != nil {
		return nil, err
	}
	return pt.build(md)
}

func partialOf(n Node) (partial, error) {
	switch node := n.(type) {
	case *ClauseNode:
		if node.Field.Rejected() {
			return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: node.Field.Reject.Message, Token: tokenRef(node.Field), Path: node.Path}
		}
		if node.Operator.Rejected() {
			return nil, &ParseError{Code: ErrCodeOperatorCouldNotBeParsed, Message: node.Operator.Reject.Message, Token: tokenRef(node.Operator), Path: node.Path}
		}
		c := &partialClause{field: node.Field, list: node.List, path: node.Path}
		if err := c.setOperator(node.Operator); err != nil {
			return nil, err
		}
		for _, v := range node.Values {
			if v.Rejected() {
				return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: v.Reject.Message, Token: tokenRef(v), Path: node.Path}
			}
			if isImplicitBlank(v) {
				continue
			}
			if err := c.addValue(v); err != nil {
				return nil, err
			}
		}
		return c, nil
	case *GroupNode:
		if node.Logic.Rejected() {
			return nil, &ParseError{Code: ErrCodeLogicCouldNotBeParsed, Message: node.Logic.Reject.Message, Token: tokenRef(node.Logic), Path: node.Path}
		}
		g := &partialGroup{logic: node.Logic, path: node.Path}
		for _, child := range node.Clauses {
			pt, err := partialOf(child)
			if err != nil {
				return nil, err
			}
			g.clauses = append(g.clauses, pt)
		}
		return g, nil
	}
	return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "unexpected node"}
}

func isImplicitBlank(t token.Token) bool {
	return t.Type == token.TypeValue && t.Value == nil
}

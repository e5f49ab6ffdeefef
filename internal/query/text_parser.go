package query

import (
	"fmt"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// TextParser turns a text query into an expression tree.
type TextParser struct {
	md        *schema.Metadata
	tokenizer *TextTokenizer
	opts      Options
}

func NewTextParser(md *schema.Metadata, opts Options) *TextParser {
	return &TextParser{md: md, tokenizer: NewTextTokenizer(md), opts: opts}
}

// Parse tokenizes and parses input. Empty input yields a nil expression
// and no error.
func (p *TextParser) Parse(input string) (ast.Expression, error) {
	return ParseTokens(p.md, p.tokenizer.Tokenize(input), p.opts)
}

// ParseTokens rebuilds the clause structure of a flat token stream and
// converts it into a tree. Logic chains nest to the left, so
// "A And B Or C" becomes Or(And(A, B), C); brackets only group.
func ParseTokens(md *schema.Metadata, tokens []token.Token, opts Options) (ast.Expression, error) {
	tp := &textParser{tokens: tokens, maxDepth: opts.maxDepth()}
	root, err := tp.parse(0, false)
	if err != nil {
		return nil, err
	}
	if tp.pos < len(tp.tokens) {
		tok := tp.tokens[tp.pos]
		return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "unexpected trailing token", Token: tokenRef(tok)}
	}
	if tp.open > 0 {
		return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "unclosed bracket"}
	}
	if root == nil {
		return nil, nil
	}
	return root.build(md)
}

type textParser struct {
	tokens   []token.Token
	pos      int
	open     int
	maxDepth int
}

// parse consumes tokens until the input ends or a close bracket ends the
// current group. In single mode it returns as soon as one clause or
// bracketed group is complete, which is how a logic token reads its right
// operand.
func (p *textParser) parse(depth int, single bool) (partial, error) {
	if depth > p.maxDepth {
		return nil, &ParseError{Code: ErrCodeNestingTooDeep, Message: fmt.Sprintf("groups nest deeper than %d", p.maxDepth)}
	}

	var cur partial
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		p.pos++

		if tok.Type == token.TypeSpace {
			continue
		}
		if tok.Rejected() {
			return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: tok.Reject.Message, Token: tokenRef(tok)}
		}

		if op, ok := tok.Type.Operator(); ok {
			clause, err := p.clause(cur, tok)
			if err != nil {
				return nil, err
			}
			if err := clause.setOperator(tok); err != nil {
				return nil, err
			}
			if single && op.IsNoOperand() {
				return cur, nil
			}
			continue
		}
		if l, ok := tok.Type.Logic(); ok {
			if cur == nil {
				return nil, &ParseError{Code: ErrCodeLogicCouldNotBeParsed, Message: l.Label() + " has no left operand", Token: tokenRef(tok)}
			}
			right, err := p.parse(depth, true)
			if err != nil {
				return nil, err
			}
			if right == nil {
				return nil, &ParseError{Code: ErrCodeLogicCouldNotBeParsed, Message: l.Label() + " has no right operand", Token: tokenRef(tok)}
			}
			cur = &partialGroup{logic: tok, clauses: []partial{cur, right}}
			continue
		}

		switch tok.Type {
		case token.TypeField:
			if cur != nil {
				return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "field follows a complete clause", Token: tokenRef(tok)}
			}
			cur = &partialClause{field: tok}
		case token.TypeValue:
			clause, err := p.clause(cur, tok)
			if err != nil {
				return nil, err
			}
			if err := clause.addValue(tok); err != nil {
				return nil, err
			}
			if single && !p.separatorAhead() {
				return cur, nil
			}
		case token.TypeComma, token.TypeSlash:
			clause, err := p.clause(cur, tok)
			if err != nil {
				return nil, err
			}
			if len(clause.values) == 0 {
				return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "separator without a value", Token: tokenRef(tok)}
			}
		case token.TypeOpenBracket:
			if cur != nil {
				return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "bracket follows a complete clause", Token: tokenRef(tok)}
			}
			p.open++
			group, err := p.parse(depth+1, false)
			if err != nil {
				return nil, err
			}
			if group == nil {
				return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "empty brackets", Token: tokenRef(tok)}
			}
			cur = group
			if single {
				return cur, nil
			}
		case token.TypeCloseBracket:
			if p.open == 0 {
				return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "no open bracket to close", Token: tokenRef(tok)}
			}
			if single {
				// The enclosing group owns the bracket.
				p.pos--
				return cur, nil
			}
			p.open--
			return cur, nil
		default:
			return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: "unexpected token", Token: tokenRef(tok)}
		}
	}
	return cur, nil
}

// clause returns cur as a clause still being built.
func (p *textParser) clause(cur partial, tok token.Token) (*partialClause, error) {
	clause, ok := cur.(*partialClause)
	if !ok {
		return nil, &ParseError{Code: ErrCodeCouldNotBeParsed, Message: fmt.Sprintf("%s must follow a field", tok.Type), Token: tokenRef(tok)}
	}
	return clause, nil
}

// separatorAhead reports whether the next non-space token separates values.
func (p *textParser) separatorAhead() bool {
	for i := p.pos; i < len(p.tokens); i++ {
		if p.tokens[i].Type == token.TypeSpace {
			continue
		}
		return p.tokens[i].Type.IsSeparator() && !p.tokens[i].Rejected()
	}
	return false
}

package query

import (
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// TextValidator checks a text query for well-formedness without building a
// tree.
type TextValidator struct {
	tokenizer *TextTokenizer
}

func NewTextValidator(md *schema.Metadata) *TextValidator {
	return &TextValidator{tokenizer: NewTextTokenizer(md)}
}

// Validate tokenizes input and checks the token stream. Empty input is
// valid.
func (v *TextValidator) Validate(input string) error {
	return ValidateTokens(v.tokenizer.Tokenize(input))
}

// ValidateTokens checks a flat token stream: no rejected token, balanced
// brackets and a last token that completes a clause.
func ValidateTokens(tokens []token.Token) error {
	var (
		open, closed int
		last         *token.Token
	)
	for i := range tokens {
		tok := tokens[i]
		if tok.Type == token.TypeSpace {
			continue
		}
		if tok.Rejected() {
			if tok.Reject.Reason == token.ReasonUnbalanced {
				return &ValidateError{Code: ErrCodeMismatchedBrackets, Message: tok.Reject.Message, Token: tokenRef(tok)}
			}
			return &ValidateError{Code: ErrCodeInvalidToken, Message: tok.Reject.Message, Token: tokenRef(tok)}
		}
		switch tok.Type {
		case token.TypeOpenBracket:
			open++
		case token.TypeCloseBracket:
			closed++
		}
		last = &tokens[i]
	}

	if open != closed {
		return &ValidateError{Code: ErrCodeMismatchedBrackets, Message: "brackets are not balanced", Token: last}
	}
	if last != nil && !completesClause(last.Type) {
		return &ValidateError{Code: ErrCodeInvalidLastToken, Message: "query ends with an incomplete clause", Token: last}
	}
	return nil
}

func completesClause(t token.Type) bool {
	if op, ok := t.Operator(); ok {
		return op.IsNoOperand()
	}
	switch t {
	case token.TypeValue, token.TypeCloseBracket:
		return true
	}
	return false
}

package token

import (
	"github.com/roach88/filtex/internal/cast"
	"github.com/roach88/filtex/internal/schema"
)

// CreateToken classifies one candidate lexeme against the tokens accepted
// so far. The returned token is either accepted, with a canonical Value, or
// carries a Rejection.
func CreateToken(md *schema.Metadata, accepted []Token, typ Type, text string) Token {
	return StateOf(md, accepted).Classify(typ, text)
}

// Classify decides whether a candidate of type typ is admissible in s.
func (s State) Classify(typ Type, text string) Token {
	tok := Token{Type: typ, Value: text, Text: text}

	if typ == TypeSpace {
		if s.LastSpace {
			return Reject(tok, ReasonUnexpected, "consecutive whitespace")
		}
		return tok
	}
	if s.Position == Invalid {
		return Reject(tok, ReasonUnexpected, "follows a rejected token")
	}

	if op, ok := typ.Operator(); ok {
		if s.Position != AfterField || s.Field == nil {
			return Reject(tok, ReasonUnexpected, "operator %s must follow a field", op.Label())
		}
		if !s.Field.Allows(op) {
			return Reject(tok, ReasonOperatorNotAllowed, "operator %s is not allowed on %s", op.Label(), s.Field.Label())
		}
		tok.Value = op
		return tok
	}
	if l, ok := typ.Logic(); ok {
		if !s.afterOperand() {
			return Reject(tok, ReasonUnexpected, "%s must follow a complete clause", l.Label())
		}
		tok.Value = l
		return tok
	}

	switch typ {
	case TypeOpenBracket:
		if !s.expectsClause() {
			return Reject(tok, ReasonUnexpected, "bracket cannot open here")
		}
		return tok
	case TypeCloseBracket:
		if s.Depth <= 0 {
			return Reject(tok, ReasonUnbalanced, "no open bracket to close")
		}
		if !s.afterOperand() {
			return Reject(tok, ReasonUnexpected, "bracket closes an incomplete clause")
		}
		return tok
	case TypeComma, TypeSlash:
		if s.Position != AfterValue || !s.Operator.IsMultiValue() {
			return Reject(tok, ReasonUnexpected, "separator only follows a value of in or not-in")
		}
		return tok
	case TypeField, TypeLiteral:
		if s.expectsClause() {
			f, ok := s.md.Field(text)
			if !ok {
				return Reject(tok, ReasonUnknownField, "unknown field %q", text)
			}
			tok.Type = TypeField
			tok.Value = f.Name()
			return tok
		}
		if s.expectsValue() {
			return s.ClassifyValue(tok, text)
		}
		return Reject(tok, ReasonUnexpected, "unexpected %q", text)
	}

	if typ.IsValueKind() {
		if !s.expectsValue() {
			return Reject(tok, ReasonUnexpected, "unexpected value %q", text)
		}
		raw := text
		if typ == TypeString {
			raw = Unquote(text)
		}
		return s.ClassifyValue(tok, raw)
	}
	return Reject(tok, ReasonUnexpected, "unexpected %q", text)
}

// ClassifyValue casts raw against the active field. Symbolic lookup names
// resolve to their values first; the result is an accepted TypeValue token
// or a rejection.
func (s State) ClassifyValue(tok Token, raw any) Token {
	if !s.expectsValue() || s.Field == nil {
		return Reject(tok, ReasonUnexpected, "value must follow an operator")
	}
	if !s.Operator.TakesValue() {
		return Reject(tok, ReasonUnexpected, "operator %s takes no value", s.Operator.Label())
	}

	v := raw
	if name, ok := raw.(string); ok {
		if resolved, ok := s.Field.Resolve(name); ok {
			v = resolved
		}
	}
	c, ok := cast.Cast(s.Field.Type().Elem(), v)
	if !ok {
		return Reject(tok, ReasonInvalidValue, "%q is not a valid %s for %s", tok.Text, s.Field.Type().Elem(), s.Field.Label())
	}
	tok.Type = TypeValue
	tok.Value = c
	return tok
}

// Blank yields the implicit operand of a no-operand operator, used where a
// surface carries an explicit empty value.
func (s State) Blank(text string) Token {
	tok := Token{Type: TypeValue, Text: text}
	if s.Position != AfterOperator || !s.Operator.IsNoOperand() {
		return Reject(tok, ReasonUnexpected, "empty value")
	}
	return tok
}

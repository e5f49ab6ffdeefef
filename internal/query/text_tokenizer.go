package query

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// TextTokenizer splits a text query into classified tokens.
type TextTokenizer struct {
	md    *schema.Metadata
	table *token.Table
}

// NewTextTokenizer builds a tokenizer and its pattern table for md.
func NewTextTokenizer(md *schema.Metadata) *TextTokenizer {
	return &TextTokenizer{md: md, table: token.NewTable(md)}
}

// Tokenize scans input left to right. The result always covers the whole
// input; fragments that are inadmissible in context come back as rejected
// tokens, and a collapsed run of whitespace is dropped.
func (t *TextTokenizer) Tokenize(input string) []token.Token {
	text := schema.Normalize(input)
	state := token.NewState(t.md)

	var out []token.Token
	for pos := 0; pos < len(text); {
		rest := text[pos:]

		tok, n := t.next(state, rest)
		tok.Pos = pos
		pos += n

		if tok.Type == token.TypeSpace && tok.Rejected() {
			continue
		}
		out = append(out, tok)
		state = state.Advance(tok)
	}
	return out
}

// next classifies the lexeme at the head of rest. When context rejects the
// first matching pattern, later patterns matching at the same position are
// tried in table order; "In" can then be read as a value and "Status" as a
// lookup name. If none is admissible the first candidate's rejection
// stands.
func (t *TextTokenizer) next(state token.State, rest string) (token.Token, int) {
	matches := t.table.Matches(rest)
	if len(matches) == 0 {
		chunk := unmatchedChunk(rest)
		tok := token.Token{Type: token.TypeLiteral, Value: strings.TrimSpace(chunk), Text: chunk}
		return token.Reject(tok, token.ReasonUnmatched, "unrecognized text %q", strings.TrimSpace(chunk)), len(chunk)
	}

	first := state.Classify(matches[0].Type, matches[0].Text)
	if !first.Rejected() || matches[0].Type == token.TypeSpace {
		return first, len(matches[0].Text)
	}
	for _, m := range matches[1:] {
		if tok := state.Classify(m.Type, m.Text); !tok.Rejected() {
			return tok, len(m.Text)
		}
	}
	return first, len(matches[0].Text)
}

// unmatchedChunk is a run of non-space characters plus at most one
// following space.
func unmatchedChunk(rest string) string {
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		return rest
	}
	_, size := utf8.DecodeRuneInString(rest[end:])
	return rest[:end+size]
}

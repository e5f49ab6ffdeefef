// Package filter is the entry point for turning user queries into
// expression trees. A Filter binds one schema to the text and JSON
// tokenizers, validators and parsers and logs every rejected query.
package filter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// Syntax selects the query surface.
type Syntax string

const (
	SyntaxText Syntax = "text"
	SyntaxJSON Syntax = "json"
)

// ParseSyntax accepts "text" or "json" in any case.
func ParseSyntax(s string) (Syntax, error) {
	switch Syntax(strings.ToLower(strings.TrimSpace(s))) {
	case SyntaxText:
		return SyntaxText, nil
	case SyntaxJSON:
		return SyntaxJSON, nil
	}
	return "", fmt.Errorf("unknown syntax %q (expected text or json)", s)
}

// Filter parses and validates queries against one schema. It is safe for
// concurrent use.
type Filter struct {
	md     *schema.Metadata
	opts   query.Options
	logger *slog.Logger

	textTokenizer *query.TextTokenizer
	textValidator *query.TextValidator
	textParser    *query.TextParser
	jsonTokenizer *query.JSONTokenizer
	jsonValidator *query.JSONValidator
	jsonParser    *query.JSONParser
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) { f.logger = l }
}

// WithMaxDepth bounds group nesting.
func WithMaxDepth(n int) Option {
	return func(f *Filter) { f.opts.MaxDepth = n }
}

func New(md *schema.Metadata, opts ...Option) *Filter {
	f := &Filter{md: md, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	f.textTokenizer = query.NewTextTokenizer(md)
	f.textValidator = query.NewTextValidator(md)
	f.textParser = query.NewTextParser(md, f.opts)
	f.jsonTokenizer = query.NewJSONTokenizer(md, f.opts)
	f.jsonValidator = query.NewJSONValidator(md, f.opts)
	f.jsonParser = query.NewJSONParser(md, f.opts)
	return f
}

// Metadata returns the bound schema.
func (f *Filter) Metadata() *schema.Metadata { return f.md }

// ParseText parses a text query. Empty input yields (nil, nil).
func (f *Filter) ParseText(input string) (ast.Expression, error) {
	expr, err := f.textParser.Parse(input)
	return expr, f.observe("parse", SyntaxText, input, err)
}

// ValidateText checks a text query without building a tree.
func (f *Filter) ValidateText(input string) error {
	return f.observe("validate", SyntaxText, input, f.textValidator.Validate(input))
}

// TokenizeText returns the classified token stream of a text query.
func (f *Filter) TokenizeText(input string) []token.Token {
	return f.textTokenizer.Tokenize(input)
}

// ParseJSON parses a JSON tuple query. Empty input and null yield (nil, nil).
func (f *Filter) ParseJSON(input []byte) (ast.Expression, error) {
	expr, err := f.jsonParser.Parse(input)
	return expr, f.observe("parse", SyntaxJSON, string(input), err)
}

// ValidateJSON checks a JSON tuple query without building a tree.
func (f *Filter) ValidateJSON(input []byte) error {
	return f.observe("validate", SyntaxJSON, string(input), f.jsonValidator.Validate(input))
}

// TokenizeJSON returns the classified node tree of a JSON tuple query.
func (f *Filter) TokenizeJSON(input []byte) (query.Node, error) {
	node, err := f.jsonTokenizer.Tokenize(input)
	return node, f.observe("tokenize", SyntaxJSON, string(input), err)
}

// Parse dispatches on syntax.
func (f *Filter) Parse(syntax Syntax, input string) (ast.Expression, error) {
	switch syntax {
	case SyntaxText:
		return f.ParseText(input)
	case SyntaxJSON:
		return f.ParseJSON([]byte(input))
	}
	return nil, fmt.Errorf("unknown syntax %q", syntax)
}

// Validate dispatches on syntax.
func (f *Filter) Validate(syntax Syntax, input string) error {
	switch syntax {
	case SyntaxText:
		return f.ValidateText(input)
	case SyntaxJSON:
		return f.ValidateJSON([]byte(input))
	}
	return fmt.Errorf("unknown syntax %q", syntax)
}

func (f *Filter) observe(op string, syntax Syntax, input string, err error) error {
	if err == nil {
		f.logger.Debug("query accepted", "op", op, "syntax", syntax, "length", len(input))
		return nil
	}
	f.logger.Warn("query rejected",
		"op", op,
		"syntax", syntax,
		"code", query.Code(err),
		"error", err.Error(),
	)
	return err
}

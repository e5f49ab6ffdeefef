// Package query tokenizes, validates and parses filter queries in the text
// DSL and the JSON tuple form.
//
// Both surfaces share the token classifier, so a clause written as
//
//	Value Equal "Filtex"
//
// and as
//
//	["Value", "Equal", "Filtex"]
//
// produce the same expression tree. Tokenizers never fail on a single bad
// fragment: rejected fragments stay in the token stream and the validators
// or parsers report them.
//
// Tokenizers, validators and parsers hold only the immutable schema and are
// safe for concurrent use.
package query

// DefaultMaxDepth bounds bracket or JSON nesting when Options.MaxDepth is
// unset.
const DefaultMaxDepth = 64

// Options tunes parsing.
type Options struct {
	// MaxDepth bounds how deeply groups may nest. Zero means DefaultMaxDepth.
	MaxDepth int
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

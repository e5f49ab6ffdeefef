package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/token"
)

// Node is one level of a tokenized JSON query.
type Node interface {
	jsonNode() // seals the interface to this package
}

// ClauseNode is a tokenized [field, operator, value] tuple. List is set when
// the value was written as an array; each element is then classified on
// its own.
type ClauseNode struct {
	Path     string        `json:"path"`
	Field    token.Token   `json:"field"`
	Operator token.Token   `json:"operator"`
	Values   []token.Token `json:"values"`
	List     bool          `json:"list,omitempty"`
}

func (*ClauseNode) jsonNode() {}

// GroupNode is a tokenized [logic, [clauses...]] tuple.
type GroupNode struct {
	Path    string      `json:"path"`
	Logic   token.Token `json:"logic"`
	Clauses []Node      `json:"clauses"`
}

func (*GroupNode) jsonNode() {}

// JSONTokenizer classifies the leaves of a JSON tuple query.
type JSONTokenizer struct {
	md   *schema.Metadata
	opts Options
}

func NewJSONTokenizer(md *schema.Metadata, opts Options) *JSONTokenizer {
	return &JSONTokenizer{md: md, opts: opts}
}

// Tokenize decodes input and classifies it. Empty input and null mean no
// filter and yield a nil Node. Malformed structure fails with a
// TokenizeError; bad leaves come back as rejected tokens.
func (t *JSONTokenizer) Tokenize(input []byte) (Node, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &TokenizeError{Message: "invalid JSON", Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &TokenizeError{Message: "unexpected data after query", Err: err}
	}
	return t.TokenizeValue(v)
}

// TokenizeValue classifies an already decoded query: nested []any with
// string, bool, number and nil leaves.
func (t *JSONTokenizer) TokenizeValue(v any) (Node, error) {
	if v == nil {
		return nil, nil
	}
	return t.node(v, "$", 0)
}

func (t *JSONTokenizer) node(v any, path string, depth int) (Node, error) {
	if depth > t.opts.maxDepth() {
		return nil, &TokenizeError{Path: path, Message: fmt.Sprintf("groups nest deeper than %d", t.opts.maxDepth())}
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &TokenizeError{Path: path, Message: fmt.Sprintf("expected an array, got %s", describe(v))}
	}
	switch len(arr) {
	case 3:
		return t.clause(arr, path), nil
	case 2:
		return t.group(arr, path, depth)
	}
	return nil, &TokenizeError{Path: path, Message: fmt.Sprintf("expected 2 or 3 elements, got %d", len(arr))}
}

func (t *JSONTokenizer) clause(arr []any, path string) *ClauseNode {
	n := &ClauseNode{Path: path}
	state := token.NewState(t.md)

	n.Field = t.fieldToken(state, arr[0])
	state = state.Advance(n.Field)

	n.Operator = t.operatorToken(state, arr[1])
	state = state.Advance(n.Operator)

	switch x := arr[2].(type) {
	case []any:
		n.List = true
		if len(x) == 0 && state.Operator.IsNoOperand() {
			n.Values = []token.Token{state.Blank("")}
			break
		}
		if !state.Operator.IsMultiValue() && !state.Operator.IsNoOperand() {
			tok := token.Token{Type: token.TypeLiteral, Text: fmt.Sprint(x), Pos: 2}
			n.Values = []token.Token{token.Reject(tok, token.ReasonUnexpected, "a list of values needs in or not-in")}
			break
		}
		for i, item := range x {
			tok := t.valueToken(state, item)
			tok.Pos = i
			n.Values = append(n.Values, tok)
		}
	default:
		tok := t.valueToken(state, x)
		tok.Pos = 2
		n.Values = []token.Token{tok}
	}
	return n
}

func (t *JSONTokenizer) fieldToken(state token.State, v any) token.Token {
	s, ok := v.(string)
	if !ok {
		tok := token.Token{Type: token.TypeLiteral, Text: fmt.Sprint(v)}
		return token.Reject(tok, token.ReasonUnknownField, "field must be a string, got %s", describe(v))
	}
	return state.Classify(token.TypeLiteral, s)
}

func (t *JSONTokenizer) operatorToken(state token.State, v any) token.Token {
	s, ok := v.(string)
	if !ok {
		tok := token.Token{Type: token.TypeLiteral, Text: fmt.Sprint(v), Pos: 1}
		return token.Reject(tok, token.ReasonUnmatched, "operator must be a string, got %s", describe(v))
	}
	op, ok := schema.ParseOperator(s)
	if !ok {
		tok := token.Token{Type: token.TypeLiteral, Value: s, Text: s, Pos: 1}
		return token.Reject(tok, token.ReasonUnmatched, "unknown operator %q", s)
	}
	tok := state.Classify(token.OperatorType(op), s)
	tok.Pos = 1
	return tok
}

// valueToken classifies one JSON scalar against the active field. An empty
// string or null is the implicit operand of blank and not-blank.
func (t *JSONTokenizer) valueToken(state token.State, v any) token.Token {
	switch x := v.(type) {
	case nil:
		if state.Operator.IsNoOperand() {
			return state.Blank("")
		}
		return token.Reject(token.Token{Type: token.TypeLiteral, Text: "null"}, token.ReasonInvalidValue, "null value")
	case string:
		if x == "" && state.Operator.IsNoOperand() {
			return state.Blank("")
		}
		return state.ClassifyValue(token.Token{Type: token.TypeLiteral, Value: x, Text: x}, x)
	case bool:
		return state.ClassifyValue(token.Token{Type: token.TypeBoolean, Value: x, Text: strconv.FormatBool(x)}, x)
	case json.Number:
		return state.ClassifyValue(token.Token{Type: token.TypeNumber, Value: x, Text: x.String()}, x)
	case float64:
		return state.ClassifyValue(token.Token{Type: token.TypeNumber, Value: x, Text: strconv.FormatFloat(x, 'f', -1, 64)}, x)
	}
	tok := token.Token{Type: token.TypeLiteral, Text: fmt.Sprint(v)}
	return token.Reject(tok, token.ReasonInvalidValue, "value must be a scalar, got %s", describe(v))
}

func (t *JSONTokenizer) group(arr []any, path string, depth int) (*GroupNode, error) {
	n := &GroupNode{Path: path}

	s, ok := arr[0].(string)
	l, known := schema.ParseLogic(s)
	switch {
	case !ok:
		tok := token.Token{Type: token.TypeLiteral, Text: fmt.Sprint(arr[0])}
		n.Logic = token.Reject(tok, token.ReasonUnmatched, "logic must be a string, got %s", describe(arr[0]))
	case !known:
		tok := token.Token{Type: token.TypeLiteral, Value: s, Text: s}
		n.Logic = token.Reject(tok, token.ReasonUnmatched, "unknown logic %q", s)
	default:
		n.Logic = token.Token{Type: token.LogicType(l), Value: l, Text: s}
	}

	list, ok := arr[1].([]any)
	if !ok {
		return nil, &TokenizeError{Path: path + "[1]", Message: fmt.Sprintf("expected a list of clauses, got %s", describe(arr[1]))}
	}
	for i, item := range list {
		child, err := t.node(item, fmt.Sprintf("%s[1][%d]", path, i), depth+1)
		if err != nil {
			return nil, err
		}
		n.Clauses = append(n.Clauses, child)
	}
	return n, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

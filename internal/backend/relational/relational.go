// Package relational compiles expressions into parameterized SQL
// conditions.
//
// Values are never interpolated into the condition; every operand becomes
// a positional argument. Stored values are expected in the encoding
// produced by Encode: dates and datetimes as ISO text, times as integer
// nanoseconds, arrays as JSON text. Array fields support only blank and
// not-blank.
package relational

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend"
	"github.com/roach88/filtex/internal/cast"
	"github.com/roach88/filtex/internal/schema"
)

const name = "relational"

// DateTimeLayout sorts lexically in the same order as the instants it
// encodes.
const DateTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Placeholder selects the positional parameter style.
type Placeholder int

const (
	// Dollar renders $1, $2, ...
	Dollar Placeholder = iota
	// Question renders ?.
	Question
)

// ParsePlaceholder accepts "dollar" or "question".
func ParsePlaceholder(s string) (Placeholder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dollar", "$":
		return Dollar, nil
	case "question", "?":
		return Question, nil
	}
	return 0, fmt.Errorf("unknown placeholder style %q (expected dollar or question)", s)
}

// Options configures a Builder.
type Options struct {
	Placeholder Placeholder
	// StartIndex numbers the first Dollar placeholder. Zero means 1.
	StartIndex int
	// Column maps a field name to a column reference. Defaults to a
	// double-quoted identifier.
	Column func(field string) string
	// Lower wraps a column reference for case-insensitive matching.
	// Defaults to LOWER(col). Patterns are lowered with strings.ToLower, so
	// the SQL side should fold non-ASCII text the same way.
	Lower func(col string) string
}

// Fragment is a compiled condition.
type Fragment struct {
	Condition string
	Args      []any
	// NextIndex is the Dollar index a following fragment should start at.
	NextIndex int
}

// Builder compiles expressions with fixed options. It holds no state
// between calls.
type Builder struct {
	opts Options
}

func New(opts Options) *Builder {
	if opts.StartIndex <= 0 {
		opts.StartIndex = 1
	}
	if opts.Column == nil {
		opts.Column = QuoteIdent
	}
	if opts.Lower == nil {
		opts.Lower = func(col string) string { return "LOWER(" + col + ")" }
	}
	return &Builder{opts: opts}
}

// QuoteIdent double-quotes an identifier.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Build compiles expr. A nil expression yields the always-true condition.
func (b *Builder) Build(expr ast.Expression) (Fragment, error) {
	c := &compiler{opts: b.opts, index: b.opts.StartIndex}
	cond, err := c.compile(expr)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Condition: cond, Args: c.args, NextIndex: c.index}, nil
}

type compiler struct {
	opts  Options
	index int
	args  []any
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	if c.opts.Placeholder == Question {
		return "?"
	}
	p := "$" + strconv.Itoa(c.index)
	c.index++
	return p
}

func (c *compiler) compile(expr ast.Expression) (string, error) {
	switch e := expr.(type) {
	case nil:
		return "1 = 1", nil
	case *ast.LogicExpression:
		return c.compileLogic(e)
	case *ast.OperatorExpression:
		return c.compileOperator(e)
	}
	return "", backend.ErrUnbuildable
}

func (c *compiler) compileLogic(e *ast.LogicExpression) (string, error) {
	var sep, empty string
	switch e.Logic {
	case schema.LogicAnd:
		sep, empty = " AND ", "1 = 1"
	case schema.LogicOr:
		sep, empty = " OR ", "1 = 0"
	default:
		return "", backend.ErrUnbuildable
	}
	if len(e.Expressions) == 0 {
		return empty, nil
	}

	parts := make([]string, 0, len(e.Expressions))
	for _, child := range e.Expressions {
		sql, err := c.compile(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compiler) compileOperator(e *ast.OperatorExpression) (string, error) {
	if !backend.Supported(e.Operator, e.Type) {
		return "", backend.Unbuildable(name, e)
	}
	col := c.opts.Column(e.Field)

	if e.Type.IsArray() {
		switch e.Operator {
		case schema.OpBlank:
			return fmt.Sprintf("(%s IS NULL OR %s = '[]')", col, col), nil
		case schema.OpNotBlank:
			return fmt.Sprintf("(%s IS NOT NULL AND %s <> '[]')", col, col), nil
		}
		return "", backend.Unbuildable(name, e)
	}

	switch e.Operator {
	case schema.OpEqual:
		return fmt.Sprintf("%s = %s", col, c.bind(Encode(e.Type, e.Value))), nil
	case schema.OpNotEqual:
		return fmt.Sprintf("(%s IS NULL OR %s <> %s)", col, col, c.bind(Encode(e.Type, e.Value))), nil
	case schema.OpIn, schema.OpNotIn:
		values := backend.Values(e.Value)
		if len(values) == 0 {
			if e.Operator == schema.OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}
		ps := make([]string, 0, len(values))
		for _, v := range values {
			ps = append(ps, c.bind(Encode(e.Type, v)))
		}
		list := strings.Join(ps, ", ")
		if e.Operator == schema.OpIn {
			return fmt.Sprintf("%s IN (%s)", col, list), nil
		}
		return fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))", col, col, list), nil
	case schema.OpGreaterThan:
		return fmt.Sprintf("%s > %s", col, c.bind(Encode(e.Type, e.Value))), nil
	case schema.OpGreaterThanOrEqual:
		return fmt.Sprintf("%s >= %s", col, c.bind(Encode(e.Type, e.Value))), nil
	case schema.OpLessThan:
		return fmt.Sprintf("%s < %s", col, c.bind(Encode(e.Type, e.Value))), nil
	case schema.OpLessThanOrEqual:
		return fmt.Sprintf("%s <= %s", col, c.bind(Encode(e.Type, e.Value))), nil
	case schema.OpContain:
		return c.like(col, "%"+escapeLike(e.Value)+"%", false), nil
	case schema.OpNotContain:
		return c.like(col, "%"+escapeLike(e.Value)+"%", true), nil
	case schema.OpStartWith:
		return c.like(col, escapeLike(e.Value)+"%", false), nil
	case schema.OpNotStartWith:
		return c.like(col, escapeLike(e.Value)+"%", true), nil
	case schema.OpEndWith:
		return c.like(col, "%"+escapeLike(e.Value), false), nil
	case schema.OpNotEndWith:
		return c.like(col, "%"+escapeLike(e.Value), true), nil
	case schema.OpBlank:
		if e.Type == schema.TypeString {
			return fmt.Sprintf("(%s IS NULL OR %s = '')", col, col), nil
		}
		return fmt.Sprintf("%s IS NULL", col), nil
	case schema.OpNotBlank:
		if e.Type == schema.TypeString {
			return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", col, col), nil
		}
		return fmt.Sprintf("%s IS NOT NULL", col), nil
	}
	return "", backend.Unbuildable(name, e)
}

// like matches case-insensitively; the pattern is lowered before binding.
func (c *compiler) like(col, pattern string, not bool) string {
	p := c.bind(strings.ToLower(pattern))
	lower := c.opts.Lower(col)
	if not {
		return fmt.Sprintf(`(%s IS NULL OR %s NOT LIKE %s ESCAPE '\')`, col, lower, p)
	}
	return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, lower, p)
}

func escapeLike(v any) string {
	s, _ := v.(string)
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Encode converts a canonical value of type t to its stored form. Arrays
// become JSON text of their encoded elements.
func Encode(t schema.FieldType, v any) any {
	if v == nil {
		return nil
	}
	if t.IsArray() {
		items := cast.Elements(v)
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, Encode(t.Elem(), item))
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil
		}
		return string(data)
	}
	switch val := v.(type) {
	case time.Duration:
		return int64(val)
	case time.Time:
		if t == schema.TypeDate {
			return val.UTC().Format(cast.DateLayout)
		}
		return val.UTC().Format(DateTimeLayout)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// Decode converts a stored value back to the canonical value for t.
func Decode(t schema.FieldType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if t.IsArray() {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("decode %s: want JSON text, got %T", t, v)
		}
		var items []any
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			d, err := Decode(t.Elem(), item)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	}

	switch t {
	case schema.TypeTime:
		switch n := v.(type) {
		case int64:
			return time.Duration(n), nil
		case float64:
			return time.Duration(int64(n)), nil
		}
	case schema.TypeBoolean:
		switch n := v.(type) {
		case int64:
			return n != 0, nil
		case float64:
			return n != 0, nil
		case bool:
			return n, nil
		}
	case schema.TypeNumber:
		if n, ok := v.(int64); ok {
			return float64(n), nil
		}
	}
	out, ok := cast.Cast(t, v)
	if !ok {
		return nil, fmt.Errorf("decode %s: cannot convert %v (%T)", t, v, v)
	}
	return out, nil
}

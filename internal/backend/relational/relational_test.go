package relational

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/testutil"
)

func parse(t *testing.T, q string) ast.Expression {
	t.Helper()
	expr, err := query.NewTextParser(testutil.Metadata(), query.Options{}).Parse(q)
	require.NoError(t, err, q)
	return expr
}

func TestBuild(t *testing.T) {
	cases := []struct {
		query string
		cond  string
		args  []any
	}{
		{`Value Equal "Filtex"`, `"Value" = $1`, []any{"Filtex"}},
		{`Value Not Equal a`, `("Value" IS NULL OR "Value" <> $1)`, []any{"a"}},
		{`Status In Active,Inactive`, `"Status" IN ($1, $2)`, []any{"active", "inactive"}},
		{`NumberField Not In 1,2`, `("NumberField" IS NULL OR "NumberField" NOT IN ($1, $2))`, []any{1.0, 2.0}},
		{`NumberField > 3`, `"NumberField" > $1`, []any{3.0}},
		{`duration <= 1h`, `"duration" <= $1`, []any{int64(time.Hour)}},
		{`start_date >= 2024-01-01`, `"start_date" >= $1`, []any{"2024-01-01"}},
		{`created_at < 2024-01-01T10:00:00Z`, `"created_at" < $1`, []any{"2024-01-01T10:00:00.000000000Z"}},
		{`Flag Equal Enabled`, `"Flag" = $1`, []any{int64(1)}},
		{`Value Contain "50%_off"`, `LOWER("Value") LIKE $1 ESCAPE '\'`, []any{`%50\%\_off%`}},
		{`Value Start With AB`, `LOWER("Value") LIKE $1 ESCAPE '\'`, []any{"ab%"}},
		{`Value Not End With z`, `("Value" IS NULL OR LOWER("Value") NOT LIKE $1 ESCAPE '\')`, []any{"%z"}},
		{`NumberField Blank`, `"NumberField" IS NULL`, nil},
		{`created_at Not Blank`, `"created_at" IS NOT NULL`, nil},
		{`tags Blank`, `("tags" IS NULL OR "tags" = '[]')`, nil},
		{
			`Value1 Equal a And (Value2 Equal b Or Value2 Equal c)`,
			`("Value1" = $1 AND ("Value2" = $2 OR "Value2" = $3))`,
			[]any{"a", "b", "c"},
		},
	}
	b := New(Options{})
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			frag, err := b.Build(parse(t, tc.query))
			require.NoError(t, err)
			assert.Equal(t, tc.cond, frag.Condition)
			assert.Equal(t, tc.args, frag.Args)
			assert.Equal(t, 1+len(tc.args), frag.NextIndex)
		})
	}
}

func TestBuildPlaceholders(t *testing.T) {
	expr := parse(t, `Value1 Equal a Or Value2 In b,c`)

	frag, err := New(Options{StartIndex: 4}).Build(expr)
	require.NoError(t, err)
	assert.Equal(t, `("Value1" = $4 OR "Value2" IN ($5, $6))`, frag.Condition)
	assert.Equal(t, 7, frag.NextIndex)

	frag, err = New(Options{Placeholder: Question, Column: func(f string) string { return "t." + f }}).Build(expr)
	require.NoError(t, err)
	assert.Equal(t, `(t.Value1 = ? OR t.Value2 IN (?, ?))`, frag.Condition)
	assert.Equal(t, []any{"a", "b", "c"}, frag.Args)
}

func TestBuildCustomLower(t *testing.T) {
	b := New(Options{Lower: func(col string) string { return "fold(" + col + ")" }})

	frag, err := b.Build(parse(t, `Value Start With AB`))
	require.NoError(t, err)
	assert.Equal(t, `fold("Value") LIKE $1 ESCAPE '\'`, frag.Condition)

	frag, err = b.Build(parse(t, `Value Not Contain x`))
	require.NoError(t, err)
	assert.Equal(t, `("Value" IS NULL OR fold("Value") NOT LIKE $1 ESCAPE '\')`, frag.Condition)
}

func TestBuildEdgeCases(t *testing.T) {
	b := New(Options{})

	frag, err := b.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", frag.Condition)
	assert.Empty(t, frag.Args)

	frag, err = b.Build(&ast.OperatorExpression{Type: schema.TypeString, Field: "Value", Operator: schema.OpIn, Value: []any{}})
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", frag.Condition)

	_, err = b.Build(parse(t, `tags Contain red`))
	assert.ErrorIs(t, err, backend.ErrUnbuildable)

	_, err = b.Build(&ast.OperatorExpression{Type: schema.TypeString, Field: "Value", Operator: schema.OpLessThan, Value: "a"})
	var be *backend.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "relational", be.Backend)
	assert.Equal(t, schema.OpLessThan, be.Operator)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestParsePlaceholder(t *testing.T) {
	p, err := ParsePlaceholder("Question")
	require.NoError(t, err)
	assert.Equal(t, Question, p)
	_, err = ParsePlaceholder("colon")
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	for _, r := range testutil.Records() {
		for _, f := range testutil.Metadata().Fields() {
			stored := Encode(f.Type(), r[f.Name()])
			got, err := Decode(f.Type(), stored)
			require.NoError(t, err, f.Name())
			if r[f.Name()] == nil {
				assert.Nil(t, got)
				continue
			}
			if f.Type().IsArray() {
				assert.Equal(t, r[f.Name()], got, f.Name())
				continue
			}
			assert.True(t, ast.Equal(
				&ast.OperatorExpression{Type: f.Type(), Field: f.Name(), Operator: schema.OpEqual, Value: r[f.Name()]},
				&ast.OperatorExpression{Type: f.Type(), Field: f.Name(), Operator: schema.OpEqual, Value: got},
			), "%s: %v != %v", f.Name(), r[f.Name()], got)
		}
	}
	assert.Equal(t, `["red","blue"]`, Encode(schema.TypeStringArray, []any{"red", "blue"}))
}

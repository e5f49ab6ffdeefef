package filter

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/testutil"
)

func newFilter(buf *bytes.Buffer) *Filter {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(testutil.Metadata(), WithLogger(logger))
}

func TestParseSyntax(t *testing.T) {
	s, err := ParseSyntax(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, SyntaxJSON, s)

	_, err = ParseSyntax("yaml")
	assert.Error(t, err)
}

func TestFilterParsesBothSurfaces(t *testing.T) {
	var buf bytes.Buffer
	f := newFilter(&buf)

	fromText, err := f.Parse(SyntaxText, `Value Equal "Filtex"`)
	require.NoError(t, err)
	fromJSON, err := f.Parse(SyntaxJSON, `["Value","Equal","Filtex"]`)
	require.NoError(t, err)
	assert.True(t, ast.Equal(fromText, fromJSON))

	assert.Contains(t, buf.String(), "query accepted")
}

func TestFilterLogsRejections(t *testing.T) {
	var buf bytes.Buffer
	f := newFilter(&buf)

	err := f.Validate(SyntaxText, "Value Equal")
	require.Error(t, err)
	assert.True(t, query.IsValidateError(err, query.ErrCodeInvalidLastToken))

	_, err = f.ParseJSON([]byte(`["Xor",[["Value","Equal","a"]]]`))
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "query rejected")
	assert.Contains(t, out, "code=invalid-last-token")
	assert.Contains(t, out, "code=logic-could-not-be-parsed")
}

func TestFilterEmptyInput(t *testing.T) {
	f := New(testutil.Metadata())

	expr, err := f.ParseText("")
	require.NoError(t, err)
	assert.Nil(t, expr)
	assert.NoError(t, f.ValidateText(""))

	expr, err = f.ParseJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, expr)
}

func TestFilterTokenize(t *testing.T) {
	f := New(testutil.Metadata())
	tokens := f.TokenizeText("Value In a,b")
	assert.Len(t, tokens, 7)

	node, err := f.TokenizeJSON([]byte(`["Value","In",["a","b"]]`))
	require.NoError(t, err)
	clause, ok := node.(*query.ClauseNode)
	require.True(t, ok)
	assert.Len(t, clause.Values, 2)
}

func TestFilterWithMaxDepth(t *testing.T) {
	f := New(testutil.Metadata(), WithMaxDepth(2))
	_, err := f.ParseText("(((Value Equal a)))")
	assert.True(t, query.IsParseError(err, query.ErrCodeNestingTooDeep), "got %v", err)
}

func TestFilterIsSafeForConcurrentUse(t *testing.T) {
	f := New(testutil.Metadata())
	queries := []string{
		"Value1 Equal Test1 And Value2 Not-Equal Test2",
		"(NumberField > 1 Or NumberField Blank) And tags Contain red",
		"Status In Active,Inactive",
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := queries[i%len(queries)]
			for j := 0; j < 50; j++ {
				expr, err := f.ParseText(q)
				if assert.NoError(t, err) {
					assert.False(t, strings.Contains(ast.Format(expr), "<nil>"))
				}
			}
		}(i)
	}
	wg.Wait()
}

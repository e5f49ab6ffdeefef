package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filtex/internal/filter"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/testutil"
)

func TestTasksSuite(t *testing.T) {
	RunSuite(t, filepath.Join("testdata", "cases", "tasks.yaml"))
}

func TestLoadSuite(t *testing.T) {
	s, err := LoadSuite(filepath.Join("testdata", "cases", "tasks.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tasks", s.Name)
	assert.Equal(t, filepath.Join("testdata", "schema.cue"), s.Schema)
	assert.Equal(t, "json", s.Cases[3].Syntax)
	assert.True(t, s.Cases[0].Golden)

	cases, err := LoadCases(filepath.Join("testdata", "cases", "tasks.yaml"))
	require.NoError(t, err)
	assert.Len(t, cases, len(s.Cases))
}

func TestLoadSuiteErrors(t *testing.T) {
	cases := map[string]string{
		"missing name":     "schema: s.cue\ncases: [{name: a, query: x}]\n",
		"missing schema":   "name: s\ncases: [{name: a, query: x}]\n",
		"no cases":         "name: s\nschema: s.cue\n",
		"duplicate names":  "name: s\nschema: s.cue\ncases: [{name: a, query: x}, {name: a, query: y}]\n",
		"bad syntax":       "name: s\nschema: s.cue\ncases: [{name: a, syntax: sql, query: x}]\n",
		"golden and error": "name: s\nschema: s.cue\ncases: [{name: a, query: x, golden: true, expect_error: invalid-token}]\n",
		"unknown key":      "name: s\nschema: s.cue\nqueries: []\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "suite.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadSuite(path)
			assert.Error(t, err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	f := filter.New(testutil.Metadata())

	out := Evaluate(f, Case{Name: "ok", Query: "Value Equal a"})
	require.NoError(t, out.Err)
	require.NotNil(t, out.Expr)
	assert.Empty(t, out.Code)

	out = Evaluate(f, Case{Name: "bad", Query: "Value Equal"})
	assert.Equal(t, string(query.ErrCodeInvalidLastToken), out.Code)

	out = Evaluate(f, Case{Name: "json", Syntax: "json", Query: `["Value"]`})
	assert.Equal(t, "tokenize", out.Code)
}

func TestSnapshot(t *testing.T) {
	data, err := Snapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, "null\n", string(data))
}

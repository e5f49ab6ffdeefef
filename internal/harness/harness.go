package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/filter"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/schemaload"
)

// Outcome is the result of evaluating one case.
type Outcome struct {
	// Code is the error code, empty when the query was accepted.
	Code string
	Err  error
	Expr ast.Expression
}

// Evaluate validates and then parses c.
func Evaluate(f *filter.Filter, c Case) Outcome {
	syntax, err := c.syntax()
	if err != nil {
		return Outcome{Code: "syntax", Err: err}
	}
	if err := f.Validate(syntax, c.Query); err != nil {
		return Outcome{Code: query.Code(err), Err: err}
	}
	expr, err := f.Parse(syntax, c.Query)
	if err != nil {
		return Outcome{Code: query.Code(err), Err: fmt.Errorf("validated query failed to parse: %w", err)}
	}
	return Outcome{Expr: expr}
}

// Snapshot renders expr as indented JSON with a trailing newline. A nil
// expression renders as null.
func Snapshot(expr ast.Expression) ([]byte, error) {
	data, err := json.MarshalIndent(expr, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Run evaluates every case as a subtest. Golden files are read from
// testdata/golden relative to the test's working directory.
func Run(t *testing.T, f *filter.Filter, cases []Case) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			out := Evaluate(f, c)

			if c.ExpectError != "" {
				if out.Code != c.ExpectError {
					t.Fatalf("query %q: want error %s, got %q (%v)", c.Query, c.ExpectError, out.Code, out.Err)
				}
				return
			}
			if out.Err != nil {
				t.Fatalf("query %q: %v", c.Query, out.Err)
			}
			if !c.Golden {
				return
			}

			data, err := Snapshot(out.Expr)
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			g.Assert(t, c.Name, data)
		})
	}
}

// RunSuite loads the suite at path and its schema, then runs it.
func RunSuite(t *testing.T, path string) {
	t.Helper()

	s, err := LoadSuite(path)
	if err != nil {
		t.Fatalf("load suite: %v", err)
	}
	md, err := schemaload.Load(s.Schema)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	Run(t, filter.New(md, filter.WithLogger(logger)), s.Cases)
}

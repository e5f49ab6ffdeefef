package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/filter"
	"github.com/roach88/filtex/internal/token"
)

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a query into an expression tree",
		Long: `Validate and parse a query. Text output renders the tree back in the
text syntax; JSON output carries the tree itself.

Example:
  filtex parse --schema tasks.cue 'Status In Open,Closed And Priority > 2'
  filtex parse --schema tasks.cue --syntax json '["Status","in",["Open"]]'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, cmd, args)
		},
	}
}

func runParse(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	_, expr, err := parseArgs(opts, cmd, args)
	if err != nil {
		return formatter.Fail("parse failed", err)
	}
	if expr == nil {
		return formatter.Success(nil, "(no filter)")
	}
	return formatter.Success(expr, ast.Format(expr))
}

// parseArgs loads the schema, then validates and parses the query.
func parseArgs(opts *RootOptions, cmd *cobra.Command, args []string) (*filter.Filter, ast.Expression, error) {
	f, err := opts.loadFilter()
	if err != nil {
		return nil, nil, err
	}
	q, err := queryArg(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	if err := f.Validate(opts.syntax(), q); err != nil {
		return nil, nil, err
	}
	expr, err := f.Parse(opts.syntax(), q)
	return f, expr, err
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <query>",
		Short: "Check a query without building a tree",
		Long: `Validate a query against the schema. Exits 1 with the error code when
the query is rejected.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args)
		},
	}
}

// ValidationResult is the validate command's JSON payload.
type ValidationResult struct {
	Valid bool `json:"valid"`
}

func runValidate(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	f, err := opts.loadFilter()
	if err != nil {
		return formatter.Fail("load schema", err)
	}
	q, err := queryArg(cmd, args)
	if err != nil {
		return formatter.Fail("read query", err)
	}
	if err := f.Validate(opts.syntax(), q); err != nil {
		return formatter.Fail("validation failed", err)
	}
	return formatter.Success(ValidationResult{Valid: true}, "valid")
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <query>",
		Short: "Show how a query is tokenized",
		Long: `Print the classified tokens of a query, including rejected ones and the
reason they were rejected. Tokenizing never fails for text queries.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(rootOpts, cmd, args)
		},
	}
}

func runTokens(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	f, err := opts.loadFilter()
	if err != nil {
		return formatter.Fail("load schema", err)
	}
	q, err := queryArg(cmd, args)
	if err != nil {
		return formatter.Fail("read query", err)
	}

	if opts.syntax() == filter.SyntaxJSON {
		node, err := f.TokenizeJSON([]byte(q))
		if err != nil {
			return formatter.Fail("tokenize failed", err)
		}
		return formatter.Success(node, fmt.Sprintf("%+v", node))
	}

	tokens := f.TokenizeText(q)
	return formatter.Success(tokens, tokenTable(tokens))
}

func tokenTable(tokens []token.Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%4d  %-22s %q", t.Pos, t.Type, t.Text)
		if t.Rejected() {
			fmt.Fprintf(&b, "  rejected: %s", t.Reject.Message)
		}
	}
	return b.String()
}

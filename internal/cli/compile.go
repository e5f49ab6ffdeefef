package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/filtex/internal/backend/docstore"
	"github.com/roach88/filtex/internal/backend/relational"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Placeholder string
	Start       int
}

// SQLResult is the sql command's JSON payload.
type SQLResult struct {
	Condition string `json:"condition"`
	Args      []any  `json:"args"`
	NextIndex int    `json:"next_index"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Compile a query to a parameterized SQL condition",
		Long: `Compile a query to a SQL WHERE condition with positional arguments.

Example:
  filtex sql --schema tasks.cue --start 3 'Title Contain docs'
  filtex sql --schema tasks.cue --placeholder question 'Done Equal Yes'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Placeholder, "placeholder", "dollar", "placeholder style (dollar|question)")
	cmd.Flags().IntVar(&opts.Start, "start", 1, "index of the first $N placeholder")

	return cmd
}

func runSQL(opts *SQLOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	placeholder, err := relational.ParsePlaceholder(opts.Placeholder)
	if err != nil {
		return formatter.Fail("invalid flag", err)
	}
	_, expr, err := parseArgs(opts.RootOptions, cmd, args)
	if err != nil {
		return formatter.Fail("parse failed", err)
	}

	frag, err := relational.New(relational.Options{Placeholder: placeholder, StartIndex: opts.Start}).Build(expr)
	if err != nil {
		return formatter.Fail("compile failed", err)
	}

	result := SQLResult{Condition: frag.Condition, Args: frag.Args, NextIndex: frag.NextIndex}
	if result.Args == nil {
		result.Args = []any{}
	}
	text := frag.Condition
	if len(frag.Args) > 0 {
		text += fmt.Sprintf("\n-- args: %v", frag.Args)
	}
	return formatter.Success(result, text)
}

// NewMongoCommand creates the mongo command.
func NewMongoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mongo <query>",
		Short: "Compile a query to a document-store filter",
		Long: `Compile a query to a MongoDB filter document, printed as relaxed
extended JSON.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMongo(rootOpts, cmd, args)
		},
	}
}

func runMongo(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	_, expr, err := parseArgs(opts, cmd, args)
	if err != nil {
		return formatter.Fail("parse failed", err)
	}
	doc, err := docstore.Build(expr)
	if err != nil {
		return formatter.Fail("compile failed", err)
	}
	data, err := docstore.MarshalExtJSON(doc)
	if err != nil {
		return formatter.Fail("encode filter", err)
	}
	return formatter.Success(json.RawMessage(data), string(data))
}

// Package cli implements the filtex command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/filtex/internal/filter"
	"github.com/roach88/filtex/internal/schemaload"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Schema  string // path to a .cue, .yaml or .json schema
	Syntax  string // "text" | "json"

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the filtex CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "filtex",
		Short: "filtex - schema-driven filter queries",
		Long: `Parse, validate and compile filter queries against a declared schema.

Queries are written in the text form

  Status In Active,Inactive And (Priority > 2 Or Priority Blank)

or the JSON tuple form

  ["and", [["Status","in",["Active","Inactive"]], ["Priority",">",2]]]`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := filter.ParseSyntax(opts.Syntax); err != nil {
				return err
			}
			opts.setupLogging(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Schema, "schema", "s", "", "schema file (.cue, .yaml, .json)")
	cmd.PersistentFlags().StringVar(&opts.Syntax, "syntax", "text", "query syntax (text|json)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTokensCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewMongoCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// setupLogging logs to w at Debug when verbose, Warn otherwise, so that
// rejected queries are reported without -v.
func (o *RootOptions) setupLogging(w io.Writer) {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

func (o *RootOptions) syntax() filter.Syntax {
	s, err := filter.ParseSyntax(o.Syntax)
	if err != nil {
		return filter.SyntaxText
	}
	return s
}

// loadFilter loads the schema named by --schema.
func (o *RootOptions) loadFilter() (*filter.Filter, error) {
	if strings.TrimSpace(o.Schema) == "" {
		return nil, &schemaload.LoadError{Code: schemaload.ErrCodeNotFound, Message: "--schema is required"}
	}
	md, err := schemaload.Load(o.Schema)
	if err != nil {
		return nil, err
	}
	o.log().Debug("schema loaded", "path", o.Schema, "fields", len(md.Fields()))
	return filter.New(md, filter.WithLogger(o.log())), nil
}

// queryArg joins the positional arguments so unquoted text queries work.
// "-" reads the query from stdin.
func queryArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, " "), nil
}

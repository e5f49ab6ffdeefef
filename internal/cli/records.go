package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend/memory"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/sqlstore"
)

// RecordOptions holds flags for the commands that read or store records.
type RecordOptions struct {
	*RootOptions
	Records  string
	Database string
	Table    string
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match <query>",
		Short: "Filter a records file in memory",
		Long: `Evaluate a query against every record of a JSON or YAML file holding a
list of objects keyed by field name, and print the matching records.

Example:
  filtex match --schema tasks.cue --records tasks.json 'Done Equal No'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Records, "records", "", "records file, JSON or YAML (required)")
	_ = cmd.MarkFlagRequired("records")

	return cmd
}

func runMatch(opts *RecordOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	_, expr, err := parseArgs(opts.RootOptions, cmd, args)
	if err != nil {
		return formatter.Fail("parse failed", err)
	}
	pred, err := memory.Build(expr)
	if err != nil {
		return formatter.Fail("compile failed", err)
	}
	records, err := readRecords(opts.Records)
	if err != nil {
		return formatter.Fail("read records", err)
	}

	matched := memory.Filter(pred, records)
	opts.log().Debug("records matched", "total", len(records), "matched", len(matched))
	return emitRecords(formatter, matched)
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Query a SQLite collection",
		Long: `Compile a query to SQL and run it against a collection created by
"filtex import".

Example:
  filtex find --schema tasks.cue --db tasks.db 'Due < 2024-06-01'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "records", "collection table name")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runFind(opts *RecordOptions, cmd *cobra.Command, args []string) error {
	formatter := opts.formatter(cmd)

	f, expr, err := parseArgs(opts.RootOptions, cmd, args)
	if err != nil {
		return formatter.Fail("parse failed", err)
	}

	st, err := sqlstore.Open(opts.Database, sqlstore.WithLogger(opts.log()))
	if err != nil {
		return formatter.Fail("open database", err)
	}
	defer st.Close()

	records, err := st.Find(cmd.Context(), opts.Table, f.Metadata(), expr)
	if err != nil {
		return formatter.Fail("find failed", err)
	}
	return emitRecords(formatter, encodeRecords(f.Metadata(), records))
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a records file into a SQLite collection",
		Long: `Create the collection table for the schema if needed and insert every
record of a JSON or YAML file.

Example:
  filtex import --schema tasks.cue --db tasks.db --records tasks.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Records, "records", "", "records file, JSON or YAML (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "records", "collection table name")
	_ = cmd.MarkFlagRequired("records")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

// ImportResult is the import command's JSON payload.
type ImportResult struct {
	Table    string `json:"table"`
	Inserted int    `json:"inserted"`
}

func runImport(opts *RecordOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	f, err := opts.loadFilter()
	if err != nil {
		return formatter.Fail("load schema", err)
	}
	records, err := readRecords(opts.Records)
	if err != nil {
		return formatter.Fail("read records", err)
	}

	st, err := sqlstore.Open(opts.Database, sqlstore.WithLogger(opts.log()))
	if err != nil {
		return formatter.Fail("open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if err := st.CreateCollection(ctx, opts.Table, f.Metadata()); err != nil {
		return formatter.Fail("create collection", err)
	}
	for i, r := range records {
		if _, err := st.Insert(ctx, opts.Table, f.Metadata(), r); err != nil {
			return formatter.Fail(fmt.Sprintf("insert record %d", i), err)
		}
	}

	result := ImportResult{Table: opts.Table, Inserted: len(records)}
	return formatter.Success(result, fmt.Sprintf("inserted %d record(s) into %s", result.Inserted, result.Table))
}

// readRecords reads a list of objects from a .yaml/.yml file or, for any
// other extension, a JSON file.
func readRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var records []map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse records YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("parse records JSON: %w", err)
		}
	}
	if records == nil {
		records = []map[string]any{}
	}
	return records, nil
}

// encodeRecords renders canonical values the way expression trees encode
// them: dates as 2006-01-02, times as duration strings.
func encodeRecords(md *schema.Metadata, records []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		enc := make(map[string]any, len(r))
		for k, v := range r {
			enc[k] = ast.EncodeValue(md.GetFieldType(k), v)
		}
		out = append(out, enc)
	}
	return out
}

func emitRecords(formatter *OutputFormatter, records []map[string]any) error {
	if formatter.Format == "json" {
		return formatter.Success(records, "")
	}
	var b strings.Builder
	for i, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return formatter.Fail("encode record", err)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.Write(line)
	}
	if len(records) == 0 {
		return formatter.Success(records, "(no records)")
	}
	return formatter.Success(records, b.String())
}

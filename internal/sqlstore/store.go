// Package sqlstore keeps schema-typed records in SQLite and answers filter
// expressions against them.
//
// Each collection is one table with an autoincrement "_id" column plus one
// column per schema field. Values are stored in the relational encoding
// (see relational.Encode), so a relational.Fragment built with Question
// placeholders runs unchanged as the WHERE clause. Find returns records in
// insertion order.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend/relational"
	"github.com/roach88/filtex/internal/cast"
	"github.com/roach88/filtex/internal/schema"
)

const idColumn = "_id"

// driverName is go-sqlite3 with foldLower registered on every connection.
// SQLite's built-in LOWER folds ASCII only.
const driverName = "sqlite3_filtex"

const foldLower = "filtex_lower"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(foldLower, lowerText, true)
		},
	})
}

// lowerText lowers TEXT the way relational lowers LIKE patterns; other
// values pass through.
func lowerText(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		return strings.ToLower(string(s))
	}
	return v
}

func lowerColumn(col string) string {
	return foldLower + "(" + col + ")"
}

// Store is a SQLite database of record collections.
type Store struct {
	db      *sql.DB
	dialect goqu.DialectWrapper
	builder *relational.Builder
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for statement tracing. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open creates or opens a SQLite database at path. ":memory:" opens a
// private in-memory database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer and each :memory:
	// connection is its own database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{
		db:      db,
		dialect: goqu.Dialect("sqlite3"),
		builder: relational.New(relational.Options{Placeholder: relational.Question, Lower: lowerColumn}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// CreateCollection creates the table for md if it does not exist.
func (s *Store) CreateCollection(ctx context.Context, name string, md *schema.Metadata) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("collection name is required")
	}
	cols := []string{relational.QuoteIdent(idColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT"}
	for _, f := range md.Fields() {
		cols = append(cols, relational.QuoteIdent(f.Name())+" "+columnType(f.Type()))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", relational.QuoteIdent(name), strings.Join(cols, ", "))

	s.logger.Debug("create collection", "collection", name, "sql", stmt)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

func columnType(t schema.FieldType) string {
	if t.IsArray() {
		return "TEXT"
	}
	switch t {
	case schema.TypeNumber:
		return "REAL"
	case schema.TypeBoolean, schema.TypeTime:
		return "INTEGER"
	}
	return "TEXT"
}

// Insert casts record to md's field types and stores it. Keys must be
// field names or labels; missing fields are stored as NULL. Returns the
// new row id.
func (s *Store) Insert(ctx context.Context, name string, md *schema.Metadata, record map[string]any) (int64, error) {
	row := goqu.Record{}
	for key, v := range record {
		f, ok := md.Field(key)
		if !ok {
			return 0, fmt.Errorf("insert into %s: unknown field %q", name, key)
		}
		if v == nil {
			row[f.Name()] = nil
			continue
		}
		c, ok := cast.Cast(f.Type(), v)
		if !ok {
			return 0, fmt.Errorf("insert into %s: field %q: cannot use %v as %s", name, f.Name(), v, f.Type())
		}
		row[f.Name()] = relational.Encode(f.Type(), c)
	}

	query, args, err := s.dialect.Insert(name).Rows(row).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	s.logger.Debug("insert", "collection", name, "sql", query)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", name, err)
	}
	return res.LastInsertId()
}

// Find returns the records matching expr in insertion order. A nil
// expression returns every record. Records are keyed by field name and
// hold canonical values.
func (s *Store) Find(ctx context.Context, name string, md *schema.Metadata, expr ast.Expression) ([]map[string]any, error) {
	frag, err := s.builder.Build(expr)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}

	fields := md.Fields()
	cols := make([]any, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, goqu.C(f.Name()))
	}
	query, args, err := s.dialect.From(name).
		Select(cols...).
		Where(goqu.L(frag.Condition, frag.Args...)).
		Order(goqu.C(idColumn).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	s.logger.Debug("find", "collection", name, "sql", query, "args", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	records := []map[string]any{}
	for rows.Next() {
		raw := make([]any, len(fields))
		ptrs := make([]any, len(fields))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		rec := make(map[string]any, len(fields))
		for i, f := range fields {
			v, err := relational.Decode(f.Type(), raw[i])
			if err != nil {
				return nil, fmt.Errorf("read %s.%s: %w", name, f.Name(), err)
			}
			rec[f.Name()] = v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return records, nil
}

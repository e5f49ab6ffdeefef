package sqlstore

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend/memory"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/testutil"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	md := testutil.Metadata()
	require.NoError(t, s.CreateCollection(ctx, "items", md))
	for _, r := range testutil.Records() {
		_, err := s.Insert(ctx, "items", md, r)
		require.NoError(t, err)
	}
	return s
}

func parse(t *testing.T, q string) ast.Expression {
	t.Helper()
	expr, err := query.NewTextParser(testutil.Metadata(), query.Options{}).Parse(q)
	require.NoError(t, err, q)
	return expr
}

func names(records []map[string]any) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r["Value"].(string))
	}
	return out
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	md := testutil.Metadata()
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.CreateCollection(context.Background(), "items", md))
		require.NoError(t, s.Close())
	}
}

func TestFindRoundTripsValues(t *testing.T) {
	s := seeded(t)
	got, err := s.Find(context.Background(), "items", testutil.Metadata(), nil)
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "Filtex", first["Value"])
	assert.Equal(t, 10.0, first["NumberField"])
	assert.Equal(t, true, first["Flag"])
	assert.Equal(t, 90*time.Minute, first["duration"])
	assert.True(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC).Equal(first["start_date"].(time.Time)))
	assert.True(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC).Equal(first["created_at"].(time.Time)))
	assert.Equal(t, []any{"red", "blue"}, first["tags"])

	assert.Nil(t, got[1]["created_at"])
	assert.Equal(t, []any{}, got[1]["tags"])
	assert.Nil(t, got[2]["NumberField"])
}

// Results agree with the in-memory predicate over the same records.
func TestFindAgreesWithMemory(t *testing.T) {
	s := seeded(t)
	queries := []string{
		`Value Equal "Filtex"`,
		`Value Not Equal Filtex`,
		`Value Contain "ER"`,
		`Value Start With tok`,
		`Value Not End With ex`,
		`NumberField > 10`,
		`NumberField Blank`,
		`NumberField Not In 10`,
		`Flag Equal Disabled`,
		`Status In Active`,
		`start_date < 2024-01-01`,
		`duration >= 1h30m`,
		`created_at > 2024-01-01T00:00:00Z`,
		`created_at Blank`,
		`tags Blank`,
		`tags Not Blank`,
		`(Value1 Equal Test1 Or Value2 Equal Test2) And Flag Equal Enabled`,
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			expr := parse(t, q)
			p, err := memory.Build(expr)
			require.NoError(t, err)

			got, err := s.Find(context.Background(), "items", testutil.Metadata(), expr)
			require.NoError(t, err)
			assert.Equal(t, names(memory.Filter(p, testutil.Records())), names(got))
		})
	}
}

// Text matching folds non-ASCII letters the same way the in-memory
// predicate does.
func TestFindFoldsUnicode(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	md := testutil.Metadata()
	_, err := s.Insert(ctx, "items", md, map[string]any{"Value": "Éclair"})
	require.NoError(t, err)

	records := append(testutil.Records(), map[string]any{"Value": "Éclair"})
	for _, q := range []string{`Value Start With é`, `Value Contain "ÉCL"`, `Value Not Contain é`} {
		t.Run(q, func(t *testing.T) {
			expr := parse(t, q)
			p, err := memory.Build(expr)
			require.NoError(t, err)

			got, err := s.Find(ctx, "items", md, expr)
			require.NoError(t, err)
			assert.Equal(t, names(memory.Filter(p, records)), names(got))
		})
	}

	got, err := s.Find(ctx, "items", md, parse(t, `Value Start With é`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Éclair"}, names(got))
}

func TestFindUnbuildable(t *testing.T) {
	s := seeded(t)
	_, err := s.Find(context.Background(), "items", testutil.Metadata(), parse(t, `tags Contain red`))
	assert.Error(t, err)
}

func TestInsertErrors(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	md := testutil.Metadata()

	_, err := s.Insert(ctx, "items", md, map[string]any{"Nope": 1})
	assert.ErrorContains(t, err, "unknown field")

	_, err = s.Insert(ctx, "items", md, map[string]any{"NumberField": "many"})
	assert.ErrorContains(t, err, "cannot use")

	id, err := s.Insert(ctx, "items", md, map[string]any{"Number Field": "4", "Value": "Labelled"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestStatementsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(":memory:", WithLogger(logger))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateCollection(context.Background(), "items", testutil.Metadata()))
	assert.Contains(t, buf.String(), "create collection")
}

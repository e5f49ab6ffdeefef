package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func titles(t *testing.T, data any) []string {
	t.Helper()
	rows, ok := data.([]any)
	require.True(t, ok, "data is %T", data)
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.(map[string]any)["title"].(string))
	}
	return out
}

func TestParseCommand(t *testing.T) {
	out, err := execute(t, "parse", "-s", testSchema, "priority", ">", "2", "And", "done", "Equal", "Yes")
	require.NoError(t, err)
	assert.Equal(t, "priority Greater Than 2 And done Equal true\n", out)

	out, err = execute(t, "parse", "-s", testSchema, "--format", "json", "--syntax", "json", `["title","equal","a"]`)
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{
		"type":     "string",
		"field":    "title",
		"operator": "equal",
		"value":    "a",
	}, resp.Data)
}

func TestParseCommandEmptyQuery(t *testing.T) {
	out, err := execute(t, "parse", "-s", testSchema, "")
	require.NoError(t, err)
	assert.Equal(t, "(no filter)\n", out)
}

func TestParseCommandStdin(t *testing.T) {
	cmd := NewRootCommand()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetErr(&strings.Builder{})
	cmd.SetIn(strings.NewReader("title Start With W\n"))
	cmd.SetArgs([]string{"parse", "-s", testSchema, "-"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "title Start With \"W\"\n", out.String())
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "-s", testSchema, "status In Open,Closed")
	require.NoError(t, err)
	assert.Equal(t, "valid\n", out)

	out, err = execute(t, "validate", "-s", testSchema, "--format", "json", "title Equal")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid-last-token", resp.Error.Code)
	assert.NotEmpty(t, resp.TraceID)
}

func TestValidateCommandSchemaErrors(t *testing.T) {
	out, err := execute(t, "validate", "--format", "json", "title Equal a")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "E002", decodeResponse(t, out).Error.Code)

	out, err = execute(t, "validate", "--format", "json", "-s", "testdata/missing.cue", "title Equal a")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "E002", decodeResponse(t, out).Error.Code)
}

func TestTokensCommand(t *testing.T) {
	out, err := execute(t, "tokens", "-s", testSchema, "owner Equal me")
	require.NoError(t, err)
	assert.Contains(t, out, `"owner"`)
	assert.Contains(t, out, "rejected:")

	out, err = execute(t, "tokens", "-s", testSchema, "--syntax", "json", "--format", "json", `["title"]`)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "tokenize", decodeResponse(t, out).Error.Code)
}

func TestSQLCommand(t *testing.T) {
	out, err := execute(t, "sql", "-s", testSchema, "--format", "json", "status In Open,Closed")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, map[string]any{
		"condition":  `"status" IN ($1, $2)`,
		"args":       []any{"open", "closed"},
		"next_index": float64(3),
	}, resp.Data)

	out, err = execute(t, "sql", "-s", testSchema, "--start", "5", "done Equal Yes")
	require.NoError(t, err)
	assert.Equal(t, "\"done\" = $5\n-- args: [1]\n", out)

	out, err = execute(t, "sql", "-s", testSchema, "--placeholder", "question", "due Blank Or priority < 2")
	require.NoError(t, err)
	assert.Equal(t, "(\"due\" IS NULL OR \"priority\" < ?)\n-- args: [2]\n", out)

	out, err = execute(t, "sql", "-s", testSchema, "--format", "json", "title Blank")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "invalid-token", decodeResponse(t, out).Error.Code)

	_, err = execute(t, "sql", "-s", testSchema, "--placeholder", "colon", "due Blank")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMongoCommand(t *testing.T) {
	out, err := execute(t, "mongo", "-s", testSchema, "title Start With W")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":{"$regularExpression":{"pattern":"^W","options":"i"}}}`, out)

	out, err = execute(t, "mongo", "-s", testSchema, "--format", "json", "priority >= 2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"priority": map[string]any{"$gte": float64(2)}}, decodeResponse(t, out).Data)
}

func TestMatchCommand(t *testing.T) {
	for _, file := range []string{"testdata/records.json", "testdata/records.yaml"} {
		t.Run(filepath.Ext(file), func(t *testing.T) {
			out, err := execute(t, "match", "-s", testSchema, "--records", file, "--format", "json", "done Equal No")
			require.NoError(t, err)
			got := titles(t, decodeResponse(t, out).Data)
			assert.Contains(t, got, "Write docs")
			assert.NotContains(t, got, "Fix bug")
		})
	}

	out, err := execute(t, "match", "-s", testSchema, "--records", "testdata/records.json", "due Blank")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"title":"Fix bug"`)

	out, err = execute(t, "match", "-s", testSchema, "--records", "testdata/records.json", "title Equal nobody")
	require.NoError(t, err)
	assert.Equal(t, "(no records)\n", out)
}

func TestMatchCommandRequiresRecords(t *testing.T) {
	_, err := execute(t, "match", "-s", testSchema, "due Blank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "records")
}

func TestImportThenFind(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tasks.db")

	out, err := execute(t, "import", "-s", testSchema, "--db", db, "--records", "testdata/records.json", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"table": "records", "inserted": float64(3)}, decodeResponse(t, out).Data)

	queries := map[string][]string{
		"priority > 2":                             {"Write docs", "Fix bug"},
		"done Equal No":                            {"Write docs", "Plan sprint"},
		"due < 2024-06-01":                         {"Write docs"},
		"estimate >= 1h And tags Not Blank":        {"Write docs"},
		"title Contain SPRINT Or status In Closed": {"Fix bug", "Plan sprint"},
		"priority Not In 3":                        {"Fix bug", "Plan sprint"},
	}
	for q, want := range queries {
		t.Run(q, func(t *testing.T) {
			found, err := execute(t, "find", "-s", testSchema, "--db", db, "--format", "json", q)
			require.NoError(t, err)
			assert.Equal(t, want, titles(t, decodeResponse(t, found).Data))

			matched, err := execute(t, "match", "-s", testSchema, "--records", "testdata/records.json", "--format", "json", q)
			require.NoError(t, err)
			assert.Equal(t, want, titles(t, decodeResponse(t, matched).Data))
		})
	}
}

func TestFindCommandEncodesValues(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tasks.db")
	_, err := execute(t, "import", "-s", testSchema, "--db", db, "--records", "testdata/records.yaml")
	require.NoError(t, err)

	out, err := execute(t, "find", "-s", testSchema, "--db", db, "--format", "json", "title Equal \"Write docs\"")
	require.NoError(t, err)
	rows := decodeResponse(t, out).Data.([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "2024-05-20", row["due"])
	assert.Equal(t, "2h0m0s", row["estimate"])
	assert.Equal(t, []any{"docs"}, row["tags"])
	assert.Equal(t, false, row["done"])
}

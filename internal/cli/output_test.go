package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/schemaload"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"}, "ignored")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.NotContains(t, buf.String(), "ignored")

	id, err := uuid.Parse(resp.TraceID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestOutputFormatter_TraceIDIsStable(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(nil, ""))
	require.NoError(t, formatter.Error("E001", "boom", nil))

	dec := json.NewDecoder(buf)
	var first, second CLIResponse
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.NotEmpty(t, first.TraceID)
	assert.Equal(t, first.TraceID, second.TraceID)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "json",
		Writer:  buf,
		TraceID: "fixed",
	}

	err := formatter.Error("invalid-token", "unknown field", map[string]any{"pos": 0})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid-token", resp.Error.Code)
	assert.Equal(t, "unknown field", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
	assert.Equal(t, "fixed", resp.TraceID)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(42, "answer"))
	assert.Equal(t, "answer\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success(42, ""))
	assert.Equal(t, "42\n", buf.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E002", "schema not found", "detail"))
	assert.Equal(t, "Error [E002]: schema not found\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E002", "schema not found", "detail"))
	assert.Contains(t, buf.String(), "Details: detail")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "rejected")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "rejected", errors.New("inner")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "outer: rejected: inner", wrapped.Error())
}

func TestClassify(t *testing.T) {
	t.Run("load error", func(t *testing.T) {
		code, exit, details := classify(&schemaload.LoadError{Code: schemaload.ErrCodeNotFound, Message: "missing"})
		assert.Equal(t, schemaload.ErrCodeNotFound, code)
		assert.Equal(t, ExitCommandError, exit)
		assert.Nil(t, details)
	})

	t.Run("query error", func(t *testing.T) {
		err := &query.ParseError{Code: query.ErrCodeNestingTooDeep, Message: "too deep", Path: "$[1][0]"}
		code, exit, details := classify(fmt.Errorf("parse: %w", err))
		assert.Equal(t, "nesting-too-deep", code)
		assert.Equal(t, map[string]any{"path": "$[1][0]"}, details)
		assert.Equal(t, ExitFailure, exit)
	})

	t.Run("unbuildable", func(t *testing.T) {
		expr := &ast.OperatorExpression{Type: schema.TypeStringArray, Field: "tags", Operator: schema.OpGreaterThan, Value: "x"}
		code, exit, details := classify(backend.Unbuildable("memory", expr))
		assert.Equal(t, ErrCodeUnbuildable, code)
		assert.Equal(t, ExitFailure, exit)
		assert.Equal(t, map[string]any{
			"backend":  "memory",
			"field":    "tags",
			"operator": "greater-than",
			"type":     schema.TypeStringArray,
		}, details)
	})

	t.Run("other", func(t *testing.T) {
		code, exit, details := classify(errors.New("disk full"))
		assert.Equal(t, ErrCodeGeneric, code)
		assert.Equal(t, ExitCommandError, exit)
		assert.Nil(t, details)
	})
}

package schemaload

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filtex/internal/schema"
)

func TestLoadFormatsAgree(t *testing.T) {
	var loaded []*schema.Metadata
	for _, name := range []string{"tasks.cue", "tasks.yaml", "tasks.json"} {
		md, err := Load(filepath.Join("testdata", name))
		require.NoError(t, err, name)
		loaded = append(loaded, md)
	}

	for _, md := range loaded {
		require.Len(t, md.Fields(), 7)

		due, ok := md.Field("due date")
		require.True(t, ok)
		assert.Equal(t, schema.TypeDate, due.Type())
		assert.True(t, due.Allows(schema.OpBlank))

		tags, ok := md.Field("tags")
		require.True(t, ok)
		assert.Equal(t, schema.TypeStringArray, tags.Type())

		done, ok := md.Field("Done")
		require.True(t, ok)
		v, ok := done.Resolve("yes")
		require.True(t, ok)
		assert.Equal(t, true, v)

		status, ok := md.Field("status")
		require.True(t, ok)
		v, ok = status.Resolve("closed")
		require.True(t, ok)
		assert.Equal(t, "closed", v)
		assert.False(t, status.Allows(schema.OpContain))
	}

	assert.Equal(t, loaded[0].Spellings(), loaded[1].Spellings())
	assert.Equal(t, loaded[0].Spellings(), loaded[2].Spellings())
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		file string
		code string
	}{
		{"missing.cue", ErrCodeNotFound},
		{"schema.toml", ErrCodeFormat},
		{"broken.cue", ErrCodeSyntax},
		{"undefined_lookup.yaml", ErrCodeInvalidSchema},
	}
	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", tc.file))
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le), "got %T", err)
			assert.Equal(t, tc.code, le.Code)
		})
	}
}

func TestDecodeCUEPositions(t *testing.T) {
	_, err := DecodeCUE([]byte("fields: [\n\t{name: \"a\"\n"), "inline.cue")
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeSyntax, le.Code)
	assert.True(t, le.Pos.IsValid())
	assert.True(t, strings.HasPrefix(err.Error(), "inline.cue:"), err.Error())

	_, err = DecodeCUE([]byte("fields: [{name: 1}]"), "inline.cue")
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeSyntax, le.Code)
}

func TestDecodeCUEMissingFields(t *testing.T) {
	_, err := DecodeCUE([]byte(`lookups: {}`), "empty.cue")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeInvalidSchema, le.Code)
}

func TestDecodeCUELookupScalars(t *testing.T) {
	src := `
fields: [{name: "level", label: "Level", type: "number", lookup: "levels"}]
lookups: levels: [
	{name: "Low", value: 1},
	{name: "High", value: 2.5},
	{name: "Unset", value: null},
]
`
	decl, err := DecodeCUE([]byte(src), "levels.cue")
	require.NoError(t, err)
	require.Len(t, decl.Lookups["levels"], 3)
	assert.Equal(t, 1.0, decl.Lookups["levels"][0].Value)
	assert.Equal(t, 2.5, decl.Lookups["levels"][1].Value)
	assert.Nil(t, decl.Lookups["levels"][2].Value)

	_, err = DecodeCUE([]byte(`
fields: []
lookups: bad: [{name: "X", value: {a: 1}}]
`), "bad.cue")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeInvalidSchema, le.Code)
}

func TestDecodeYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := DecodeYAML([]byte("fields: []\ncolumns: []\n"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeSyntax, le.Code)
}

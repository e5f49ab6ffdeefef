package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/schema"
	"github.com/roach88/filtex/internal/testutil"
)

func build(t *testing.T, q string) bson.M {
	t.Helper()
	expr, err := query.NewTextParser(testutil.Metadata(), query.Options{}).Parse(q)
	require.NoError(t, err, q)
	doc, err := Build(expr)
	require.NoError(t, err, q)
	return doc
}

func TestBuild(t *testing.T) {
	cases := []struct {
		query string
		want  bson.M
	}{
		{`Value Equal "Filtex"`, bson.M{"Value": bson.M{"$eq": "Filtex"}}},
		{`Value Not Equal a`, bson.M{"Value": bson.M{"$ne": "a"}}},
		{`Status In Active,Inactive`, bson.M{"Status": bson.M{"$in": bson.A{"active", "inactive"}}}},
		{`NumberField Not In 1`, bson.M{"NumberField": bson.M{"$nin": bson.A{1.0}}}},
		{`NumberField >= 2.5`, bson.M{"NumberField": bson.M{"$gte": 2.5}}},
		{`duration < 1h`, bson.M{"duration": bson.M{"$lt": int64(time.Hour)}}},
		{`start_date > 2024-01-01`, bson.M{"start_date": bson.M{"$gt": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}},
		{`Value Contain "a.b"`, bson.M{"Value": primitive.Regex{Pattern: `a\.b`, Options: "i"}}},
		{`Value Not Start With x`, bson.M{"Value": bson.M{"$not": primitive.Regex{Pattern: "^x", Options: "i"}}}},
		{`Value End With y`, bson.M{"Value": primitive.Regex{Pattern: "y$", Options: "i"}}},
		{`tags Contain red`, bson.M{"tags": bson.M{"$elemMatch": bson.M{"$eq": "red"}}}},
		{`tags Not Contain red`, bson.M{"tags": bson.M{"$not": bson.M{"$elemMatch": bson.M{"$eq": "red"}}}}},
		{`tags Blank`, bson.M{"tags": bson.M{"$in": bson.A{nil, bson.A{}}}}},
		{`NumberField Not Blank`, bson.M{"NumberField": bson.M{"$nin": bson.A{nil}}}},
		{
			`Value1 Equal a Or Value2 Equal b`,
			bson.M{"$or": bson.A{
				bson.M{"Value1": bson.M{"$eq": "a"}},
				bson.M{"Value2": bson.M{"$eq": "b"}},
			}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, build(t, tc.query))
		})
	}
}

func TestBuildNested(t *testing.T) {
	doc := build(t, `(Value Equal a Or Value Equal b) And Flag Equal Enabled`)
	and, ok := doc["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)
	assert.Contains(t, and[0].(bson.M), "$or")
	assert.Equal(t, bson.M{"Flag": bson.M{"$eq": true}}, and[1])
}

func TestBuildNil(t *testing.T) {
	doc, err := Build(nil)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestBuildUnbuildable(t *testing.T) {
	_, err := Build(&ast.OperatorExpression{Type: schema.TypeStringArray, Field: "tags", Operator: schema.OpEqual, Value: "x"})
	assert.ErrorIs(t, err, backend.ErrUnbuildable)

	_, err = Build(&ast.OperatorExpression{Type: schema.TypeBoolean, Field: "Flag", Operator: schema.OpGreaterThan, Value: true})
	var be *backend.BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "docstore", be.Backend)
}

func TestMarshalExtJSON(t *testing.T) {
	data, err := MarshalExtJSON(build(t, `Value Start With tok`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Value":{"$regularExpression":{"pattern":"^tok","options":"i"}}}`, string(data))
}

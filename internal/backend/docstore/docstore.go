// Package docstore compiles expressions into MongoDB-style bson filter
// documents.
package docstore

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/backend"
	"github.com/roach88/filtex/internal/schema"
)

const name = "docstore"

// Build compiles expr into a filter document. A nil expression yields an
// empty document, which matches everything.
func Build(expr ast.Expression) (bson.M, error) {
	switch e := expr.(type) {
	case nil:
		return bson.M{}, nil
	case *ast.LogicExpression:
		return buildLogic(e)
	case *ast.OperatorExpression:
		return buildOperator(e)
	}
	return nil, backend.ErrUnbuildable
}

// MarshalExtJSON renders a filter as relaxed extended JSON.
func MarshalExtJSON(doc bson.M) ([]byte, error) {
	return bson.MarshalExtJSON(doc, false, false)
}

func buildLogic(e *ast.LogicExpression) (bson.M, error) {
	var key string
	switch e.Logic {
	case schema.LogicAnd:
		key = "$and"
	case schema.LogicOr:
		key = "$or"
	default:
		return nil, backend.ErrUnbuildable
	}

	children := make(bson.A, 0, len(e.Expressions))
	for _, child := range e.Expressions {
		doc, err := Build(child)
		if err != nil {
			return nil, err
		}
		children = append(children, doc)
	}
	return bson.M{key: children}, nil
}

func buildOperator(e *ast.OperatorExpression) (bson.M, error) {
	if !backend.Supported(e.Operator, e.Type) {
		return nil, backend.Unbuildable(name, e)
	}

	var cond any
	switch e.Operator {
	case schema.OpEqual:
		cond = bson.M{"$eq": encode(e.Value)}
	case schema.OpNotEqual:
		cond = bson.M{"$ne": encode(e.Value)}
	case schema.OpIn:
		cond = bson.M{"$in": encodeAll(e.Value)}
	case schema.OpNotIn:
		cond = bson.M{"$nin": encodeAll(e.Value)}
	case schema.OpGreaterThan:
		cond = bson.M{"$gt": encode(e.Value)}
	case schema.OpGreaterThanOrEqual:
		cond = bson.M{"$gte": encode(e.Value)}
	case schema.OpLessThan:
		cond = bson.M{"$lt": encode(e.Value)}
	case schema.OpLessThanOrEqual:
		cond = bson.M{"$lte": encode(e.Value)}
	case schema.OpContain, schema.OpNotContain:
		if e.Type.IsArray() {
			cond = bson.M{"$elemMatch": bson.M{"$eq": encode(e.Value)}}
		} else {
			cond = pattern(e.Value, "", "")
		}
		if e.Operator == schema.OpNotContain {
			cond = bson.M{"$not": cond}
		}
	case schema.OpStartWith:
		cond = pattern(e.Value, "^", "")
	case schema.OpNotStartWith:
		cond = bson.M{"$not": pattern(e.Value, "^", "")}
	case schema.OpEndWith:
		cond = pattern(e.Value, "", "$")
	case schema.OpNotEndWith:
		cond = bson.M{"$not": pattern(e.Value, "", "$")}
	case schema.OpBlank:
		cond = bson.M{"$in": blanks(e.Type)}
	case schema.OpNotBlank:
		cond = bson.M{"$nin": blanks(e.Type)}
	default:
		return nil, backend.Unbuildable(name, e)
	}
	return bson.M{e.Field: cond}, nil
}

// pattern matches the value literally, ignoring case.
func pattern(v any, prefix, suffix string) primitive.Regex {
	s, _ := v.(string)
	return primitive.Regex{Pattern: prefix + regexp.QuoteMeta(s) + suffix, Options: "i"}
}

// blanks lists the stored values counted as blank. null also matches a
// missing key.
func blanks(t schema.FieldType) bson.A {
	switch {
	case t.IsArray():
		return bson.A{nil, bson.A{}}
	case t == schema.TypeString:
		return bson.A{nil, ""}
	}
	return bson.A{nil}
}

func encodeAll(v any) bson.A {
	values := backend.Values(v)
	out := make(bson.A, 0, len(values))
	for _, item := range values {
		out = append(out, encode(item))
	}
	return out
}

// encode stores times of day and spans as integer nanoseconds.
func encode(v any) any {
	if d, ok := v.(time.Duration); ok {
		return int64(d)
	}
	return v
}

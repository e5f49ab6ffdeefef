// Package backend holds what the expression compilers share: the
// unbuildable error and the operator/type support table.
//
// Each compiler lives in its own subpackage:
//
//	memory      func(map[string]any) bool
//	docstore    bson.M filter documents
//	relational  SQL condition plus positional arguments
package backend

import (
	"errors"
	"fmt"

	"github.com/roach88/filtex/internal/ast"
	"github.com/roach88/filtex/internal/schema"
)

// ErrUnbuildable is wrapped by every BuildError.
var ErrUnbuildable = errors.New("unbuildable expression")

// BuildError reports an operator/type combination a backend has no
// mapping for.
type BuildError struct {
	Backend  string
	Field    string
	Operator schema.Operator
	Type     schema.FieldType
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: operator %s is not supported for field %q of type %s",
		e.Backend, e.Operator.Name(), e.Field, e.Type)
}

func (e *BuildError) Unwrap() error { return ErrUnbuildable }

// Unbuildable returns a BuildError for e.
func Unbuildable(backend string, e *ast.OperatorExpression) error {
	return &BuildError{Backend: backend, Field: e.Field, Operator: e.Operator, Type: e.Type}
}

// IsBuildError reports whether err is or wraps a BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

// Supported reports whether op has a meaning for fields of type t in every
// backend. Backends may support less.
func Supported(op schema.Operator, t schema.FieldType) bool {
	switch op {
	case schema.OpEqual, schema.OpNotEqual, schema.OpIn, schema.OpNotIn:
		return !t.IsArray()
	case schema.OpGreaterThan, schema.OpGreaterThanOrEqual, schema.OpLessThan, schema.OpLessThanOrEqual:
		return !t.IsArray() && t.IsOrdered()
	case schema.OpContain, schema.OpNotContain:
		return t.IsArray() || t == schema.TypeString
	case schema.OpStartWith, schema.OpNotStartWith, schema.OpEndWith, schema.OpNotEndWith:
		return t == schema.TypeString
	case schema.OpBlank, schema.OpNotBlank:
		return t.IsKnown()
	}
	return false
}

// Values returns the operand of a multi-value operator as a slice.
func Values(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

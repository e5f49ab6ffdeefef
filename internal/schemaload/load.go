// Package schemaload reads schema declarations from CUE, YAML or JSON
// files and builds them into schema.Metadata.
//
// A CUE schema looks like:
//
//	fields: [
//		{name: "status", label: "Status", type: "string", lookup: "statuses"},
//		{name: "tags", label: "Tags", type: "string", array: true},
//		{name: "due", label: "Due Date", type: "date", nullable: true},
//	]
//	lookups: statuses: [
//		{name: "Active", value: "active"},
//		{name: "Inactive", value: "inactive"},
//	]
//
// YAML and JSON files use the same keys.
package schemaload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/filtex/internal/schema"
)

// Error codes, stable across CLI output.
const (
	ErrCodeGeneric       = "E001"
	ErrCodeNotFound      = "E002"
	ErrCodeFormat        = "E003"
	ErrCodeSyntax        = "E004"
	ErrCodeInvalidSchema = "E101"
)

// LoadError describes a schema file that could not be loaded.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads path, picks the decoder by extension and builds the schema.
func Load(path string) (*schema.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading schema: %v", err)}
	}

	var decl schema.Declaration
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		decl, err = DecodeCUE(data, path)
	case ".yaml", ".yml":
		decl, err = DecodeYAML(data)
	case ".json":
		decl, err = DecodeJSON(data)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported schema format %q (want .cue, .yaml or .json)", filepath.Ext(path))}
	}
	if err != nil {
		return nil, err
	}
	return Build(decl)
}

// Build turns a decoded declaration into Metadata, wrapping schema errors.
func Build(decl schema.Declaration) (*schema.Metadata, error) {
	md, err := schema.Build(decl)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidSchema, Message: err.Error()}
	}
	return md, nil
}

// DecodeYAML decodes a YAML declaration. Unknown keys are rejected.
func DecodeYAML(data []byte) (schema.Declaration, error) {
	var decl schema.Declaration
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&decl); err != nil {
		return decl, &LoadError{Code: ErrCodeSyntax, Message: fmt.Sprintf("decoding YAML: %v", err)}
	}
	return decl, nil
}

// DecodeJSON decodes a JSON declaration. Unknown keys are rejected.
func DecodeJSON(data []byte) (schema.Declaration, error) {
	var decl schema.Declaration
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&decl); err != nil {
		return decl, &LoadError{Code: ErrCodeSyntax, Message: fmt.Sprintf("decoding JSON: %v", err)}
	}
	return decl, nil
}

// DecodeCUE compiles data as CUE and extracts the fields list and lookup
// tables. filename only labels positions in errors.
func DecodeCUE(data []byte, filename string) (schema.Declaration, error) {
	var decl schema.Declaration

	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return decl, fromCUE(err)
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return decl, &LoadError{Code: ErrCodeInvalidSchema, Message: "fields is required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.List()
	if err != nil {
		return decl, fromCUE(err)
	}
	for iter.Next() {
		fd, err := decodeCUEField(iter.Value())
		if err != nil {
			return decl, err
		}
		decl.Fields = append(decl.Fields, fd)
	}

	lookupsVal := v.LookupPath(cue.ParsePath("lookups"))
	if lookupsVal.Exists() {
		decl.Lookups = make(map[string][]schema.Lookup)
		fields, err := lookupsVal.Fields()
		if err != nil {
			return decl, fromCUE(err)
		}
		for fields.Next() {
			values, err := decodeCUELookups(fields.Value())
			if err != nil {
				return decl, err
			}
			decl.Lookups[fields.Selector().Unquoted()] = values
		}
	}
	return decl, nil
}

func decodeCUEField(v cue.Value) (schema.FieldDeclaration, error) {
	var fd schema.FieldDeclaration
	var err error
	if fd.Name, err = optionalString(v, "name"); err != nil {
		return fd, err
	}
	if fd.Label, err = optionalString(v, "label"); err != nil {
		return fd, err
	}
	if fd.Type, err = optionalString(v, "type"); err != nil {
		return fd, err
	}
	if fd.Lookup, err = optionalString(v, "lookup"); err != nil {
		return fd, err
	}
	if fd.Array, err = optionalBool(v, "array"); err != nil {
		return fd, err
	}
	if fd.Nullable, err = optionalBool(v, "nullable"); err != nil {
		return fd, err
	}
	return fd, nil
}

func decodeCUELookups(v cue.Value) ([]schema.Lookup, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fromCUE(err)
	}
	var out []schema.Lookup
	for iter.Next() {
		item := iter.Value()
		name, err := optionalString(item, "name")
		if err != nil {
			return nil, err
		}
		valueVal := item.LookupPath(cue.ParsePath("value"))
		if !valueVal.Exists() {
			return nil, &LoadError{Code: ErrCodeInvalidSchema, Message: fmt.Sprintf("lookup %q has no value", name), Pos: item.Pos()}
		}
		value, err := scalar(valueVal)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.Lookup{Name: name, Value: value})
	}
	return out, nil
}

func scalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		return b, fromCUE(err)
	case cue.IntKind:
		i, err := v.Int64()
		return float64(i), fromCUE(err)
	case cue.FloatKind:
		f, err := v.Float64()
		return f, fromCUE(err)
	case cue.StringKind:
		s, err := v.String()
		return s, fromCUE(err)
	}
	return nil, &LoadError{Code: ErrCodeInvalidSchema, Message: fmt.Sprintf("lookup value must be a concrete scalar, got %s", v.IncompleteKind()), Pos: v.Pos()}
}

func optionalString(v cue.Value, key string) (string, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", fromCUE(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, key string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, fromCUE(err)
	}
	return b, nil
}

// fromCUE keeps the first CUE error and its position.
func fromCUE(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeSyntax, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: ErrCodeSyntax, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

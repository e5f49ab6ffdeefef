package schema

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Metadata is the immutable, ordered set of fields for one schema.
//
// A Metadata is safe for concurrent read-only use by any number of
// tokenizers, validators and parsers.
type Metadata struct {
	fields []*Field
	index  map[string]*Field // folded name or label -> field
}

// Declaration is a complete schema: fields plus named lookup tables.
type Declaration struct {
	Fields  []FieldDeclaration  `json:"fields" yaml:"fields"`
	Lookups map[string][]Lookup `json:"lookups,omitempty" yaml:"lookups,omitempty"`
}

// Build validates a declaration and freezes it into Metadata.
func Build(decl Declaration) (*Metadata, error) {
	for key, values := range decl.Lookups {
		if len(values) == 0 {
			return nil, &SchemaError{Field: "lookups." + key, Message: "lookup has no values"}
		}
		for i, lk := range values {
			if strings.TrimSpace(lk.Name) == "" {
				return nil, &SchemaError{Field: fmt.Sprintf("lookups.%s[%d].name", key, i), Message: "lookup name is required"}
			}
		}
	}

	fields := make([]*Field, 0, len(decl.Fields))
	for i, fd := range decl.Fields {
		var lookups []Lookup
		if fd.Lookup != "" {
			values, ok := decl.Lookups[fd.Lookup]
			if !ok {
				return nil, &SchemaError{
					Field:   fmt.Sprintf("fields[%d].lookup", i),
					Message: fmt.Sprintf("undefined lookup %q", fd.Lookup),
				}
			}
			lookups = values
		}
		f, err := NewField(fd, lookups)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return NewMetadata(fields...)
}

// NewMetadata indexes already built fields. Names and labels must be unique
// across the schema, ignoring case.
func NewMetadata(fields ...*Field) (*Metadata, error) {
	md := &Metadata{
		fields: slices.Clone(fields),
		index:  make(map[string]*Field, len(fields)*2),
	}
	for _, f := range fields {
		if f == nil {
			return nil, &SchemaError{Field: "fields", Message: "nil field"}
		}
		for _, key := range []string{Fold(f.name), Fold(f.label)} {
			if prev, ok := md.index[key]; ok && prev != f {
				return nil, &SchemaError{
					Field:   f.name,
					Message: fmt.Sprintf("name or label %q already used by field %q", key, prev.name),
				}
			}
			md.index[key] = f
		}
	}
	return md, nil
}

// Fields returns the fields in declaration order.
func (m *Metadata) Fields() []*Field {
	return slices.Clone(m.fields)
}

// Field finds a field by name or label, ignoring case.
func (m *Metadata) Field(nameOrLabel string) (*Field, bool) {
	if m == nil {
		return nil, false
	}
	f, ok := m.index[Fold(nameOrLabel)]
	return f, ok
}

// GetFieldType returns the field's type, or TypeUnknown.
func (m *Metadata) GetFieldType(nameOrLabel string) FieldType {
	if f, ok := m.Field(nameOrLabel); ok {
		return f.typ
	}
	return TypeUnknown
}

// GetFieldName returns the canonical field name, or the input unchanged.
func (m *Metadata) GetFieldName(nameOrLabel string) string {
	if f, ok := m.Field(nameOrLabel); ok {
		return f.name
	}
	return nameOrLabel
}

// GetFieldValues returns the field's lookup table, or nil.
func (m *Metadata) GetFieldValues(nameOrLabel string) []Lookup {
	if f, ok := m.Field(nameOrLabel); ok {
		return f.Lookups()
	}
	return nil
}

// Spellings returns every distinct field name and label, longest first.
// Pattern tables rely on this order so that "Start Date" wins over "Start".
func (m *Metadata) Spellings() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range m.fields {
		for _, s := range []string{f.label, f.name} {
			if !seen[Fold(s)] {
				seen[Fold(s)] = true
				out = append(out, s)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

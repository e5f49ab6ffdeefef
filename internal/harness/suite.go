package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filtex/internal/filter"
)

// Suite is a named list of cases bound to one schema file.
type Suite struct {
	Name string `yaml:"name"`

	// Schema is the schema file path, relative to the suite file.
	Schema string `yaml:"schema"`

	Cases []Case `yaml:"cases"`
}

// Case is one query and its expected outcome.
type Case struct {
	Name string `yaml:"name"`

	// Syntax is "text" (default) or "json".
	Syntax string `yaml:"syntax,omitempty"`

	Query string `yaml:"query"`

	// ExpectError is the expected error code. Empty means the query must
	// validate and parse.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Golden compares the parsed tree with testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// LoadSuite reads a suite file and resolves its schema path.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}

	var s Suite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse suite YAML: %w", err)
	}

	if s.Schema != "" && !filepath.IsAbs(s.Schema) {
		s.Schema = filepath.Join(filepath.Dir(path), s.Schema)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite %s: %w", path, err)
	}
	return &s, nil
}

// LoadCases reads only the cases of a suite file.
func LoadCases(path string) ([]Case, error) {
	s, err := LoadSuite(path)
	if err != nil {
		return nil, err
	}
	return s.Cases, nil
}

// Validate checks required fields and unique case names.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("at least one case is required")
	}
	seen := make(map[string]bool)
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if _, err := c.syntax(); err != nil {
			return fmt.Errorf("cases[%d]: %w", i, err)
		}
		if c.Golden && c.ExpectError != "" {
			return fmt.Errorf("cases[%d]: golden and expect_error are exclusive", i)
		}
	}
	return nil
}

func (c Case) syntax() (filter.Syntax, error) {
	if c.Syntax == "" {
		return filter.SyntaxText, nil
	}
	return filter.ParseSyntax(c.Syntax)
}

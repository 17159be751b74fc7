// Package catalog holds the fixed list of animals the matcher selects from.
//
// A Store is built once at process start and never mutated afterwards, so it
// is safe for any number of concurrent readers without locking.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed animals.json
var defaultCatalog []byte

//go:embed schema.json
var catalogSchema []byte

// ErrEmptyCatalog is returned when a catalog source holds no animals.
var ErrEmptyCatalog = errors.New("catalog is empty")

// Animal is a single catalog entry.
type Animal struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Store is an immutable, loaded catalog.
type Store struct {
	animals []Animal
}

// ValidationError lists every schema violation found in a catalog document.
type ValidationError struct {
	Source string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog %s failed validation: %s", e.Source, strings.Join(e.Issues, "; "))
}

// New builds a Store from already-decoded animals.
func New(animals []Animal) (*Store, error) {
	if len(animals) == 0 {
		return nil, ErrEmptyCatalog
	}
	owned := make([]Animal, len(animals))
	copy(owned, animals)
	return &Store{animals: owned}, nil
}

// Default loads the catalog embedded in the binary.
func Default() (*Store, error) {
	return Parse("animals.json", defaultCatalog)
}

// Load reads a catalog file. Files ending in .yaml or .yml are decoded as
// YAML, anything else as JSON.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse validates and decodes a catalog document. The name only selects the
// decoder and labels errors.
func Parse(name string, data []byte) (*Store, error) {
	var doc any
	yamlDoc := isYAML(name)
	if yamlDoc {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode catalog %s: %w", name, err)
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", name, err)
	}

	if arr, ok := doc.([]any); ok && len(arr) == 0 {
		return nil, ErrEmptyCatalog
	}
	if doc == nil {
		return nil, ErrEmptyCatalog
	}
	if err := validate(name, doc); err != nil {
		return nil, err
	}

	var animals []Animal
	var err error
	if yamlDoc {
		err = yaml.Unmarshal(data, &animals)
	} else {
		err = json.Unmarshal(data, &animals)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", name, err)
	}
	return New(animals)
}

func validate(name string, doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(catalogSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validate catalog %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{Source: name}
	for _, issue := range result.Errors() {
		verr.Issues = append(verr.Issues, issue.String())
	}
	return verr
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// All returns a copy of the catalog entries in load order.
func (s *Store) All() []Animal {
	out := make([]Animal, len(s.animals))
	copy(out, s.animals)
	return out
}

// Len returns the number of animals in the catalog.
func (s *Store) Len() int {
	return len(s.animals)
}

// Package faculty holds the catalog of faculties that own a chat room.
package faculty

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed faculties.yaml
var defaultCatalog []byte

// Faculty is one entry of the catalog
type Faculty struct {
	Name     string `yaml:"name" json:"name"`
	Building string `yaml:"building" json:"building"`
}

// Catalog is an immutable, ordered set of known faculties
type Catalog struct {
	list   []Faculty
	byName map[string]Faculty
}

type catalogFile struct {
	Faculties []Faculty `yaml:"faculties"`
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded faculty catalog is invalid: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog. Unknown keys, unnamed entries and duplicate
// names are rejected.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse faculty catalog: %w", err)
	}

	c := &Catalog{byName: make(map[string]Faculty, len(file.Faculties))}
	for i, f := range file.Faculties {
		if f.Name == "" {
			return nil, fmt.Errorf("faculty catalog entry %d missing required field: name", i)
		}
		if _, exists := c.byName[f.Name]; exists {
			return nil, fmt.Errorf("duplicate faculty in catalog: %s", f.Name)
		}
		c.byName[f.Name] = f
		c.list = append(c.list, f)
	}

	return c, nil
}

// Known reports whether name is a faculty in the catalog.
func (c *Catalog) Known(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// List returns the faculties in catalog order.
func (c *Catalog) List() []Faculty {
	out := make([]Faculty, len(c.list))
	copy(out, c.list)
	return out
}

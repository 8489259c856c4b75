package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// File represents the structure of a catalog override file.
type File struct {
	Workers []map[string]any `yaml:"workers" json:"workers"`
}

// LoadFile reads a catalog from a YAML or JSON file.
// Entries are decoded strictly: unknown keys are an error.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, strings.ToLower(filepath.Ext(path)) == ".json")
}

// Parse decodes catalog data. YAML is assumed unless isJSON is set.
func Parse(data []byte, isJSON bool) (*Catalog, error) {
	var f File
	if isJSON {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse catalog json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
		}
	}

	entries := make([]Entry, 0, len(f.Workers))
	for i, raw := range f.Workers {
		var e Entry
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &e,
			ErrorUnused: true,
			TagName:     "mapstructure",
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(raw); err != nil {
			return nil, fmt.Errorf("catalog worker #%d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return New(entries...)
}

package variables

import (
	"embed"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var definitions embed.FS

type definition struct {
	key    string
	fields map[string]any
}

// Source is one declarative layer of vocabulary definitions: a mapping of
// registry name to MeasurementDescription fields.
type Source struct {
	name string
	load func() ([]definition, error)
}

// Name identifies the source, a file path for file backed layers.
func (s Source) Name() string { return s.name }

// FromFile reads a YAML definition file.
func FromFile(p string) Source {
	return Source{name: p, load: func() ([]definition, error) {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return parseDefinitions(b)
	}}
}

// FromBytes parses YAML held in memory; name is used in errors and SourceFiles.
func FromBytes(name string, b []byte) Source {
	return Source{name: name, load: func() ([]definition, error) {
		return parseDefinitions(b)
	}}
}

// FromMap uses in-memory definitions. Keys are taken in sorted order since a
// Go map carries none.
func FromMap(name string, m map[string]map[string]any) Source {
	return Source{name: name, load: func() ([]definition, error) {
		b, err := yaml.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return parseDefinitions(b)
	}}
}

// Embedded loads one of the definition files shipped with the module, e.g.
// "base_primary.yaml".
func Embedded(name string) Source {
	p := path.Join("definitions", name)
	return Source{name: "embedded:" + name, load: func() ([]definition, error) {
		b, err := definitions.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read embedded: %w", err)
		}
		return parseDefinitions(b)
	}}
}

// parseDefinitions keeps the document's key order, which decides match
// precedence in FromMapping.
func parseDefinitions(b []byte) ([]definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at line %d", root.Line)
	}
	out := make([]definition, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		fields := map[string]any{}
		if v := root.Content[i+1]; !(v.Kind == yaml.ScalarNode && v.Tag == "!!null") {
			if err := v.Decode(&fields); err != nil {
				return nil, fmt.Errorf("entry %s: %w", key, err)
			}
		}
		out = append(out, definition{key: key, fields: fields})
	}
	return out, nil
}

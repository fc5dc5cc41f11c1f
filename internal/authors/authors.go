// Package authors loads the Jekyll author list from _data/authors.yml.
package authors

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Author is one entry of the authors file: the mapping key and its
// display name (falling back to the id when no name is set).
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Load reads the authors file and returns entries in file order.
// A missing file yields an empty list, not an error.
func Load(path string) ([]Author, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("authors: read %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("authors: parse %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("authors: %s: expected a mapping of author ids", path)
	}

	var out []Author
	// Mapping nodes hold alternating key/value children.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		val := doc.Content[i+1]
		a := Author{ID: key.Value, Name: key.Value}
		if val.Kind == yaml.MappingNode {
			for j := 0; j+1 < len(val.Content); j += 2 {
				if val.Content[j].Value == "name" {
					a.Name = val.Content[j+1].Value
					break
				}
			}
		}
		out = append(out, a)
	}
	return out, nil
}

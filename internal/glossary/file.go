package glossary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a glossary term list from a .yaml, .yml or .json file.
func LoadFile(path string) ([]Term, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("glossary: read %s: %w", path, err)
	}

	var terms []Term
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &terms)
	default:
		err = yaml.Unmarshal(data, &terms)
	}
	if err != nil {
		return nil, fmt.Errorf("glossary: parse %s: %w", path, err)
	}
	return terms, nil
}

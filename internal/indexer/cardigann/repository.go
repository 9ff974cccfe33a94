package cardigann

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDefinitions reads every *.yml/*.yaml file in dir as a Definition. A
// missing directory yields an empty set rather than an error, since running
// with zero configured indexers is a valid (if useless) starting state.
func LoadDefinitions(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}

	var defs []Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read definition %s: %w", entry.Name(), err)
		}

		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parse definition %s: %w", entry.Name(), err)
		}
		if def.ID == "" {
			def.ID = strings.TrimSuffix(entry.Name(), ext)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

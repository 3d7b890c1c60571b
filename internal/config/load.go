package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	yaml "go.yaml.in/yaml/v3"
)

// DefaultEnvPrefix is the environment overlay prefix used by LoadFile callers by default.
const DefaultEnvPrefix = "APP"

// LoadFile reads a YAML, JSON or TOML file (by extension) and overlays environment
// variables carrying envPrefix.
func LoadFile(path, envPrefix string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, _, err := decodeDocument(path, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	st, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st.WithEnv(envPrefix, os.Environ()), nil
}

// decodeDocument decodes data into a generic map.
//
// Returns (doc, format, err) where format is "json", "yaml" or "toml".
func decodeDocument(path string, data []byte) (map[string]any, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	doc := map[string]any{}
	switch ext {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, "yaml", fmt.Errorf("yaml unmarshal: %w", err)
		}
		if v == nil {
			return doc, "yaml", nil
		}
		m, ok := normalizeYAML(v).(map[string]any)
		if !ok {
			return nil, "yaml", fmt.Errorf("yaml: top-level value must be a map")
		}
		return m, "yaml", nil
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, "toml", fmt.Errorf("toml unmarshal: %w", err)
		}
		return doc, "toml", nil
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, "json", fmt.Errorf("json unmarshal: %w", err)
		}
		if dec.More() {
			return nil, "json", fmt.Errorf("invalid config: trailing data")
		}
		return doc, "json", nil
	}
}

// normalizeYAML ensures all map keys are strings.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}

package config

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Lookup is the read-only key/value capability placeholders are resolved against.
// Keys are dotted paths such as "app.interval".
type Lookup interface {
	Lookup(key string) (string, bool)
}

// Store is an immutable snapshot of dotted keys to string values.
// A nil *Store is a valid empty store.
type Store struct {
	values map[string]string
}

// NewStore copies values into a new Store.
func NewStore(values map[string]string) *Store {
	m := make(map[string]string, len(values))
	for k, v := range values {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		m[k] = v
	}
	return &Store{values: m}
}

// FromDocument flattens a decoded YAML/JSON/TOML document into a Store.
// Nested maps become dotted keys; list items are addressed by index ("hosts.0").
func FromDocument(doc map[string]any) (*Store, error) {
	m := map[string]string{}
	if err := flatten("", doc, m); err != nil {
		return nil, err
	}
	return &Store{values: m}, nil
}

func flatten(prefix string, v any, out map[string]string) error {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch x := v.(type) {
	case map[string]any:
		for k, child := range x {
			if err := flatten(join(k), child, out); err != nil {
				return err
			}
		}
	case map[any]any:
		for k, child := range x {
			if err := flatten(join(fmt.Sprint(k)), child, out); err != nil {
				return err
			}
		}
	case []any:
		for i, child := range x {
			if err := flatten(join(strconv.Itoa(i)), child, out); err != nil {
				return err
			}
		}
	case []map[string]any:
		for i, child := range x {
			if err := flatten(join(strconv.Itoa(i)), child, out); err != nil {
				return err
			}
		}
	case json.Number:
		out[prefix] = x.String()
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		if prefix == "" {
			return fmt.Errorf("config: top-level value must be a map, got %T", v)
		}
		s, err := cast.ToStringE(x)
		if err != nil {
			return fmt.Errorf("config: %s: %w", prefix, err)
		}
		out[prefix] = s
	}
	return nil
}

// WithEnv returns a copy of s overlaid with environment entries carrying prefix.
//
// PREFIX_JOBS_INTERVAL=5s becomes "jobs.interval"; keys are lowercased and "_" maps to ".".
// An empty prefix disables the overlay.
func (s *Store) WithEnv(prefix string, environ []string) *Store {
	out := NewStore(s.snapshot())
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return out
	}
	p := strings.ToUpper(strings.TrimSuffix(prefix, "_")) + "_"
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(strings.ToUpper(name), p) {
			continue
		}
		rest := name[len(p):]
		if rest == "" {
			continue
		}
		key := strings.ToLower(strings.ReplaceAll(rest, "_", "."))
		out.values[key] = val
	}
	return out
}

func (s *Store) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[strings.TrimSpace(key)]
	return v, ok
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) snapshot() map[string]string {
	m := make(map[string]string, s.Len())
	if s == nil {
		return m
	}
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

// String returns the value for key or def when absent or blank.
func (s *Store) String(key, def string) string {
	v, ok := s.Lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func (s *Store) Bool(key string, def bool) (bool, error) {
	v, ok := s.Lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	b, err := cast.ToBoolE(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%s: invalid bool %q: %w", key, v, err)
	}
	return b, nil
}

func (s *Store) Int(key string, def int) (int, error) {
	v, ok := s.Lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	n, err := cast.ToIntE(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%s: invalid int %q: %w", key, v, err)
	}
	return n, nil
}

// Duration parses a Go duration string ("10s", "1m30s"); blank or zero yields def.
func (s *Store) Duration(key string, def time.Duration) (time.Duration, error) {
	v, _ := s.Lookup(key)
	raw := strings.TrimSpace(v)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	if d < 0 {
		return def, fmt.Errorf("%s: duration must be >= 0", key)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// List returns a list value. Document lists are stored as key.0, key.1, ...; a plain
// value is split on commas so the same key can come from an env overlay.
func (s *Store) List(key string) []string {
	var out []string
	for i := 0; ; i++ {
		v, ok := s.Lookup(key + "." + strconv.Itoa(i))
		if !ok {
			break
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		return out
	}
	v, _ := s.Lookup(key)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Hash returns a stable content hash; unchanged content yields the same value.
func (s *Store) Hash() uint64 {
	if s.Len() == 0 {
		return 0
	}
	h := fnv.New64a()
	for _, k := range s.Keys() {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(s.values[k]))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

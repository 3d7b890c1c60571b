package config

import (
	"errors"
	"fmt"
	"strings"

	logx "tickwork/pkg/logx"
)

var (
	ErrMissingKey           = errors.New("config key not found")
	ErrMalformedPlaceholder = errors.New("malformed config placeholder")
)

// MissingKeyError reports a required placeholder (${key}) whose key is absent.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("config key %q not found and no default provided (add it to the config file or use ${%s:default})", e.Key, e.Key)
}

func (e *MissingKeyError) Is(target error) bool { return target == ErrMissingKey }

// PlaceholderError reports a value that opens a placeholder but breaks its grammar.
type PlaceholderError struct {
	Value  string
	Reason string
}

func (e *PlaceholderError) Error() string {
	return fmt.Sprintf("malformed config placeholder %q: %s", e.Value, e.Reason)
}

func (e *PlaceholderError) Is(target error) bool { return target == ErrMalformedPlaceholder }

// Placeholder is a parsed ${key} or ${key:default} token.
type Placeholder struct {
	Key        string
	Default    string
	HasDefault bool
}

// ParsePlaceholder reports whether raw is a placeholder and parses it.
//
// Values that do not contain "${" are literals (ok=false, err=nil). A value that contains
// "${" must be exactly one well-formed placeholder; anything else is a *PlaceholderError.
func ParsePlaceholder(raw string) (p Placeholder, ok bool, err error) {
	s := strings.TrimSpace(raw)
	open := strings.Index(s, "${")
	if open < 0 {
		return Placeholder{}, false, nil
	}
	if open > 0 {
		return Placeholder{}, true, &PlaceholderError{Value: raw, Reason: "literal text before placeholder"}
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return Placeholder{}, true, &PlaceholderError{Value: raw, Reason: "missing closing brace '}'"}
	}
	if rest := s[end+1:]; rest != "" {
		return Placeholder{}, true, &PlaceholderError{
			Value:  raw,
			Reason: fmt.Sprintf("unexpected %q after '}' (a suffix cannot be appended to a placeholder; put it in the config value or the default, e.g. ${key:5s})", rest),
		}
	}
	inner := s[2:end]
	key, def, hasDef := strings.Cut(inner, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return Placeholder{}, true, &PlaceholderError{Value: raw, Reason: "empty key"}
	}
	if strings.Contains(def, "${") {
		return Placeholder{}, true, &PlaceholderError{Value: raw, Reason: "nested placeholder in default"}
	}
	for _, r := range key {
		if !isKeyRune(r) {
			return Placeholder{}, true, &PlaceholderError{Value: raw, Reason: fmt.Sprintf("invalid character %q in key", r)}
		}
	}
	if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
		return Placeholder{}, true, &PlaceholderError{Value: raw, Reason: "empty key segment"}
	}
	return Placeholder{Key: key, Default: def, HasDefault: hasDef}, true, nil
}

func isKeyRune(r rune) bool {
	return r == '.' || r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Validate checks placeholder syntax without consulting any store.
func Validate(raw string) error {
	_, _, err := ParsePlaceholder(raw)
	return err
}

// IsPlaceholder reports whether raw is a well-formed placeholder.
func IsPlaceholder(raw string) bool {
	_, ok, err := ParsePlaceholder(raw)
	return ok && err == nil
}

// Resolver resolves declared values against a Lookup.
// Falling back to a default is logged at warn level.
type Resolver struct {
	Store Lookup
	Log   logx.Logger
}

// Resolve returns literals unchanged and substitutes placeholders.
//
// ${key} with key absent fails with *MissingKeyError; ${key:default} falls back to default.
func (r Resolver) Resolve(raw string) (string, error) {
	p, ok, err := ParsePlaceholder(raw)
	if err != nil {
		return "", err
	}
	if !ok {
		return raw, nil
	}
	if r.Store != nil {
		if v, found := r.Store.Lookup(p.Key); found {
			return v, nil
		}
	}
	if !p.HasDefault {
		return "", &MissingKeyError{Key: p.Key}
	}
	if !r.Log.IsZero() {
		r.Log.Warn("config key not found; using default", logx.String("key", p.Key), logx.String("default", p.Default))
	}
	return p.Default, nil
}

// Resolve is Resolver{Store: store}.Resolve(raw) without logging.
func Resolve(raw string, store Lookup) (string, error) {
	return Resolver{Store: store}.Resolve(raw)
}

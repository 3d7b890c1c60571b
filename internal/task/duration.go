package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tickwork/internal/timeunit"
)

// Value is a resolved duration in milliseconds.
type Value struct {
	Millis uint64
	// Amount and Unit are what the value was written as ("5s" is 5 Seconds).
	Amount uint64
	Unit   timeunit.Unit
	// Suffixed is true when the unit came from a shorthand suffix rather than the
	// descriptor's time unit.
	Suffixed bool
}

// ParseValue converts a resolved (placeholder-free) duration value to milliseconds.
//
// Shorthand ("500ms", "5s") wins; otherwise s must be a bare non-negative integer
// interpreted in unit.
func ParseValue(s string, unit timeunit.Unit) (Value, error) {
	raw := strings.TrimSpace(s)
	if n, u, ok := timeunit.ParseDuration(raw); ok {
		return valueOf(s, n, u, true)
	}
	if raw == "" {
		return Value{}, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return valueOf(s, n, unit, false)
	}
	if strings.HasPrefix(raw, "-") {
		if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Value{}, fmt.Errorf("%w: %q", ErrNegativeValue, s)
		}
		if digits, _ := timeunit.SplitSuffix(raw[1:]); digits != "" {
			return Value{}, fmt.Errorf("%w: %q", ErrNegativeValue, s)
		}
	}
	digits, suffix := timeunit.SplitSuffix(raw)
	if digits != "" && isLetters(suffix) {
		if _, err := strconv.ParseUint(digits, 10, 64); errors.Is(err, strconv.ErrRange) {
			return Value{}, outOfRange(s)
		}
	}
	if digits != "" && suffix != "" && isLetters(suffix) {
		return Value{}, &SuffixError{Value: s, Suffix: suffix, Hint: suffixHint(suffix)}
	}
	return Value{}, fmt.Errorf("%w: %q (use an integer or <digits><ms|s|m|h|d>)", ErrInvalidDuration, s)
}

func valueOf(s string, n uint64, u timeunit.Unit, suffixed bool) (Value, error) {
	ms, ok := timeunit.ToMillis(u, n)
	if !ok {
		return Value{}, outOfRange(s)
	}
	return Value{Millis: ms, Amount: n, Unit: u, Suffixed: suffixed}, nil
}

func outOfRange(s string) error {
	return fmt.Errorf("%w: %q out of range (max %dms)", ErrInvalidDuration, s, timeunit.MaxMillis)
}

// Duration is v as a time.Duration. ParseValue bounds Millis so this cannot wrap.
func (v Value) Duration() time.Duration {
	return time.Duration(v.Millis) * time.Millisecond
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

var suffixAliases = map[string]string{
	"msec": "ms", "msecs": "ms", "millis": "ms", "millisecond": "ms", "milliseconds": "ms",
	"sec": "s", "secs": "s", "second": "s", "seconds": "s",
	"min": "m", "mins": "m", "minute": "m", "minutes": "m",
	"hr": "h", "hrs": "h", "hour": "h", "hours": "h",
	"day": "d", "days": "d",
}

func suffixHint(suffix string) string {
	low := strings.ToLower(suffix)
	if timeunit.IsSuffix(low) {
		return low
	}
	return suffixAliases[low]
}

// Package timeunit converts schedule values to milliseconds.
//
// Two grammars live here and they are deliberately different:
//   - ParseDuration accepts "<digits><suffix>" with a lowercase suffix only (ms, s, m, h, d).
//   - ParseUnit accepts the five full unit names, case-insensitively, and nothing else.
package timeunit

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is the time unit applied to a bare integer schedule value.
type Unit int

const (
	Milliseconds Unit = iota
	Seconds
	Minutes
	Hours
	Days
)

// Default is used when no unit is given or the given name does not parse.
const Default = Milliseconds

func (u Unit) String() string {
	switch u {
	case Milliseconds:
		return "milliseconds"
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	default:
		return "unit(" + strconv.Itoa(int(u)) + ")"
	}
}

// Millis returns the number of milliseconds in one u.
func (u Unit) Millis() uint64 {
	switch u {
	case Seconds:
		return 1000
	case Minutes:
		return 60_000
	case Hours:
		return 3_600_000
	case Days:
		return 86_400_000
	default:
		return 1
	}
}

// MaxMillis is the largest millisecond count a time.Duration can hold.
const MaxMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

// ToMillis converts value expressed in u to milliseconds. It reports false when the
// result exceeds MaxMillis.
func ToMillis(u Unit, value uint64) (uint64, bool) {
	per := u.Millis()
	if value > MaxMillis/per {
		return 0, false
	}
	return value * per, true
}

// ParseUnit parses one of "milliseconds", "seconds", "minutes", "hours", "days".
// Letter case is ignored; abbreviations are rejected.
func ParseUnit(s string) (Unit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "milliseconds":
		return Milliseconds, true
	case "seconds":
		return Seconds, true
	case "minutes":
		return Minutes, true
	case "hours":
		return Hours, true
	case "days":
		return Days, true
	default:
		return Default, false
	}
}

// ParseDuration parses a shorthand like "500ms", "5s", "10m", "2h" or "7d".
//
// It splits the leading run of ASCII digits from the suffix and fails when either part
// is missing or the suffix is not exactly one of ms|s|m|h|d. "5S", "5sec" and "5 s" are
// rejected rather than normalized.
func ParseDuration(s string) (uint64, Unit, bool) {
	s = strings.TrimSpace(s)
	split := digitPrefix(s)
	if split == 0 || split == len(s) {
		return 0, Default, false
	}
	value, err := strconv.ParseUint(s[:split], 10, 64)
	if err != nil {
		return 0, Default, false
	}
	u, ok := suffixUnit(s[split:])
	if !ok {
		return 0, Default, false
	}
	return value, u, true
}

// SplitSuffix returns the leading digit run of s and whatever follows it.
// Callers use it to build diagnostics for values ParseDuration rejected.
func SplitSuffix(s string) (digits, suffix string) {
	s = strings.TrimSpace(s)
	split := digitPrefix(s)
	return s[:split], s[split:]
}

// IsSuffix reports whether s is a valid shorthand suffix.
func IsSuffix(s string) bool {
	_, ok := suffixUnit(s)
	return ok
}

func suffixUnit(s string) (Unit, bool) {
	switch s {
	case "ms":
		return Milliseconds, true
	case "s":
		return Seconds, true
	case "m":
		return Minutes, true
	case "h":
		return Hours, true
	case "d":
		return Days, true
	default:
		return Default, false
	}
}

func digitPrefix(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

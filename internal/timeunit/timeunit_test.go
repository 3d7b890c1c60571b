package timeunit

import (
	"testing"
	"time"
)

func TestToMillis(t *testing.T) {
	t.Parallel()
	tests := []struct {
		unit  Unit
		value uint64
		want  uint64
	}{
		{Milliseconds, 250, 250},
		{Seconds, 5, 5000},
		{Minutes, 3, 180_000},
		{Hours, 1, 3_600_000},
		{Days, 2, 172_800_000},
		{Seconds, 0, 0},
	}
	for _, tt := range tests {
		if got, ok := ToMillis(tt.unit, tt.value); !ok || got != tt.want {
			t.Fatalf("ToMillis(%s, %d) = %d, %v, want %d", tt.unit, tt.value, got, ok, tt.want)
		}
	}
}

func TestToMillisRange(t *testing.T) {
	t.Parallel()
	if got, ok := ToMillis(Milliseconds, MaxMillis); !ok || got != MaxMillis {
		t.Fatalf("ToMillis(MaxMillis) = %d, %v", got, ok)
	}
	if d := time.Duration(MaxMillis) * time.Millisecond; d <= 0 {
		t.Fatalf("MaxMillis overflows time.Duration: %v", d)
	}
	for _, tt := range []struct {
		unit  Unit
		value uint64
	}{
		{Milliseconds, MaxMillis + 1},
		{Days, 200_000},
		{Days, 300_000_000_000_000},
		{Seconds, MaxMillis/1000 + 1},
	} {
		if _, ok := ToMillis(tt.unit, tt.value); ok {
			t.Fatalf("ToMillis(%s, %d) accepted an out-of-range value", tt.unit, tt.value)
		}
	}
}

func TestParseDurationValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw   string
		value uint64
		unit  Unit
	}{
		{"500ms", 500, Milliseconds},
		{"5s", 5, Seconds},
		{"10m", 10, Minutes},
		{"2h", 2, Hours},
		{"7d", 7, Days},
		{" 30s ", 30, Seconds},
		{"0s", 0, Seconds},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			v, u, ok := ParseDuration(tt.raw)
			if !ok {
				t.Fatalf("ParseDuration(%q) failed", tt.raw)
			}
			if v != tt.value || u != tt.unit {
				t.Fatalf("ParseDuration(%q) = (%d, %s), want (%d, %s)", tt.raw, v, u, tt.value, tt.unit)
			}
		})
	}
}

func TestParseDurationRejects(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"5S", "5Sec", "10MIN", "500", "ms", "", "5 s", "5sec", "-5s", "1.5s", "5mss"} {
		if _, _, ok := ParseDuration(raw); ok {
			t.Fatalf("ParseDuration(%q) accepted, want rejection", raw)
		}
	}
}

func TestParseUnit(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]Unit{
		"milliseconds": Milliseconds,
		"Seconds":      Seconds,
		"MINUTES":      Minutes,
		"hours":        Hours,
		"days":         Days,
	} {
		got, ok := ParseUnit(name)
		if !ok || got != want {
			t.Fatalf("ParseUnit(%q) = (%s, %v), want %s", name, got, ok, want)
		}
	}
	for _, bad := range []string{"s", "sec", "ms", "min", "hour", ""} {
		if got, ok := ParseUnit(bad); ok || got != Default {
			t.Fatalf("ParseUnit(%q) = (%s, %v), want rejection", bad, got, ok)
		}
	}
}

func TestSplitSuffix(t *testing.T) {
	t.Parallel()
	d, s := SplitSuffix("15Sec")
	if d != "15" || s != "Sec" {
		t.Fatalf("SplitSuffix = (%q, %q)", d, s)
	}
	if !IsSuffix("ms") || IsSuffix("MS") {
		t.Fatal("IsSuffix mismatch")
	}
}

package task

import (
	"fmt"
	"strings"
)

// Kind is the schedule family of a descriptor.
type Kind int

const (
	KindCron Kind = iota + 1
	KindFixedRate
	KindFixedDelay
)

func (k Kind) String() string {
	switch k {
	case KindCron:
		return "cron"
	case KindFixedRate:
		return "fixed_rate"
	case KindFixedDelay:
		return "fixed_delay"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Interval reports whether k is driven by an interval loop.
func (k Kind) Interval() bool { return k == KindFixedRate || k == KindFixedDelay }

// ParseKind accepts "cron", "fixed_rate" and "fixed_delay" (case-insensitive; "-" is accepted for "_").
func ParseKind(s string) (Kind, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "cron":
		return KindCron, nil
	case "fixed_rate":
		return KindFixedRate, nil
	case "fixed_delay":
		return KindFixedDelay, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// DefaultZone is the zone value meaning "host local time".
const DefaultZone = "local"

// Schedule is exactly one of Cron, FixedRate or FixedDelay.
//
// Value is the cron expression for KindCron and the interval for the other kinds.
// Zone is only meaningful for KindCron.
type Schedule struct {
	Kind  Kind
	Value string
	Zone  string
}

// Cron schedules by calendar expression, e.g. "0 */5 * * * *" or "@hourly".
// An empty zone means DefaultZone.
func Cron(expr, zone string) Schedule {
	return Schedule{Kind: KindCron, Value: expr, Zone: zone}
}

// FixedRate fires every interval regardless of how long the work takes.
func FixedRate(interval string) Schedule {
	return Schedule{Kind: KindFixedRate, Value: interval}
}

// FixedDelay waits interval after each run completes.
func FixedDelay(interval string) Schedule {
	return Schedule{Kind: KindFixedDelay, Value: interval}
}

func (s Schedule) zoneOrDefault() string {
	if strings.TrimSpace(s.Zone) == "" {
		return DefaultZone
	}
	return s.Zone
}

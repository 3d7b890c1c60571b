package task

import (
	"errors"
	"strings"

	"tickwork/internal/config"
	"tickwork/internal/timeunit"
)

// Declared defaults for optional fields.
const (
	DefaultInitialDelay = "0"
	DefaultEnabled      = "true"
	DefaultTimeUnit     = "milliseconds"
)

// Metadata is the schedule declaration shared by every origin. All string fields accept
// literals or config placeholders (${key} / ${key:default}).
type Metadata struct {
	Schedule     Schedule
	InitialDelay string
	Enabled      string
	TimeUnit     string
}

// Descriptor is a named, schedulable unit of work.
//
// Name is for logs and errors only; duplicates are allowed.
type Descriptor struct {
	Name string
	Metadata
	Work Work

	// Instance is the type name of the registered instance that contributed this
	// descriptor, empty for functions and runnables.
	Instance string
}

// WithDefaults fills empty optional fields.
func (d Descriptor) WithDefaults() Descriptor {
	if strings.TrimSpace(d.InitialDelay) == "" {
		d.InitialDelay = DefaultInitialDelay
	}
	if strings.TrimSpace(d.Enabled) == "" {
		d.Enabled = DefaultEnabled
	}
	if strings.TrimSpace(d.TimeUnit) == "" {
		d.TimeUnit = DefaultTimeUnit
	}
	d.Schedule.Zone = d.Schedule.zoneOrDefault()
	return d
}

// Validate checks everything that can be checked without configuration: placeholder
// syntax on every field, and literal values (bool, durations, non-empty cron).
// Placeholder values are checked again after resolution.
//
// All problems are returned joined; each is a *FieldError.
func (d Descriptor) Validate() error {
	d = d.WithDefaults()
	var errs []error
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, &FieldError{Task: d.Name, Field: field, Err: err})
		}
	}

	if workMissing(d.Work) {
		add("work", ErrNoWork)
	}
	switch d.Schedule.Kind {
	case KindCron, KindFixedRate, KindFixedDelay:
	default:
		add("schedule", ErrUnknownKind)
	}

	for _, f := range []struct{ name, value string }{
		{"schedule", d.Schedule.Value},
		{"initial_delay", d.InitialDelay},
		{"enabled", d.Enabled},
		{"time_unit", d.TimeUnit},
		{"zone", d.Schedule.Zone},
	} {
		add(f.name, config.Validate(f.value))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if !config.IsPlaceholder(d.Enabled) {
		if v := strings.ToLower(strings.TrimSpace(d.Enabled)); v != "true" && v != "false" {
			add("enabled", ErrInvalidBool)
		}
	}

	unit := timeunit.Default
	if !config.IsPlaceholder(d.TimeUnit) {
		if u, ok := timeunit.ParseUnit(d.TimeUnit); ok {
			unit = u
		}
	}
	if !config.IsPlaceholder(d.InitialDelay) {
		if _, err := ParseValue(d.InitialDelay, unit); err != nil {
			add("initial_delay", err)
		}
	}

	if !config.IsPlaceholder(d.Schedule.Value) {
		add("schedule", CheckScheduleValue(d.Schedule.Kind, d.Schedule.Value, unit))
	}
	return errors.Join(errs...)
}

// CheckScheduleValue validates a resolved schedule value for kind.
// Interval kinds reject zero; cron only requires a non-empty expression.
func CheckScheduleValue(kind Kind, value string, unit timeunit.Unit) error {
	if kind == KindCron {
		if strings.TrimSpace(value) == "" {
			return ErrEmptyCron
		}
		return nil
	}
	v, err := ParseValue(value, unit)
	if err != nil {
		return err
	}
	if v.Millis == 0 {
		return ErrZeroInterval
	}
	return nil
}

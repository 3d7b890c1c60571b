package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tickwork/internal/config"
	"tickwork/internal/task"
	"tickwork/internal/timeunit"
	logx "tickwork/pkg/logx"
)

// entry is a descriptor with every field resolved.
type entry struct {
	name     string
	kind     task.Kind
	origin   task.Origin
	instance string
	work     task.Work

	expr string // cron only
	zone string // display form

	amount       uint64
	unit         timeunit.Unit
	interval     time.Duration
	initialDelay time.Duration

	cronID int
}

// resolveEnabled resolves the enabled flag. Only "false" (any case) disables.
func resolveEnabled(d task.Descriptor, r config.Resolver, log logx.Logger) (bool, error) {
	v, err := r.Resolve(d.Enabled)
	if err != nil {
		return false, err
	}
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "false") {
		return false, nil
	}
	if !strings.EqualFold(v, "true") {
		log.Warn("enabled is neither true nor false; treating as enabled", logx.String("task", d.Name), logx.String("value", v))
	}
	return true, nil
}

// resolveEntry resolves everything but the enabled flag. Any error rejects this
// descriptor only; soft problems are logged as warnings.
func resolveEntry(d task.Descriptor, r config.Resolver, log logx.Logger) (*entry, error) {
	log = log.With(logx.String("task", d.Name))
	e := &entry{
		name:     d.Name,
		kind:     d.Schedule.Kind,
		origin:   d.Work.Origin(),
		instance: d.Instance,
		work:     d.Work,
	}

	unitRaw, err := r.Resolve(d.TimeUnit)
	if err != nil {
		return nil, fmt.Errorf("time_unit: %w", err)
	}
	unit, ok := timeunit.ParseUnit(unitRaw)
	if !ok {
		log.Warn("invalid time_unit; using milliseconds", logx.String("time_unit", unitRaw))
		unit = timeunit.Default
	}
	e.unit = unit
	unitSet := ok && unit != timeunit.Default

	delayRaw, err := r.Resolve(d.InitialDelay)
	if err != nil {
		return nil, fmt.Errorf("initial_delay: %w", err)
	}
	if delay, err := task.ParseValue(delayRaw, unit); err != nil {
		log.Warn("invalid initial_delay; using 0", logx.String("initial_delay", delayRaw), logx.Err(err))
	} else {
		e.initialDelay = delay.Duration()
		if delay.Suffixed && unitSet && e.kind.Interval() {
			log.Warn("time_unit ignored for initial_delay with a suffix", logx.String("initial_delay", delayRaw), logx.String("time_unit", unit.String()))
		}
	}

	zoneRaw, err := r.Resolve(d.Schedule.Zone)
	if err != nil {
		return nil, fmt.Errorf("zone: %w", err)
	}
	e.zone = zoneDisplay(zoneRaw)

	value, err := r.Resolve(d.Schedule.Value)
	if err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}

	switch e.kind {
	case task.KindCron:
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("schedule: %w", task.ErrEmptyCron)
		}
		e.expr = strings.TrimSpace(value)
		if !strings.EqualFold(strings.TrimSpace(unitRaw), task.DefaultTimeUnit) {
			log.Warn("time_unit is ignored for cron expressions", logx.String("time_unit", unitRaw))
		}
	case task.KindFixedRate, task.KindFixedDelay:
		v, err := task.ParseValue(value, unit)
		if err != nil {
			return nil, fmt.Errorf("schedule: %w", err)
		}
		if v.Millis == 0 {
			return nil, fmt.Errorf("schedule: %w", task.ErrZeroInterval)
		}
		if v.Suffixed && unitSet {
			log.Warn("time_unit ignored; the suffix wins", logx.String("value", value), logx.String("time_unit", unit.String()))
		}
		e.amount = v.Amount
		e.unit = v.Unit
		e.interval = v.Duration()
		if !strings.EqualFold(strings.TrimSpace(zoneRaw), task.DefaultZone) && strings.TrimSpace(zoneRaw) != "" {
			log.Warn("zone is ignored for interval tasks; they use the local clock", logx.String("zone", zoneRaw))
		}
	default:
		return nil, fmt.Errorf("schedule: %w: %d", task.ErrUnknownKind, int(e.kind))
	}
	return e, nil
}

func zoneDisplay(zone string) string {
	zone = strings.TrimSpace(zone)
	if zone == "" || strings.EqualFold(zone, task.DefaultZone) {
		return "Local"
	}
	return zone
}

// cronZone maps the display form back to what the runner expects.
func (e *entry) cronZone() string {
	if e.zone == "Local" {
		return task.DefaultZone
	}
	return e.zone
}

func (e *entry) fields() []logx.Field {
	fs := []logx.Field{
		logx.String("task", e.name),
		logx.String("kind", e.kind.String()),
		logx.String("origin", e.origin.String()),
		logx.Int64("initial_delay_ms", e.initialDelay.Milliseconds()),
	}
	if e.kind == task.KindCron {
		return append(fs, logx.String("expr", e.expr), logx.String("zone", e.zone))
	}
	return append(fs,
		logx.Int64("interval_ms", e.interval.Milliseconds()),
		logx.String("interval", fmt.Sprintf("%d %s", e.amount, e.unit)),
		logx.String("unit", e.unit.String()),
	)
}

func isConfigError(err error) bool {
	return errors.Is(err, config.ErrMissingKey) || errors.Is(err, config.ErrMalformedPlaceholder)
}

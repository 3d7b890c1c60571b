package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
)

// CronRunner is the calendar capability: call job at each instant expr matches.
//
// zone is an IANA name or "local". delay suppresses fires until that long after Add.
type CronRunner interface {
	Add(expr, zone string, delay time.Duration, job func()) (int, error)
	Entry(id int) (next, prev time.Time)
	Start()
	// Stop halts triggering. The returned context is done once running callbacks return.
	Stop() context.Context
}

// cronParser accepts 5-field and 6-field (leading seconds) specs plus descriptors
// such as "@hourly" and "@every 5m".
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronSpec prefixes expr with CRON_TZ for non-local zones.
func cronSpec(expr, zone string) string {
	expr = strings.TrimSpace(expr)
	zone = strings.TrimSpace(zone)
	if zone == "" || strings.EqualFold(zone, task.DefaultZone) {
		return expr
	}
	if strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=") {
		return expr
	}
	return "CRON_TZ=" + zone + " " + expr
}

// ParseCron validates expr in zone.
func ParseCron(expr, zone string) (cron.Schedule, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, task.ErrEmptyCron
	}
	sched, err := cronParser.Parse(cronSpec(expr, zone))
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// delayedSchedule suppresses fires before notBefore, then follows base.
type delayedSchedule struct {
	base      cron.Schedule
	notBefore time.Time
}

func (s *delayedSchedule) Next(t time.Time) time.Time {
	if t.Before(s.notBefore) {
		return s.base.Next(s.notBefore.Add(-time.Nanosecond))
	}
	return s.base.Next(t)
}

type robfigRunner struct {
	c *cron.Cron
}

// NewCronRunner returns the robfig/cron backed runner.
func NewCronRunner(log logx.Logger) CronRunner {
	return &robfigRunner{c: cron.New(cron.WithParser(cronParser), cron.WithLogger(cronLogger{log: log}))}
}

func (r *robfigRunner) Add(expr, zone string, delay time.Duration, job func()) (int, error) {
	sched, err := ParseCron(expr, zone)
	if err != nil {
		return 0, err
	}
	if delay > 0 {
		sched = &delayedSchedule{base: sched, notBefore: time.Now().Add(delay)}
	}
	return int(r.c.Schedule(sched, cron.FuncJob(job))), nil
}

func (r *robfigRunner) Entry(id int) (time.Time, time.Time) {
	e := r.c.Entry(cron.EntryID(id))
	return e.Next, e.Prev
}

func (r *robfigRunner) Start() { r.c.Start() }

func (r *robfigRunner) Stop() context.Context { return r.c.Stop() }

// cronLogger routes robfig/cron's internal logging to logx. Info goes to trace.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	if l.log.IsZero() || !l.log.Enabled(logx.LevelTrace) {
		return
	}
	l.log.Trace("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	if l.log.IsZero() {
		return
	}
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}

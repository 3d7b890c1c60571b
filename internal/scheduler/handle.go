package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"tickwork/internal/runtime/supervisor"
	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
)

// Rejection is a descriptor that could not be registered at Start.
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Handle controls a started scheduler.
type Handle struct {
	s      *Scheduler
	log    logx.Logger
	cancel context.CancelFunc
	disp   *dispatcher
	cron   CronRunner
	loops  *supervisor.Group
	work   *supervisor.Group

	entries  []*entry
	disabled []string
	failed   []Rejection

	startedAt time.Time
	stopped   atomic.Bool
}

// Shutdown stops all scheduling. After it returns no new invocation starts.
//
// Running task bodies are not awaited; their context is cancelled. The wait for the
// cron runner and the timer loops is bounded by ctx, whose error is returned if it
// expires. A second call returns ErrStopped.
func (h *Handle) Shutdown(ctx context.Context) error {
	if !h.stopped.CompareAndSwap(false, true) {
		return ErrStopped
	}
	start := time.Now()
	h.s.setState(StateShuttingDown)
	h.log.Info("scheduler stopping", logx.Int64("in_flight", h.InFlight()))

	h.disp.gate.close()
	h.cancel()

	var errs []error
	select {
	case <-h.cron.Stop().Done():
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("stop cron: %w", ctx.Err()))
	}
	if err := h.loops.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop loops: %w", err))
	}

	h.s.setState(StateStopped)
	err := errors.Join(errs...)
	fields := []logx.Field{logx.Duration("took", time.Since(start)), logx.Int64("abandoned", h.InFlight())}
	if err != nil {
		h.log.Warn("scheduler stopped with errors", append(fields, logx.Err(err))...)
	} else {
		h.log.Info("scheduler stopped", fields...)
	}
	return err
}

// InFlight is the number of task bodies currently running.
func (h *Handle) InFlight() int64 { return h.work.Counters().Active }

// EntryInfo describes one scheduled descriptor.
type EntryInfo struct {
	Name         string        `json:"name"`
	Kind         string        `json:"kind"`
	Origin       string        `json:"origin"`
	Instance     string        `json:"instance,omitempty"`
	Expr         string        `json:"expr,omitempty"`
	Zone         string        `json:"zone,omitempty"`
	Interval     time.Duration `json:"interval,omitempty"`
	InitialDelay time.Duration `json:"initial_delay"`
	Next         time.Time     `json:"next,omitempty"`
	Prev         time.Time     `json:"prev,omitempty"`
	Runs         uint64        `json:"runs"`
	Running      int64         `json:"running"`
}

type Snapshot struct {
	State     string              `json:"state"`
	StartedAt time.Time           `json:"started_at"`
	Entries   []EntryInfo         `json:"entries"`
	Disabled  []string            `json:"disabled,omitempty"`
	Failed    []Rejection         `json:"failed,omitempty"`
	InFlight  int64               `json:"in_flight"`
	Loops     supervisor.Counters `json:"loops"`
	Runs      supervisor.Counters `json:"runs"`
}

func (h *Handle) Snapshot() Snapshot {
	runs := map[string]supervisor.NameStats{}
	for _, st := range h.work.Snapshot().Names {
		runs[st.Name] = st
	}
	items := make([]EntryInfo, 0, len(h.entries))
	for _, e := range h.entries {
		it := EntryInfo{
			Name:         e.name,
			Kind:         e.kind.String(),
			Origin:       e.origin.String(),
			Instance:     e.instance,
			InitialDelay: e.initialDelay,
			Runs:         runs[e.name].Started,
			Running:      runs[e.name].Active,
		}
		if e.kind == task.KindCron {
			it.Expr = e.expr
			it.Zone = e.zone
			it.Next, it.Prev = h.cron.Entry(e.cronID)
		} else {
			it.Interval = e.interval
		}
		items = append(items, it)
	}
	return Snapshot{
		State:     h.s.State().String(),
		StartedAt: h.startedAt,
		Entries:   items,
		Disabled:  append([]string(nil), h.disabled...),
		Failed:    append([]Rejection(nil), h.failed...),
		InFlight:  h.InFlight(),
		Loops:     h.loops.Counters(),
		Runs:      h.work.Counters(),
	}
}

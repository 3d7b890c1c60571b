package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tickwork/internal/config"
	"tickwork/internal/runtime/supervisor"
	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
)

// Scheduler owns the materialized descriptors. It starts at most once.
type Scheduler struct {
	opts  options
	store config.Lookup
	descs []task.Descriptor

	state atomic.Int32
	mu    sync.Mutex
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

// Len is the number of descriptors, enabled or not.
func (s *Scheduler) Len() int { return len(s.descs) }

func (s *Scheduler) setState(st State) { s.state.Store(int32(st)) }

// Start resolves every descriptor and begins scheduling.
//
// A descriptor that fails to resolve or register is logged with [ERROR] and skipped.
// Failing to resolve an enabled flag aborts Start and leaves the scheduler Stopped.
// ctx is the parent of the context task bodies receive.
func (s *Scheduler) Start(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CompareAndSwap(int32(StateBuilt), int32(StateStarting)) {
		return nil, ErrNotBuilt
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := s.opts.log
	resolver := config.Resolver{Store: s.store, Log: log}

	fromInstances := 0
	for _, d := range s.descs {
		if d.Instance != "" {
			fromInstances++
		}
	}
	log.Info(fmt.Sprintf("starting scheduler with %d total tasks (%d from registered instances)", len(s.descs), fromInstances),
		logx.Int("tasks", len(s.descs)), logx.Int("from_instances", fromInstances))

	runCtx, cancel := context.WithCancel(ctx)
	loops := supervisor.New(runCtx, supervisor.WithLogger(log))
	work := supervisor.New(runCtx, supervisor.WithLogger(log))
	disp := &dispatcher{
		gate:   &gate{},
		work:   work,
		bus:    s.opts.bus,
		log:    log,
		report: newFailureReporter(log, s.opts.failRate, s.opts.failBurst),
	}
	runner := s.opts.newCron(log)

	h := &Handle{
		s:      s,
		log:    log,
		cancel: cancel,
		disp:   disp,
		cron:   runner,
		loops:  loops,
		work:   work,
	}

	var intervals []*entry
	for _, d := range s.descs {
		enabled, err := resolveEnabled(d, resolver, log)
		if err != nil {
			cancel()
			s.setState(StateStopped)
			log.Error(TagError+" "+d.Name+": cannot resolve enabled", logx.String("tag", TagError), logx.String("task", d.Name), logx.Err(err))
			return nil, fmt.Errorf("scheduler: start: %s: enabled: %w", d.Name, err)
		}
		if !enabled {
			h.disabled = append(h.disabled, d.Name)
			log.Info(TagDisabled+" "+d.Name, logx.String("tag", TagDisabled), logx.String("task", d.Name), logx.String("origin", d.Work.Origin().String()))
			continue
		}

		e, err := resolveEntry(d, resolver, log)
		if err == nil && e.kind == task.KindCron {
			e.cronID, err = runner.Add(e.expr, e.cronZone(), e.initialDelay, func() { disp.invoke(e) })
		}
		if err != nil {
			h.failed = append(h.failed, Rejection{Name: d.Name, Reason: err.Error()})
			class := "schedule"
			if isConfigError(err) {
				class = "config"
			}
			log.Error(TagError+" failed to register "+d.Name, logx.String("tag", TagError), logx.String("task", d.Name),
				logx.String("kind", d.Schedule.Kind.String()), logx.String("class", class), logx.Err(err))
			continue
		}

		h.entries = append(h.entries, e)
		if e.kind.Interval() {
			intervals = append(intervals, e)
		}
		log.Info(TagRegister+" "+d.Name, append([]logx.Field{logx.String("tag", TagRegister)}, e.fields()...)...)
	}

	runner.Start()
	for _, e := range intervals {
		e := e
		loops.Go0(e.name, func(ctx context.Context) { disp.intervalLoop(ctx, e) })
	}
	h.startedAt = time.Now()
	s.setState(StateRunning)

	log.Info("scheduler started",
		logx.Int("registered", len(h.entries)),
		logx.Int("disabled", len(h.disabled)),
		logx.Int("failed", len(h.failed)),
		logx.Int("loops", len(intervals)),
	)
	return h, nil
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tickwork/internal/config"
	"tickwork/internal/eventbus"
	"tickwork/internal/jobs"
	"tickwork/internal/observability/pprof"
	"tickwork/internal/runtime/supervisor"
	"tickwork/internal/scheduler"
	"tickwork/internal/storage"
	logx "tickwork/pkg/logx"
	"tickwork/pkg/systemdmanager"
)

// DefaultEnvPrefix is the environment overlay prefix: APP_JOBS_HEARTBEAT_INTERVAL=5s
// sets jobs.heartbeat.interval.
const DefaultEnvPrefix = "APP_"

// App owns the process: config, logging, run history, the scheduler and the optional
// debug server.
type App struct {
	cfgm     *config.Manager
	settings Settings

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	pprof *pprof.Service
	units *systemdmanager.Manager

	sup    *supervisor.Group
	handle *scheduler.Handle

	// Jobs overrides job dependencies; nil uses the real ones. Tests set it.
	Jobs func(d jobs.Deps) jobs.Deps
}

// New loads the config and opens the resources it names. A config that cannot be
// loaded or mapped is an error; nothing is scheduled.
func New(cfgPath, envPrefix string) (*App, error) {
	cfgm := config.NewManager(cfgPath, envPrefix)
	st, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	settings, err := mapSettings(st)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(settings.Logging)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	var store storage.Store
	if settings.Storage.Driver != "" {
		store, err = storage.Open(settings.Storage, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		log.Info("run history enabled", logx.String("driver", settings.Storage.Driver), logx.String("path", settings.Storage.Path))
	}

	return &App{
		cfgm:     cfgm,
		settings: settings,
		log:      log.With(logx.String("comp", "app")),
		logs:     logSvc,
		bus:      eventbus.New(),
		store:    store,
		pprof:    pprof.New(settings.Pprof, log.With(logx.String("comp", "pprof"))),
	}, nil
}

// Start builds and starts the scheduler, then the background services.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	if a.store != nil {
		events, unsub := a.bus.Subscribe(256)
		rec := storage.NewRecorder(a.store, a.log.With(logx.String("comp", "history")))
		a.sup.Go0("history.recorder", func(c context.Context) {
			defer unsub()
			rec.Run(c, events)
		})
	}

	deps := jobs.Deps{Store: a.store, Retention: a.settings.HistoryRetention, Units: a.settings.Units}
	if len(deps.Units) > 0 {
		mgr, err := systemdmanager.New(ctx)
		if err != nil {
			a.log.Warn("unit watch disabled", logx.Err(err))
		} else {
			a.units = mgr
			deps.Prober = mgr
		}
	}
	if a.Jobs != nil {
		deps = a.Jobs(deps)
	}

	schedLog := a.log.With(logx.String("comp", "scheduler"))
	b := scheduler.NewBuilder(
		scheduler.WithLogger(schedLog),
		scheduler.WithEventBus(a.bus),
		scheduler.WithFailureLogRate(a.settings.FailureLogPerSec, a.settings.FailureLogBurst),
	).WithConfig(a.cfgm.Get())
	s, err := jobs.Register(b, deps).Build()
	if err != nil {
		a.sup.Cancel()
		return err
	}
	h, err := s.Start(ctx)
	if err != nil {
		a.sup.Cancel()
		return err
	}
	a.handle = h

	a.pprof.Handle("/tasks", http.HandlerFunc(a.serveSnapshot))
	if err := a.pprof.Start(a.sup.Context()); err != nil {
		a.log.Warn("debug server not started", logx.Err(err))
	}

	a.watchConfig()
	return nil
}

func (a *App) watchConfig() {
	sub, unsubscribe := a.cfgm.Subscribe(8)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer unsubscribe()
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case st, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(last, st)
				last = st
			}
		}
	})
}

// applyReload applies what can change live (logging) and reports the rest. Schedules
// were resolved at start, so changed jobs.* keys need a restart.
func (a *App) applyReload(prev, next *config.Store) {
	a.log.Info("config reloaded", config.SummarizeChange(prev, next)...)

	settings, err := mapSettings(next)
	if err != nil {
		a.log.Warn("invalid config ignored; keeping previous settings", logx.Err(err))
		return
	}
	a.logs.Apply(settings.Logging)

	added, removed, changed := config.DiffKeys(prev, next)
	var restart []string
	for _, k := range append(append(added, removed...), changed...) {
		if !strings.HasPrefix(k, "logging.") {
			restart = append(restart, k)
		}
	}
	if len(restart) > 0 {
		a.log.Warn("config changes take effect after restart", logx.Strings("keys", restart))
	}
}

func (a *App) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	if a.handle == nil {
		http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(a.handle.Snapshot())
}

// Handle is the running scheduler's handle, nil before Start.
func (a *App) Handle() *scheduler.Handle { return a.handle }

// Done is closed when the app context ends.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Stop shuts the scheduler down, then the background services, then closes resources.
// The scheduler gets scheduler.shutdown_timeout unless ctx is shorter.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.handle != nil {
		sctx, cancel := context.WithTimeout(ctx, a.settings.ShutdownTimeout)
		if err := a.handle.Shutdown(sctx); err != nil && !errors.Is(err, scheduler.ErrStopped) {
			errs = append(errs, err)
		}
		cancel()
	}

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := a.pprof.Stop(pctx); err != nil {
		errs = append(errs, err)
	}
	cancel()

	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.units != nil {
		_ = a.units.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if n := a.bus.Dropped(); n > 0 {
		a.log.Warn("events dropped by slow subscribers", logx.Uint64("count", n))
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return errors.Join(errs...)
}

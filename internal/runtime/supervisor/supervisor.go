package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	logx "tickwork/pkg/logx"
)

// Group runs named goroutines under one cancellable context.
//   - panics are recovered and counted per name
//   - Wait blocks until every goroutine returned or the caller's ctx expires
//
// A scheduler uses one Group for its timer loops and another for in-flight task runs.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Uint64
	active  atomic.Int64

	log      logx.Logger
	errOnce  sync.Once
	firstErr atomic.Value // error
	doneOnce sync.Once
	doneCh   chan struct{}
	wg       sync.WaitGroup

	mu    sync.Mutex
	stats map[string]*NameStats
}

type Option func(*Group)

func WithLogger(log logx.Logger) Option {
	return func(g *Group) { g.log = log }
}

// Counters are best-effort operational signals, not a synchronization primitive.
type Counters struct {
	Active  int64  `json:"active"`
	Started uint64 `json:"started"`
}

// NameStats aggregates every goroutine started under one name.
type NameStats struct {
	Name         string        `json:"name"`
	Active       int64         `json:"active"`
	Started      uint64        `json:"started"`
	Panics       uint64        `json:"panics"`
	LastStartAt  time.Time     `json:"last_start_at"`
	LastStopAt   time.Time     `json:"last_stop_at"`
	LastErr      string        `json:"last_err,omitempty"`
	LastPanic    string        `json:"last_panic,omitempty"`
	LastRuntime  time.Duration `json:"last_runtime"`
	TotalRuntime time.Duration `json:"total_runtime"`
}

type Snapshot struct {
	Counters   Counters    `json:"counters"`
	FirstError string      `json:"first_error,omitempty"`
	Names      []NameStats `json:"names"`
}

func New(parent context.Context, opts ...Option) *Group {
	ctx, cancel := context.WithCancel(parent)
	g := &Group{
		ctx:    ctx,
		cancel: cancel,
		doneCh: make(chan struct{}),
		stats:  map[string]*NameStats{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Group) Context() context.Context { return g.ctx }

// Cancel cancels the group context without waiting.
func (g *Group) Cancel() { g.cancel() }

func (g *Group) Err() error {
	if err, ok := g.firstErr.Load().(error); ok {
		return err
	}
	return nil
}

func (g *Group) Counters() Counters {
	if g == nil {
		return Counters{}
	}
	return Counters{Active: g.active.Load(), Started: g.started.Load()}
}

// Snapshot is for diagnostics. Names are ordered active first, then by name.
func (g *Group) Snapshot() Snapshot {
	if g == nil {
		return Snapshot{}
	}
	snap := Snapshot{Counters: g.Counters()}
	if err := g.Err(); err != nil {
		snap.FirstError = err.Error()
	}
	g.mu.Lock()
	names := make([]NameStats, 0, len(g.stats))
	for _, st := range g.stats {
		names = append(names, *st)
	}
	g.mu.Unlock()
	sort.Slice(names, func(i, j int) bool {
		if names[i].Active != names[j].Active {
			return names[i].Active > names[j].Active
		}
		return names[i].Name < names[j].Name
	})
	snap.Names = names
	return snap
}

func (g *Group) statLocked(name string) *NameStats {
	st := g.stats[name]
	if st == nil {
		st = &NameStats{Name: name}
		g.stats[name] = st
	}
	return st
}

func (g *Group) noteStart(name string) time.Time {
	now := time.Now()
	g.mu.Lock()
	st := g.statLocked(name)
	st.Started++
	st.Active++
	st.LastStartAt = now
	g.mu.Unlock()
	return now
}

func (g *Group) noteStop(name string, startedAt time.Time, err error, pan any) {
	now := time.Now()
	dur := now.Sub(startedAt)
	g.mu.Lock()
	st := g.statLocked(name)
	if st.Active > 0 {
		st.Active--
	}
	st.LastStopAt = now
	st.LastRuntime = dur
	st.TotalRuntime += dur
	if err != nil {
		st.LastErr = err.Error()
	}
	if pan != nil {
		st.Panics++
		st.LastPanic = fmt.Sprint(pan)
	}
	g.mu.Unlock()
}

// Go starts fn in a goroutine named name. A context.Canceled return is a clean stop.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	g.started.Add(1)
	g.active.Add(1)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.active.Add(-1)

		startedAt := g.noteStart(name)
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic in %s: %v", name, r)
				if !g.log.IsZero() {
					g.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				}
				g.noteStop(name, startedAt, err, r)
				g.setErr(err)
			}
		}()

		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%s: %w", name, err)
			g.setErr(err)
		} else {
			err = nil
		}
		g.noteStop(name, startedAt, err, nil)
	}()
}

func (g *Group) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	g.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

// Stop cancels the context and waits.
func (g *Group) Stop(ctx context.Context) error {
	g.cancel()
	return g.Wait(ctx)
}

// Wait blocks until all goroutines returned or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	g.doneOnce.Do(func() {
		go func() {
			g.wg.Wait()
			close(g.doneCh)
		}()
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.doneCh:
		return g.Err()
	}
}

func (g *Group) setErr(err error) {
	if err == nil {
		return
	}
	g.errOnce.Do(func() { g.firstErr.Store(err) })
}

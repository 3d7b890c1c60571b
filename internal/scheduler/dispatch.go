package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"tickwork/internal/eventbus"
	"tickwork/internal/runtime/supervisor"
	logx "tickwork/pkg/logx"
)

// gate admits invocations until closed. Admission and spawn happen under the read
// lock, so once close returns no new invocation can begin.
type gate struct {
	mu     sync.RWMutex
	closed bool
}

func (g *gate) enter() bool {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return false
	}
	return true
}

func (g *gate) leave() { g.mu.RUnlock() }

func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// dispatcher runs task bodies in the work group: one goroutine per invocation, each
// isolated by its own recover.
type dispatcher struct {
	gate   *gate
	work   *supervisor.Group
	bus    eventbus.Bus
	log    logx.Logger
	report *failureReporter
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// invoke starts one run of e. The returned channel closes when the run ends, or at
// once if the gate is closed.
func (d *dispatcher) invoke(e *entry) <-chan struct{} {
	if !d.gate.enter() {
		return closedCh
	}
	defer d.gate.leave()

	done := make(chan struct{})
	id := uuid.NewString()
	d.work.Go0(e.name, func(ctx context.Context) {
		defer close(done)
		d.run(ctx, e, id)
	})
	return done
}

func (d *dispatcher) run(ctx context.Context, e *entry, id string) {
	start := time.Now()
	ev := eventbus.TaskEvent{ID: id, Name: e.name, Kind: e.kind.String(), Started: start}
	d.publish(eventbus.TaskStarted, start, ev)
	if d.log.Enabled(logx.LevelTrace) {
		d.log.Trace("task started", logx.String("task", e.name), logx.String("id", id))
	}

	var (
		err   error
		pan   any
		stack []byte
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				pan = r
				stack = debug.Stack()
			}
		}()
		err = e.work.Run(logx.IntoContext(ctx, d.log.With(logx.String("task", e.name), logx.String("id", id))))
	}()

	ev.Duration = time.Since(start)
	now := time.Now()
	switch {
	case pan != nil:
		ev.Error = fmt.Sprint(pan)
		d.publish(eventbus.TaskPanic, now, ev)
		d.report.panicked(e.name, logx.String("id", id), logx.Any("panic", pan), logx.Stack(string(stack)))
	case err != nil:
		ev.Error = err.Error()
		d.publish(eventbus.TaskFailed, now, ev)
		d.report.failed(e.name, logx.String("id", id), logx.Err(err), logx.Duration("dur", ev.Duration))
	default:
		d.publish(eventbus.TaskFinished, now, ev)
		d.log.Debug("task finished", logx.String("task", e.name), logx.String("id", id), logx.Duration("dur", ev.Duration))
	}
}

func (d *dispatcher) publish(typ string, at time.Time, ev eventbus.TaskEvent) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Type: typ, Time: at, Data: ev})
}

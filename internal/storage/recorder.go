package storage

import (
	"context"
	"time"

	"tickwork/internal/eventbus"
	logx "tickwork/pkg/logx"
)

// Recorder appends a RunRecord for every terminal task event on a bus.
type Recorder struct {
	store Store
	log   logx.Logger
	// WriteTimeout bounds each append; 0 means 2s.
	WriteTimeout time.Duration
}

func NewRecorder(store Store, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{store: store, log: log}
}

// Run consumes events until ctx is done or the channel closes. Events already
// buffered when ctx ends are still recorded.
func (r *Recorder) Run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			r.drain(events)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			r.handle(e)
		}
	}
}

func (r *Recorder) drain(events <-chan eventbus.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			r.handle(e)
		default:
			return
		}
	}
}

func (r *Recorder) handle(e eventbus.Event) {
	if rec, ok := RecordFromEvent(e); ok {
		r.append(rec)
	}
}

func (r *Recorder) append(rec RunRecord) {
	timeout := r.WriteTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.store.AppendRun(ctx, rec); err != nil {
		r.log.Warn("run history append failed", logx.String("task", rec.Task), logx.String("id", rec.ID), logx.Err(err))
	}
}

// RecordFromEvent maps a terminal task event to a record.
func RecordFromEvent(e eventbus.Event) (RunRecord, bool) {
	if !eventbus.Terminal(e.Type) {
		return RunRecord{}, false
	}
	te, ok := e.Data.(eventbus.TaskEvent)
	if !ok {
		return RunRecord{}, false
	}
	var status string
	switch e.Type {
	case eventbus.TaskFinished:
		status = StatusFinished
	case eventbus.TaskFailed:
		status = StatusFailed
	case eventbus.TaskPanic:
		status = StatusPanic
	default:
		return RunRecord{}, false
	}
	return RunRecord{
		ID:       te.ID,
		Task:     te.Name,
		Kind:     te.Kind,
		Status:   status,
		Started:  te.Started,
		Duration: te.Duration,
		Error:    te.Error,
	}, true
}

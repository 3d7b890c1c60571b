package jobs

import (
	"context"
	"sync"
	"time"

	"tickwork/internal/storage"
	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
)

// DefaultRetention is how long run records are kept when jobs.history.retention is unset.
const DefaultRetention = 7 * 24 * time.Hour

// HistoryJanitor prunes and summarizes the run-history store. Both methods share the
// janitor, so Report can mention what the last Prune removed.
type HistoryJanitor struct {
	Store     storage.Store
	Retention time.Duration
	now       func() time.Time

	mu       sync.Mutex
	pruned   int64
	prunedAt time.Time
}

func NewHistoryJanitor(store storage.Store, retention time.Duration) *HistoryJanitor {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &HistoryJanitor{Store: store, Retention: retention, now: time.Now}
}

func (h *HistoryJanitor) ScheduledMethods() []task.Method {
	return []task.Method{
		task.Bind(h, "prune", task.Metadata{
			Schedule: task.Cron("${jobs.history.prune_cron:0 30 3 * * *}", "${jobs.history.zone:local}"),
			Enabled:  "${jobs.history.enabled:true}",
		}, (*HistoryJanitor).Prune),
		task.Bind(h, "report", task.Metadata{
			Schedule:     task.FixedRate("${jobs.history.report_interval:1h}"),
			InitialDelay: "${jobs.history.report_delay:1m}",
			Enabled:      "${jobs.history.enabled:true}",
		}, (*HistoryJanitor).Report),
	}
}

// Prune deletes records older than the retention window.
func (h *HistoryJanitor) Prune(ctx context.Context) error {
	if h.Store == nil {
		return storage.ErrDisabled
	}
	now := h.now()
	n, err := h.Store.Prune(ctx, now.Add(-h.Retention))
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.pruned, h.prunedAt = n, now
	h.mu.Unlock()
	logx.FromContext(ctx).Info("run history pruned", logx.Int64("removed", n), logx.Duration("retention", h.Retention))
	return nil
}

// Report logs outcome counts over the most recent records.
func (h *HistoryJanitor) Report(ctx context.Context) error {
	if h.Store == nil {
		return storage.ErrDisabled
	}
	runs, err := h.Store.RecentRuns(ctx, "", 1000)
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for _, r := range runs {
		counts[r.Status]++
	}
	fields := []logx.Field{
		logx.Int("sampled", len(runs)),
		logx.Int(storage.StatusFinished, counts[storage.StatusFinished]),
		logx.Int(storage.StatusFailed, counts[storage.StatusFailed]),
		logx.Int(storage.StatusPanic, counts[storage.StatusPanic]),
	}
	h.mu.Lock()
	if !h.prunedAt.IsZero() {
		fields = append(fields, logx.Int64("last_pruned", h.pruned), logx.Time("last_pruned_at", h.prunedAt))
	}
	h.mu.Unlock()
	logx.FromContext(ctx).Info("run history report", fields...)
	return nil
}

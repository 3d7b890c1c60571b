package jobs

import (
	"time"

	"tickwork/internal/scheduler"
	"tickwork/internal/storage"
)

// Deps are the process resources some jobs need.
type Deps struct {
	// Store enables HistoryJanitor when non-nil.
	Store     storage.Store
	Retention time.Duration

	// Units enables UnitWatch when non-empty.
	Units  []string
	Prober UnitProber
}

// Register adds the resource-bound jobs to b. Jobs whose resource is absent are skipped.
func Register(b *scheduler.Builder, d Deps) *scheduler.Builder {
	if d.Store != nil {
		b.RegisterInstance(NewHistoryJanitor(d.Store, d.Retention))
	}
	if len(d.Units) > 0 && d.Prober != nil {
		b.RegisterRunnable("unit_watch", unitWatchMetadata(), NewUnitWatch(d.Prober, d.Units))
	}
	return b
}

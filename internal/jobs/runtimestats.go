package jobs

import (
	"context"
	"runtime"
	"sync"

	"github.com/dustin/go-humanize"

	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
)

// RuntimeStats logs Go runtime memory and GC figures. It keeps the previous GC count
// to report collections since the last run.
type RuntimeStats struct {
	mu     sync.Mutex
	lastGC uint32
	read   func(*runtime.MemStats)
}

func (r *RuntimeStats) Run(ctx context.Context) error {
	var m runtime.MemStats
	read := r.read
	if read == nil {
		read = runtime.ReadMemStats
	}
	read(&m)

	r.mu.Lock()
	delta := m.NumGC - r.lastGC
	r.lastGC = m.NumGC
	r.mu.Unlock()

	logx.FromContext(ctx).Info("runtime stats",
		logx.String("heap_alloc", humanize.IBytes(m.HeapAlloc)),
		logx.String("sys", humanize.IBytes(m.Sys)),
		logx.Uint64("heap_objects", m.HeapObjects),
		logx.Int("goroutines", runtime.NumGoroutine()),
		logx.Int64("gc_cycles", int64(delta)),
		logx.Float64("gc_cpu_fraction", m.GCCPUFraction),
	)
	return nil
}

func runtimeStatsDescriptor() task.Descriptor {
	return task.Descriptor{
		Name: "runtime_stats",
		Metadata: task.Metadata{
			Schedule:     task.FixedDelay("${jobs.runtime_stats.interval:5m}"),
			InitialDelay: "${jobs.runtime_stats.initial_delay:30s}",
			Enabled:      "${jobs.runtime_stats.enabled:true}",
		},
		Work: task.RunnableWork{R: &RuntimeStats{}},
	}
}

// runtimeStatsFactory builds the job when the registry is materialized so the first
// report counts collections since startup rather than since process init.
func runtimeStatsFactory() ([]task.Descriptor, error) {
	d := runtimeStatsDescriptor().WithDefaults()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	d.Work = task.RunnableWork{R: &RuntimeStats{lastGC: m.NumGC}}
	return []task.Descriptor{d}, d.Validate()
}

func init() {
	if err := task.RegisterFactory(runtimeStatsFactory); err != nil {
		panic(err)
	}
}

package scheduler

import (
	"sync"

	"golang.org/x/time/rate"

	logx "tickwork/pkg/logx"
)

// failureReporter throttles failure and panic logs per task, so a fast fixed-rate task
// that keeps failing cannot flood the sink. Suppressed lines are counted and reported
// with the next line that gets through.
type failureReporter struct {
	log   logx.Logger
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	dropped  map[string]uint64
}

func newFailureReporter(log logx.Logger, limit rate.Limit, burst int) *failureReporter {
	return &failureReporter{
		log:      log,
		limit:    limit,
		burst:    burst,
		limiters: map[string]*rate.Limiter{},
		dropped:  map[string]uint64{},
	}
}

// allow reports whether a line for name may be logged now, and how many were
// suppressed since the last one.
func (r *failureReporter) allow(name string) (bool, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lim := r.limiters[name]
	if lim == nil {
		lim = rate.NewLimiter(r.limit, r.burst)
		r.limiters[name] = lim
	}
	if !lim.Allow() {
		r.dropped[name]++
		return false, 0
	}
	n := r.dropped[name]
	delete(r.dropped, name)
	return true, n
}

func (r *failureReporter) failed(name string, fields ...logx.Field) {
	ok, suppressed := r.allow(name)
	if !ok {
		return
	}
	if suppressed > 0 {
		fields = append(fields, logx.Uint64("suppressed", suppressed))
	}
	r.log.Warn("task failed", append([]logx.Field{logx.String("task", name)}, fields...)...)
}

func (r *failureReporter) panicked(name string, fields ...logx.Field) {
	ok, suppressed := r.allow(name)
	if !ok {
		return
	}
	if suppressed > 0 {
		fields = append(fields, logx.Uint64("suppressed", suppressed))
	}
	r.log.Error("task panicked", append([]logx.Field{logx.String("task", name)}, fields...)...)
}

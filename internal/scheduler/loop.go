package scheduler

import (
	"context"
	"time"

	"tickwork/internal/task"
)

// intervalLoop drives one fixed-rate or fixed-delay entry until ctx is done.
//
// The first run happens one interval after the initial delay; there is no run at
// the moment the loop starts.
func (d *dispatcher) intervalLoop(ctx context.Context, e *entry) {
	if e.initialDelay > 0 {
		t := time.NewTimer(e.initialDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	if e.kind == task.KindFixedDelay {
		d.fixedDelay(ctx, e)
		return
	}
	d.fixedRate(ctx, e)
}

// fixedRate dispatches on every tick without waiting for the previous run.
// time.Ticker drops ticks for a slow receiver, but dispatch never blocks.
func (d *dispatcher) fixedRate(ctx context.Context, e *entry) {
	tk := time.NewTicker(e.interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			d.invoke(e)
		}
	}
}

// fixedDelay runs, waits for the run to end, then waits a full interval.
// A hung body stalls only this loop; shutdown still releases it through ctx.
func (d *dispatcher) fixedDelay(ctx context.Context, e *entry) {
	t := time.NewTimer(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		select {
		case <-ctx.Done():
			return
		case <-d.invoke(e):
		}
		t.Reset(e.interval)
	}
}

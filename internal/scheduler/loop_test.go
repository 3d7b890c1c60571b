package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"tickwork/internal/config"
	"tickwork/internal/task"
)

func TestFixedRateInvocationCount(t *testing.T) {
	rec := &recorder{}
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().
		RegisterFunc("rate", task.Metadata{Schedule: task.FixedRate("100ms"), InitialDelay: "0"}, rec.job(0)))

	time.Sleep(950 * time.Millisecond)
	shutdown(t, h)

	if n := rec.count(); n < 8 || n > 10 {
		t.Fatalf("invocations = %d, want about 9", n)
	}
}

func TestFixedDelayWaitsForCompletion(t *testing.T) {
	rec := &recorder{}
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().
		RegisterFunc("delay", meta(task.FixedDelay("100ms")), rec.job(300*time.Millisecond)))

	time.Sleep(1500 * time.Millisecond)
	shutdown(t, h)

	starts, maxPar := rec.snapshot()
	if maxPar != 1 {
		t.Fatalf("max concurrent runs = %d, want 1", maxPar)
	}
	if len(starts) < 2 {
		t.Fatalf("runs = %d, want at least 2", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < 380*time.Millisecond || gap > 600*time.Millisecond {
			t.Fatalf("gap %d = %s, want about 400ms", i, gap)
		}
	}
}

func TestFixedRateAllowsOverlap(t *testing.T) {
	rec := &recorder{}
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().
		RegisterFunc("overlap", meta(task.FixedRate("50ms")), rec.job(250*time.Millisecond)))

	time.Sleep(600 * time.Millisecond)
	if h.InFlight() < 2 {
		t.Fatalf("in flight = %d, want overlapping runs", h.InFlight())
	}
	shutdown(t, h)

	starts, maxPar := rec.snapshot()
	if maxPar < 2 {
		t.Fatalf("max concurrent runs = %d, want >= 2", maxPar)
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap > 150*time.Millisecond {
			t.Fatalf("gap %d = %s; fixed rate must not wait for the previous run", i, gap)
		}
	}
}

func TestInitialDelay(t *testing.T) {
	rec := &recorder{}
	begin := time.Now()
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().
		RegisterFunc("late", task.Metadata{Schedule: task.FixedRate("50ms"), InitialDelay: "300ms"}, rec.job(0)))

	waitFor(t, 2*time.Second, func() bool { return rec.count() > 0 })
	shutdown(t, h)
	starts, _ := rec.snapshot()
	if first := starts[0].Sub(begin); first < 340*time.Millisecond {
		t.Fatalf("first run after %s, want >= initial delay + interval", first)
	}
}

func TestDisabledNeverRuns(t *testing.T) {
	store := config.NewStore(map[string]string{"jobs.sync.enabled": "False"})
	rec := &recorder{}
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().WithConfig(store).
		RegisterFunc("off-literal", task.Metadata{Schedule: task.FixedRate("10ms"), Enabled: "FALSE"}, rec.job(0)).
		RegisterFunc("off-config", task.Metadata{Schedule: task.FixedDelay("10ms"), Enabled: "${jobs.sync.enabled}"}, rec.job(0)).
		RegisterFunc("off-default", task.Metadata{Schedule: task.FixedRate("10ms"), Enabled: "${jobs.other.enabled:false}"}, rec.job(0)))

	time.Sleep(150 * time.Millisecond)
	snap := h.Snapshot()
	shutdown(t, h)

	if rec.count() != 0 {
		t.Fatalf("disabled tasks ran %d times", rec.count())
	}
	if snap.Loops.Started != 0 {
		t.Fatalf("loops started = %d, want 0", snap.Loops.Started)
	}
	if len(snap.Disabled) != 3 || len(snap.Entries) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestNoInvocationAfterShutdown(t *testing.T) {
	rate, delay := &recorder{}, &recorder{}
	fc := &fakeCron{}
	h := mustStart(t, NewBuilder(fc.option()).WithoutDefaultRegistry().
		RegisterFunc("rate", meta(task.FixedRate("10ms")), rate.job(0)).
		RegisterFunc("delay", meta(task.FixedDelay("10ms")), delay.job(5*time.Millisecond)).
		RegisterFunc("cron", meta(task.Cron("* * * * * *", "")), rate.job(0)))

	waitFor(t, time.Second, func() bool { return rate.count() > 3 && delay.count() > 3 })
	shutdown(t, h)

	fc.fire(0)
	time.Sleep(20 * time.Millisecond)
	r0, d0 := rate.count(), delay.count()
	time.Sleep(200 * time.Millisecond)
	if r1, d1 := rate.count(), delay.count(); r1 != r0 || d1 != d0 {
		t.Fatalf("runs after shutdown: rate %d->%d delay %d->%d", r0, r1, d0, d1)
	}
	if h.Snapshot().State != StateStopped.String() {
		t.Fatalf("state = %s", h.Snapshot().State)
	}
}

func TestShutdownCancelsRunningBodies(t *testing.T) {
	cancelled := make(chan struct{})
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().
		RegisterFunc("hung", meta(task.FixedDelay("10ms")), func(ctx context.Context) error {
			<-ctx.Done()
			close(cancelled)
			return ctx.Err()
		}))

	waitFor(t, time.Second, func() bool { return h.InFlight() == 1 })
	shutdown(t, h)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
}

func TestShutdownTwice(t *testing.T) {
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().
		RegisterFunc("x", meta(task.FixedRate("1h")), func(context.Context) error { return nil }))
	shutdown(t, h)
	if err := h.Shutdown(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("second Shutdown = %v, want ErrStopped", err)
	}
}

func TestPanicDoesNotStopLoop(t *testing.T) {
	rec := &recorder{}
	h := mustStart(t, NewBuilder().WithoutDefaultRegistry().
		RegisterFunc("panics", meta(task.FixedDelay("20ms")), func(ctx context.Context) error {
			rec.begin()
			rec.end()
			panic("boom")
		}).
		RegisterFunc("fails", meta(task.FixedRate("20ms")), func(ctx context.Context) error {
			return errors.New("nope")
		}))

	waitFor(t, 2*time.Second, func() bool { return rec.count() >= 3 })
	shutdown(t, h)
}

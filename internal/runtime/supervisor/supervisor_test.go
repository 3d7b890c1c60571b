package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGroupRecoversPanicAndCounts(t *testing.T) {
	t.Parallel()
	g := New(context.Background())
	g.Go0("boom", func(ctx context.Context) { panic("kaboom") })
	g.Go("ok", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := g.Wait(ctx)
	if err == nil {
		t.Fatal("expected first error from panic")
	}

	snap := g.Snapshot()
	if snap.Counters.Started != 2 || snap.Counters.Active != 0 {
		t.Fatalf("counters = %+v", snap.Counters)
	}
	var boom NameStats
	for _, n := range snap.Names {
		if n.Name == "boom" {
			boom = n
		}
	}
	if boom.Panics != 1 || boom.LastPanic != "kaboom" {
		t.Fatalf("boom stats = %+v", boom)
	}
}

func TestGroupStopCancelsContext(t *testing.T) {
	t.Parallel()
	g := New(context.Background())
	g.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Stop(ctx); err != nil {
		t.Fatalf("Stop = %v, want nil (context.Canceled is a clean stop)", err)
	}
}

func TestGroupWaitHonorsDeadline(t *testing.T) {
	t.Parallel()
	g := New(context.Background())
	release := make(chan struct{})
	g.Go0("stuck", func(ctx context.Context) { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want DeadlineExceeded", err)
	}
	if g.Counters().Active != 1 {
		t.Fatalf("active = %d, want 1", g.Counters().Active)
	}
}

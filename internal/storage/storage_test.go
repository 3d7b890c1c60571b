package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"tickwork/internal/eventbus"
	logx "tickwork/pkg/logx"
)

func record(task, status string, started time.Time) RunRecord {
	return RunRecord{ID: uuid.NewString(), Task: task, Kind: "fixed_rate", Status: status, Started: started, Duration: 15 * time.Millisecond}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = (%v, %v), want (nil, nil)", d, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestStores(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "history.db"), BusyTimeout: time.Second}, logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer st.Close()

			ctx := context.Background()
			base := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
			for i := 0; i < 3; i++ {
				if err := st.AppendRun(ctx, record("a", StatusFinished, base.Add(time.Duration(i)*time.Second))); err != nil {
					t.Fatalf("AppendRun: %v", err)
				}
			}
			failed := record("b", StatusFailed, base.Add(10*time.Second))
			failed.Error = "boom"
			if err := st.AppendRun(ctx, failed); err != nil {
				t.Fatalf("AppendRun: %v", err)
			}

			got, err := st.RecentRuns(ctx, "a", 2)
			if err != nil {
				t.Fatalf("RecentRuns: %v", err)
			}
			if len(got) != 2 || !got[0].Started.Equal(base.Add(2*time.Second)) {
				t.Fatalf("RecentRuns(a, 2) = %+v", got)
			}

			all, err := st.RecentRuns(ctx, "", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 4 || all[0].Task != "b" || all[0].Error != "boom" || all[0].Status != StatusFailed {
				t.Fatalf("RecentRuns(all) = %+v", all)
			}
			if all[0].Duration != 15*time.Millisecond {
				t.Fatalf("duration = %s", all[0].Duration)
			}

			n, err := st.Prune(ctx, base.Add(1500*time.Millisecond))
			if err != nil {
				t.Fatalf("Prune: %v", err)
			}
			if n != 2 {
				t.Fatalf("Prune removed %d, want 2", n)
			}
			rest, err := st.RecentRuns(ctx, "", 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(rest) != 2 || rest[1].Task != "a" || !rest[1].Started.Equal(base.Add(2*time.Second)) {
				t.Fatalf("after prune = %+v", rest)
			}
			// Appends still land after a prune.
			if err := st.AppendRun(ctx, record("c", StatusFinished, base.Add(20*time.Second))); err != nil {
				t.Fatalf("AppendRun after prune: %v", err)
			}
			if got, _ := st.RecentRuns(ctx, "c", 1); len(got) != 1 {
				t.Fatalf("RecentRuns(c) = %+v", got)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "runs")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewRecorder(st, logx.Nop()).Run(ctx, ch)
	}()

	now := time.Now()
	bus.Publish(eventbus.Event{Type: eventbus.TaskStarted, Data: eventbus.TaskEvent{ID: "1", Name: "x", Started: now}})
	bus.Publish(eventbus.Event{Type: eventbus.TaskPanic, Data: eventbus.TaskEvent{ID: "1", Name: "x", Started: now, Error: "kaboom"}})
	bus.Publish(eventbus.Event{Type: "other", Data: "ignored"})
	bus.Publish(eventbus.Event{Type: eventbus.TaskFinished, Data: eventbus.TaskEvent{ID: "2", Name: "x", Started: now}})

	deadline := time.Now().Add(2 * time.Second)
	for {
		runs, err := st.RecentRuns(context.Background(), "x", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) == 2 {
			if runs[0].ID != "2" || runs[1].Status != StatusPanic || runs[1].Error != "kaboom" {
				t.Fatalf("runs = %+v", runs)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("recorded %d runs, want 2", len(runs))
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	unsub()
	<-done
}

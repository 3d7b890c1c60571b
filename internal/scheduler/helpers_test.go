package scheduler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// lines decodes every JSON log line written so far.
func (b *lockedBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func (b *lockedBuffer) find(t *testing.T, prefix string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range b.lines(t) {
		if msg, _ := l["message"].(string); strings.HasPrefix(msg, prefix) {
			out = append(out, l)
		}
	}
	return out
}

func testLogger() (logx.Logger, *lockedBuffer) {
	buf := &lockedBuffer{}
	return logx.NewWriter(buf, "debug"), buf
}

// recorder counts runs and remembers their start times.
type recorder struct {
	mu      sync.Mutex
	starts  []time.Time
	running int
	maxPar  int
}

func (r *recorder) begin() {
	r.mu.Lock()
	r.starts = append(r.starts, time.Now())
	r.running++
	if r.running > r.maxPar {
		r.maxPar = r.running
	}
	r.mu.Unlock()
}

func (r *recorder) end() {
	r.mu.Lock()
	r.running--
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts)
}

func (r *recorder) snapshot() ([]time.Time, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.starts...), r.maxPar
}

// job returns a body that records a run and sleeps for d (or until ctx is done).
func (r *recorder) job(d time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		r.begin()
		defer r.end()
		if d > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
		return nil
	}
}

func meta(s task.Schedule) task.Metadata { return task.Metadata{Schedule: s} }

func mustStart(t *testing.T, b *Builder) *Handle {
	t.Helper()
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	h, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h
}

func shutdown(t *testing.T, h *Handle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

type fakeAdd struct {
	expr  string
	zone  string
	delay time.Duration
	job   func()
}

type fakeCron struct {
	mu      sync.Mutex
	adds    []fakeAdd
	started bool
	stopped bool
}

func (f *fakeCron) Add(expr, zone string, delay time.Duration, job func()) (int, error) {
	if _, err := ParseCron(expr, zone); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, fakeAdd{expr: expr, zone: zone, delay: delay, job: job})
	return len(f.adds), nil
}

func (f *fakeCron) Entry(id int) (time.Time, time.Time) { return time.Time{}, time.Time{} }

func (f *fakeCron) Start() {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func (f *fakeCron) fire(i int) {
	f.mu.Lock()
	job := f.adds[i].job
	f.mu.Unlock()
	job()
}

func (f *fakeCron) option() Option {
	return WithCronRunner(func(logx.Logger) CronRunner { return f })
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", d)
}

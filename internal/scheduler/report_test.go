package scheduler

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestFailureReporterThrottles(t *testing.T) {
	t.Parallel()
	log, buf := testLogger()
	r := newFailureReporter(log, rate.Limit(0.001), 2)
	for i := 0; i < 10; i++ {
		r.failed("flaky")
	}
	r.failed("other")
	if n := len(buf.find(t, "task failed")); n != 3 {
		t.Fatalf("logged %d lines, want 3 (burst per task)", n)
	}
	if r.dropped["flaky"] != 8 {
		t.Fatalf("dropped = %d, want 8", r.dropped["flaky"])
	}
}

func TestFailureReporterUnlimited(t *testing.T) {
	t.Parallel()
	log, buf := testLogger()
	r := newFailureReporter(log, rate.Inf, 1)
	for i := 0; i < 5; i++ {
		r.panicked("p")
	}
	if n := len(buf.find(t, "task panicked")); n != 5 {
		t.Fatalf("logged %d lines, want 5", n)
	}
}

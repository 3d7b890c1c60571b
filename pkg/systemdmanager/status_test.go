package systemdmanager

import (
	"errors"
	"testing"
	"time"
)

func TestUnitName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"nginx":             "nginx.service",
		" nginx ":           "nginx.service",
		"nginx.service":     "nginx.service",
		"backup.timer":      "backup.timer",
		"app.v2":            "app.v2.service",
		"":                  "",
		"sshd.socket":       "sshd.socket",
		"multi-user.target": "multi-user.target",
	}
	for in, want := range cases {
		if got := UnitName(in); got != want {
			t.Errorf("UnitName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusFromProps(t *testing.T) {
	t.Parallel()
	since := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	st := statusFromProps("nginx.service", map[string]any{
		"LoadState":            "loaded",
		"ActiveState":          "active",
		"SubState":             "running",
		"Description":          "web",
		"ActiveEnterTimestamp": uint64(since.UnixMicro()),
	})
	if !st.Healthy() || !st.Found() {
		t.Fatalf("expected healthy, got %+v", st)
	}
	if !st.ActiveSince.Equal(since) {
		t.Fatalf("ActiveSince = %s, want %s", st.ActiveSince, since)
	}
	if !st.InactiveSince.IsZero() {
		t.Fatalf("InactiveSince = %s, want zero", st.InactiveSince)
	}

	missing := statusFromProps("gone.service", map[string]any{"LoadState": "not-found"})
	if missing.Found() || missing.Healthy() || missing.SubState != "not-found" {
		t.Fatalf("unexpected status for missing unit: %+v", missing)
	}

	failed := statusFromProps("db.service", map[string]any{"LoadState": "loaded", "ActiveState": "failed"})
	if failed.Healthy() {
		t.Fatal("failed unit reported healthy")
	}
}

func TestIsNoSuchUnitErr(t *testing.T) {
	t.Parallel()
	if isNoSuchUnitErr(nil) {
		t.Fatal("nil error matched")
	}
	if !isNoSuchUnitErr(errors.New("org.freedesktop.systemd1.NoSuchUnit: Unit x.service not loaded")) {
		t.Fatal("NoSuchUnit not matched")
	}
	if isNoSuchUnitErr(errors.New("connection reset")) {
		t.Fatal("unrelated error matched")
	}
}

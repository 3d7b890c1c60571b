package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFileFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "yaml", file: "cfg.yaml", body: "app:\n  interval: 5000\n  enabled: false\n  cron: \"0 */5 * * * *\"\n  hosts: [a, b]\n"},
		{name: "json", file: "cfg.json", body: `{"app":{"interval":5000,"enabled":false,"cron":"0 */5 * * * *","hosts":["a","b"]}}`},
		{name: "toml", file: "cfg.toml", body: "[app]\ninterval = 5000\nenabled = false\ncron = \"0 */5 * * * *\"\nhosts = [\"a\", \"b\"]\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			st, err := LoadFile(writeFile(t, tt.file, tt.body), "")
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			want := map[string]string{
				"app.interval": "5000",
				"app.enabled":  "false",
				"app.cron":     "0 */5 * * * *",
				"app.hosts.1":  "b",
			}
			for k, v := range want {
				got, ok := st.Lookup(k)
				if !ok || got != v {
					t.Fatalf("Lookup(%q) = (%q, %v), want %q", k, got, ok, v)
				}
			}
		})
	}
}

func TestLoadFileRejectsTrailingJSON(t *testing.T) {
	if _, err := LoadFile(writeFile(t, "cfg.json", `{"a":1}{"b":2}`), ""); err == nil {
		t.Fatal("expected error for trailing JSON")
	}
}

func TestWithEnvOverlay(t *testing.T) {
	t.Parallel()
	base := NewStore(map[string]string{"jobs.interval": "10s", "keep": "1"})
	st := base.WithEnv("APP", []string{"APP_JOBS_INTERVAL=5s", "APP_NEW_KEY=x", "OTHER_JOBS_INTERVAL=9s", "APP_=bad"})

	if v, _ := st.Lookup("jobs.interval"); v != "5s" {
		t.Fatalf("jobs.interval = %q, want 5s", v)
	}
	if v, _ := st.Lookup("new.key"); v != "x" {
		t.Fatalf("new.key = %q, want x", v)
	}
	if v, _ := st.Lookup("keep"); v != "1" {
		t.Fatalf("keep = %q, want 1", v)
	}
	if v, _ := base.Lookup("jobs.interval"); v != "10s" {
		t.Fatal("WithEnv mutated the original store")
	}
}

func TestTypedAccessors(t *testing.T) {
	t.Parallel()
	st := NewStore(map[string]string{
		"a.bool": "TRUE",
		"a.int":  "42",
		"a.dur":  "1m30s",
		"a.bad":  "nope",
	})
	if b, err := st.Bool("a.bool", false); err != nil || !b {
		t.Fatalf("Bool = (%v, %v)", b, err)
	}
	if n, err := st.Int("a.int", 0); err != nil || n != 42 {
		t.Fatalf("Int = (%d, %v)", n, err)
	}
	if d, err := st.Duration("a.dur", 0); err != nil || d != 90*time.Second {
		t.Fatalf("Duration = (%v, %v)", d, err)
	}
	if d, err := st.Duration("a.missing", 5*time.Second); err != nil || d != 5*time.Second {
		t.Fatalf("Duration default = (%v, %v)", d, err)
	}
	if _, err := st.Bool("a.bad", false); err == nil {
		t.Fatal("expected bool parse error")
	}
	if got := st.String("a.missing", "def"); got != "def" {
		t.Fatalf("String default = %q", got)
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	st := NewStore(map[string]string{
		"units.0": "nginx",
		"units.1": " ",
		"units.2": "postgres",
		"csv":     "a, b,,c",
	})
	if got := strings.Join(st.List("units"), "|"); got != "nginx|postgres" {
		t.Fatalf("List(units) = %q", got)
	}
	if got := strings.Join(st.List("csv"), "|"); got != "a|b|c" {
		t.Fatalf("List(csv) = %q", got)
	}
	if got := st.List("missing"); len(got) != 0 {
		t.Fatalf("List(missing) = %v", got)
	}
}

func TestDiffKeys(t *testing.T) {
	t.Parallel()
	oldSt := NewStore(map[string]string{"a": "1", "b": "2", "c": "3"})
	newSt := NewStore(map[string]string{"a": "1", "b": "20", "d": "4"})
	added, removed, changed := DiffKeys(oldSt, newSt)
	if len(added) != 1 || added[0] != "d" {
		t.Fatalf("added = %v", added)
	}
	if len(removed) != 1 || removed[0] != "c" {
		t.Fatalf("removed = %v", removed)
	}
	if len(changed) != 1 || changed[0] != "b" {
		t.Fatalf("changed = %v", changed)
	}
	if oldSt.Hash() == newSt.Hash() {
		t.Fatal("hash should differ")
	}
	if NewStore(map[string]string{"a": "1"}).Hash() != NewStore(map[string]string{"a": "1"}).Hash() {
		t.Fatal("hash should be stable")
	}
}

func TestManagerReloadPublishesOnChange(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "app:\n  interval: 5s\n")
	m := NewManager(path, "")
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ch, unsubscribe := m.Subscribe(1)
	defer unsubscribe()

	m.reload()
	select {
	case <-ch:
		t.Fatal("unchanged content should not publish")
	default:
	}

	if err := os.WriteFile(path, []byte("app:\n  interval: 10s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	m.reload()
	select {
	case st := <-ch:
		if v, _ := st.Lookup("app.interval"); v != "10s" {
			t.Fatalf("published app.interval = %q", v)
		}
	default:
		t.Fatal("expected a published store")
	}
	if v, _ := m.Get().Lookup("app.interval"); v != "10s" {
		t.Fatalf("Get app.interval = %q", v)
	}
}

func TestManagerUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager(writeFile(t, "cfg.yaml", "a: 1\n"), "")
	ch, unsubscribe := m.Subscribe(1)
	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	m.publish(NewStore(nil))
}

func TestManagerSlowSubscriberSeesNewest(t *testing.T) {
	m := NewManager("unused.yaml", "")
	ch, unsubscribe := m.Subscribe(1)
	defer unsubscribe()
	m.publish(NewStore(map[string]string{"v": "1"}))
	m.publish(NewStore(map[string]string{"v": "2"}))
	st := <-ch
	if v, _ := st.Lookup("v"); v != "2" {
		t.Fatalf("v = %q, want newest", v)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := &backoff{min: 100 * time.Millisecond, max: 300 * time.Millisecond}
	for i, lo := range []time.Duration{100, 200, 300, 300} {
		lo *= time.Millisecond
		if d := b.next(); d < lo || d > lo+lo/2 {
			t.Fatalf("step %d: %v not in [%v,%v]", i, d, lo, lo+lo/2)
		}
	}
	b.reset()
	if d := b.next(); d > 150*time.Millisecond {
		t.Fatalf("after reset: %v", d)
	}
}

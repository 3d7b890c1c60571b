package config

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	logx "tickwork/pkg/logx"
)

const (
	watchBackoffMin = 250 * time.Millisecond
	watchBackoffMax = 5 * time.Second

	reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
)

var errWatcherClosed = errors.New("config: watcher closed")

// backoff is a doubling delay with up to 50% jitter, capped at max.
type backoff struct {
	min, max, cur time.Duration
}

func (b *backoff) next() time.Duration {
	if b.cur < b.min {
		b.cur = b.min
	}
	d := b.cur + rand.N(b.cur/2+1)
	b.cur = min(b.cur*2, b.max)
	return d
}

func (b *backoff) reset() { b.cur = b.min }

// debouncer runs fn once after a quiet period; each trigger restarts the wait.
type debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	fn    func()
	timer *time.Timer
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, d.fn)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Watch blocks until ctx is done, reloading the file after it changes. The parent
// directory is watched so editors that replace the file are seen. A watcher that
// breaks is recreated after a backoff.
func (m *Manager) Watch(ctx context.Context) error {
	dir, file := filepath.Dir(m.path), filepath.Base(m.path)
	deb := &debouncer{wait: m.debounce, fn: m.reload}
	defer deb.stop()
	bo := &backoff{min: watchBackoffMin, max: watchBackoffMax}
	log := m.log.With(logx.String("dir", dir))

	for ctx.Err() == nil {
		err := m.watchOnce(ctx, dir, file, deb, bo, log)
		if ctx.Err() != nil {
			break
		}
		wait := bo.next()
		log.Warn("config watcher restarting", logx.Err(err), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
	return nil
}

// watchOnce runs one fsnotify watcher until ctx ends or the watcher breaks.
func (m *Manager) watchOnce(ctx context.Context, dir, file string, deb *debouncer, bo *backoff, log logx.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	bo.reset()
	log.Debug("config watcher started", logx.String("file", file))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errWatcherClosed
			}
			if ev.Op&reloadOps != 0 && strings.EqualFold(filepath.Base(ev.Name), file) {
				deb.trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errWatcherClosed
			}
			if err == nil {
				continue
			}
			log.Warn("config watch error", logx.Err(err))
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				deb.trigger()
			}
		}
	}
}

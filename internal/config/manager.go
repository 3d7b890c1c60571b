package config

import (
	"fmt"
	"sync"
	"time"

	logx "tickwork/pkg/logx"
)

// Manager owns the config file. It loads a Store and, while Watch runs, publishes a
// fresh snapshot to every subscriber when the file content changes. Published stores
// are never mutated.
type Manager struct {
	path      string
	envPrefix string
	debounce  time.Duration
	log       logx.Logger

	mu       sync.RWMutex
	store    *Store
	lastHash uint64

	subsMu sync.Mutex
	subs   map[uint64]chan *Store
	subSeq uint64
}

func NewManager(path, envPrefix string) *Manager {
	return &Manager{
		path:      path,
		envPrefix: envPrefix,
		debounce:  250 * time.Millisecond,
		subs:      map[uint64]chan *Store{},
	}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

func (m *Manager) Path() string { return m.path }

// Load parses the file and makes it current without notifying subscribers.
func (m *Manager) Load() (*Store, error) {
	st, err := LoadFile(m.path, m.envPrefix)
	if err != nil {
		return nil, err
	}
	m.commit(st)
	return st, nil
}

func (m *Manager) commit(st *Store) {
	m.mu.Lock()
	m.store = st
	m.lastHash = st.Hash()
	m.mu.Unlock()
}

func (m *Manager) Get() *Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store
}

// Subscribe returns a channel of published stores and a func that closes it.
// A subscriber that falls behind only ever sees the newest store.
func (m *Manager) Subscribe(buffer int) (<-chan *Store, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan *Store, buffer)
	m.subsMu.Lock()
	m.subSeq++
	id := m.subSeq
	m.subs[id] = ch
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			close(ch)
			m.subsMu.Unlock()
		})
	}
}

func (m *Manager) publish(st *Store) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		// Full: drop the oldest pending store, then retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

// reload parses the file and publishes it if its content hash changed. Parse errors
// keep the current store.
func (m *Manager) reload() {
	st, err := LoadFile(m.path, m.envPrefix)
	if err != nil {
		m.log.Warn("config parse failed; keeping previous", logx.String("path", m.path), logx.Err(err))
		return
	}
	h := st.Hash()
	m.mu.RLock()
	same := h == m.lastHash
	m.mu.RUnlock()
	if same {
		m.log.Debug("config unchanged", logx.String("path", m.path))
		return
	}
	m.commit(st)
	m.publish(st)
	m.log.Debug("config published", logx.String("path", m.path), logx.String("hash", fmt.Sprintf("%x", h)))
}

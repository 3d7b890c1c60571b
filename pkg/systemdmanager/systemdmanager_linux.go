//go:build linux

package systemdmanager

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Manager holds one system bus connection.
type Manager struct {
	mu   sync.RWMutex
	conn *dbus.Conn
}

// New connects to the system bus.
func New(ctx context.Context) (*Manager, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Manager{conn: conn}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	return nil
}

// Status reads the state of unit. A unit systemd does not know is reported as
// not-found, not as an error.
func (m *Manager) Status(ctx context.Context, unit string) (Status, error) {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil {
		return Status{}, ErrClosed
	}

	name := UnitName(unit)
	props, err := conn.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		if isNoSuchUnitErr(err) {
			return notFound(name), nil
		}
		return Status{}, fmt.Errorf("failed to get status for %s: %w", name, err)
	}
	return statusFromProps(name, props), nil
}

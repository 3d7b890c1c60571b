// Package systemdmanager reads systemd unit state over D-Bus. It is read-only: the
// scheduler's unit watch job reports state, it never starts or stops units.
package systemdmanager

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUnsupported = errors.New("systemdmanager: unsupported OS (linux only)")
	ErrClosed      = errors.New("systemdmanager: connection is closed")
)

// Status is the state of one unit.
type Status struct {
	Name          string
	Active        string // active, inactive, failed, etc.
	SubState      string // running, dead, etc.
	LoadState     string // loaded, not-found, etc.
	Description   string
	ActiveSince   time.Time // ActiveEnterTimestamp
	InactiveSince time.Time // InactiveEnterTimestamp
}

// Healthy reports whether the unit is loaded and active.
func (s Status) Healthy() bool {
	return s.LoadState == "loaded" && s.Active == "active"
}

// Found reports whether systemd knows the unit.
func (s Status) Found() bool { return s.LoadState != "" && s.LoadState != "not-found" }

// UnitName appends ".service" when name has no unit suffix.
func UnitName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		switch name[i+1:] {
		case "service", "socket", "timer", "target", "mount", "path", "slice", "scope":
			return name
		}
	}
	return name + ".service"
}

func notFound(name string) Status {
	return Status{Name: name, Active: "unknown", SubState: "not-found", LoadState: "not-found"}
}

// statusFromProps builds a Status from a unit property map.
func statusFromProps(name string, props map[string]any) Status {
	load := stringProp(props, "LoadState")
	if load == "not-found" {
		return notFound(name)
	}
	return Status{
		Name:          name,
		Active:        stringProp(props, "ActiveState"),
		SubState:      stringProp(props, "SubState"),
		LoadState:     load,
		Description:   stringProp(props, "Description"),
		ActiveSince:   parseTimestamp(props, "ActiveEnterTimestamp"),
		InactiveSince: parseTimestamp(props, "InactiveEnterTimestamp"),
	}
}

// systemd timestamps are microseconds since the Unix epoch.
func parseTimestamp(props map[string]any, key string) time.Time {
	if ts, ok := props[key].(uint64); ok && ts > 0 {
		return time.UnixMicro(int64(ts))
	}
	return time.Time{}
}

func stringProp(props map[string]any, key string) string {
	v, _ := props[key].(string)
	return v
}

func isNoSuchUnitErr(err error) bool {
	if err == nil {
		return false
	}
	es := err.Error()
	return strings.Contains(es, "NoSuchUnit") || strings.Contains(es, "not-found")
}

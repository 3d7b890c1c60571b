package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage. An empty Driver or "none" disables it.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Run outcome values.
const (
	StatusFinished = "finished"
	StatusFailed   = "failed"
	StatusPanic    = "panic"
)

// RunRecord is one finished invocation.
type RunRecord struct {
	ID       string        `json:"id"`
	Task     string        `json:"task"`
	Kind     string        `json:"kind"`
	Status   string        `json:"status"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

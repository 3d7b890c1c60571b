package scheduler

import (
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"tickwork/internal/eventbus"
	logx "tickwork/pkg/logx"
)

var (
	ErrNotBuilt = errors.New("scheduler: not in built state")
	ErrStopped  = errors.New("scheduler: already stopped")
)

// Registration log tags. Each registration attempt logs exactly one of them.
const (
	TagRegister = "[REGISTER]"
	TagDisabled = "[DISABLED]"
	TagError    = "[ERROR]"
)

// State is the scheduler lifecycle: Built -> Starting -> Running -> ShuttingDown -> Stopped.
// A failed Start goes straight to Stopped.
type State int32

const (
	StateBuilt State = iota
	StateStarting
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type options struct {
	log       logx.Logger
	bus       eventbus.Bus
	failRate  rate.Limit
	failBurst int
	newCron   func(log logx.Logger) CronRunner
}

func defaultOptions() options {
	return options{
		log:       logx.Nop(),
		failRate:  1,
		failBurst: 3,
		newCron:   NewCronRunner,
	}
}

type Option func(*options)

func WithLogger(log logx.Logger) Option {
	return func(o *options) {
		if !log.IsZero() {
			o.log = log
		}
	}
}

// WithEventBus publishes task.* events for every invocation.
func WithEventBus(bus eventbus.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithFailureLogRate limits failure and panic logs per task. perSec <= 0 disables the limit.
func WithFailureLogRate(perSec float64, burst int) Option {
	return func(o *options) {
		if perSec <= 0 {
			o.failRate = rate.Inf
		} else {
			o.failRate = rate.Limit(perSec)
		}
		if burst < 1 {
			burst = 1
		}
		o.failBurst = burst
	}
}

// WithCronRunner replaces the cron capability.
func WithCronRunner(newRunner func(log logx.Logger) CronRunner) Option {
	return func(o *options) {
		if newRunner != nil {
			o.newCron = newRunner
		}
	}
}

package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
	"tickwork/pkg/systemdmanager"
)

var errNoUnits = errors.New("no units configured")

// UnitProber reads the state of one systemd unit.
type UnitProber interface {
	Status(ctx context.Context, unit string) (systemdmanager.Status, error)
}

// UnitWatch polls a fixed set of units and logs state transitions. Unhealthy units
// are logged as warnings on every check; healthy ones only when they change.
type UnitWatch struct {
	Units  []string
	Prober UnitProber
	// ProbeTimeout bounds each unit probe; 0 means 2s.
	ProbeTimeout time.Duration

	mu   sync.Mutex
	last map[string]string
}

func NewUnitWatch(p UnitProber, units []string) *UnitWatch {
	var clean []string
	for _, u := range units {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	return &UnitWatch{Units: clean, Prober: p, last: map[string]string{}}
}

func (w *UnitWatch) Run(ctx context.Context) error {
	if len(w.Units) == 0 {
		return errNoUnits
	}
	if w.Prober == nil {
		return systemdmanager.ErrUnsupported
	}
	log := logx.FromContext(ctx)
	timeout := w.ProbeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	var errs []error
	for _, u := range w.Units {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		st, err := w.Prober.Status(pctx, u)
		cancel()
		if err != nil {
			errs = append(errs, err)
			continue
		}

		state := st.Active + "/" + st.SubState
		w.mu.Lock()
		prev, seen := w.last[st.Name]
		w.last[st.Name] = state
		w.mu.Unlock()

		switch {
		case !st.Healthy():
			log.Warn("unit unhealthy", logx.String("unit", st.Name), logx.String("state", state), logx.String("load", st.LoadState))
		case seen && prev != state:
			log.Info("unit state changed", logx.String("unit", st.Name), logx.String("from", prev), logx.String("to", state))
		case !seen:
			log.Debug("unit healthy", logx.String("unit", st.Name), logx.String("state", state))
		}
	}
	return errors.Join(errs...)
}

// State returns the last observed "active/sub" state of unit.
func (w *UnitWatch) State(unit string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last[systemdmanager.UnitName(unit)]
}

func unitWatchMetadata() task.Metadata {
	return task.Metadata{
		Schedule:     task.FixedDelay("${jobs.units.interval:30s}"),
		InitialDelay: "${jobs.units.initial_delay:5s}",
		Enabled:      "${jobs.units.enabled:true}",
	}
}

package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"tickwork/internal/config"
	"tickwork/internal/observability/pprof"
	"tickwork/internal/storage"
	logx "tickwork/pkg/logx"
)

// Settings are the process-level values read from config. Task schedules are not here;
// they resolve through placeholders inside the scheduler.
type Settings struct {
	Logging logx.Config
	Storage storage.Config
	Pprof   pprof.Config

	ShutdownTimeout  time.Duration
	FailureLogPerSec float64
	FailureLogBurst  int

	HistoryRetention time.Duration
	Units            []string
}

func mapSettings(st *config.Store) (Settings, error) {
	var errs []error
	dur := func(key string, def time.Duration) time.Duration {
		d, err := st.Duration(key, def)
		errs = append(errs, err)
		return d
	}
	boolean := func(key string, def bool) bool {
		b, err := st.Bool(key, def)
		errs = append(errs, err)
		return b
	}
	integer := func(key string, def int) int {
		n, err := st.Int(key, def)
		errs = append(errs, err)
		return n
	}

	s := Settings{
		Logging: logx.Config{
			Level:   st.String("logging.level", "info"),
			Console: boolean("logging.console", true),
			Format:  st.String("logging.format", "console"),
			File: logx.FileConfig{
				Enabled: boolean("logging.file.enabled", false),
				Path:    st.String("logging.file.path", "./tickwork.log"),
			},
		},
		Pprof: pprof.Config{
			Enabled:              boolean("pprof.enabled", false),
			Addr:                 st.String("pprof.addr", "127.0.0.1:6060"),
			Prefix:               st.String("pprof.prefix", "/debug/pprof/"),
			Token:                st.String("pprof.token", ""),
			AllowInsecure:        boolean("pprof.allow_insecure", false),
			ReadTimeout:          dur("pprof.read_timeout", 5*time.Second),
			WriteTimeout:         dur("pprof.write_timeout", time.Minute),
			IdleTimeout:          dur("pprof.idle_timeout", time.Minute),
			MutexProfileFraction: integer("pprof.mutex_profile_fraction", 0),
			BlockProfileRate:     integer("pprof.block_profile_rate", 0),
		},
		ShutdownTimeout:  dur("scheduler.shutdown_timeout", 10*time.Second),
		FailureLogBurst:  integer("scheduler.failure_log_burst", 3),
		HistoryRetention: dur("jobs.history.retention", 7*24*time.Hour),
		Units:            st.List("jobs.units.names"),
	}

	s.FailureLogPerSec = 1
	if raw := st.String("scheduler.failure_log_per_sec", ""); raw != "" {
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("scheduler.failure_log_per_sec: invalid number %q: %w", raw, err))
		} else {
			s.FailureLogPerSec = f
		}
	}

	sc, err := mapStorage(st)
	errs = append(errs, err)
	s.Storage = sc

	if err := errors.Join(errs...); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func mapStorage(st *config.Store) (storage.Config, error) {
	driver := strings.ToLower(st.String("storage.driver", "none"))
	path := st.String("storage.path", "")
	switch driver {
	case "none":
		return storage.Config{}, nil
	case "file":
		if path == "" {
			path = "./data/tickwork"
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, errors.New("storage.path is required when storage.driver=sqlite")
		}
		busy, err := st.Duration("storage.busy_timeout", time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", driver)
	}
}

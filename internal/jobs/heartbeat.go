package jobs

import (
	"context"
	"runtime"
	"time"

	"tickwork/internal/task"
	logx "tickwork/pkg/logx"
)

var processStart = time.Now()

func heartbeatDescriptor() task.Descriptor {
	return task.Descriptor{
		Name: "heartbeat",
		Metadata: task.Metadata{
			Schedule: task.FixedRate("${jobs.heartbeat.interval:1m}"),
			Enabled:  "${jobs.heartbeat.enabled:true}",
		},
		Work: task.Func(heartbeat),
	}
}

func init() { task.MustRegister(heartbeatDescriptor()) }

func heartbeat(ctx context.Context) error {
	logx.FromContext(ctx).Info("heartbeat",
		logx.Duration("uptime", time.Since(processStart).Truncate(time.Second)),
		logx.Int("goroutines", runtime.NumGoroutine()),
	)
	return nil
}

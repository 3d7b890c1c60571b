package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"tickwork/internal/app"
	logx "tickwork/pkg/logx"
)

func main() {
	var (
		cfgPath   string
		envPrefix string
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml, json or toml)")
	flag.StringVar(&envPrefix, "env-prefix", app.DefaultEnvPrefix, "environment overlay prefix; empty disables it")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Used until the configured logger exists.
	boot := logx.NewConsole("info")

	a, err := app.New(cfgPath, envPrefix)
	if err != nil {
		boot.Error("startup failed", logx.String("config", cfgPath), logx.Err(err))
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		boot.Error("start failed", logx.Err(err))
		_ = a.Stop(context.Background())
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := a.Stop(context.Background()); err != nil {
		boot.Error("stop failed", logx.Err(err))
		os.Exit(1)
	}
}

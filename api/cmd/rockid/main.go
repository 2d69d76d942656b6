package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"rock-id/api/internal/app"
	"rock-id/api/internal/config"
	"rock-id/api/internal/handle"
	"rock-id/api/internal/httpserver"
	"rock-id/api/internal/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	log.Info("starting rock-id server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build app", zap.Error(err))
	}
	defer a.Close()
	log.Info("engines ready", zap.Strings("engines", a.Engines.Available()))

	go a.RunRetention(ctx)

	h := handle.New(a.Actions, a.History, a.Catalog, cfg, log)
	router := httpserver.NewRouter(cfg.Server.Mode, log, h, httpserver.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}, a.Health)

	if err := httpserver.Serve(ctx, cfg.Server, router, log); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}

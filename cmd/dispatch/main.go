package main

import (
	"context"
	"flag"
	"os"

	"github.com/fieldhail/dispatch-system/config"
	"github.com/fieldhail/dispatch-system/internal/app"
	"github.com/fieldhail/dispatch-system/pkg/logger"
)

var configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")

func main() {
	flag.Parse()

	ctx := context.Background()
	log := logger.InitLogger("dispatch", logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		os.Exit(1)
	}

	if cfg.Server.LogLevel != "" {
		log = logger.InitLogger("dispatch", cfg.Server.LogLevel)
	}

	application, err := app.New(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error(ctx, "application stopped with error", err)
		os.Exit(1)
	}
}

// Package main runs the manifest service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JakeFAU/llmstxt-generator/internal/config"
	"github.com/JakeFAU/llmstxt-generator/internal/logging"
	"github.com/JakeFAU/llmstxt-generator/internal/server"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	envPath := flag.String("env", ".env", "Path to an optional dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load env file failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Tracing.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	ctx := context.Background()
	app, err := server.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

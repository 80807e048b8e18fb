// Package main is a command-line client that generates an llms.txt manifest
// through a running manifest service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/llmstxt-generator/internal/client"
	"github.com/JakeFAU/llmstxt-generator/internal/logging"
)

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8080", "Base URL of the manifest service")
	target := flag.String("url", "", "Site to generate a manifest for")
	limit := flag.Int("limit", 0, "Maximum pages to crawl (0 uses the server default)")
	interval := flag.Duration("interval", 5*time.Second, "Delay between status polls")
	out := flag.String("out", "", "Write the manifest to this file instead of stdout")
	apiKey := flag.String("api-key", os.Getenv("LLMSTXT_AUTH_API_KEY"), "API key sent as X-API-Key")
	verbose := flag.Bool("v", false, "Verbose development logging")
	flag.Parse()

	if *target == "" {
		fmt.Fprintln(os.Stderr, "-url is required")
		flag.Usage()
		os.Exit(2)
	}

	logger, err := logging.New(*verbose, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(client.Config{
		BaseURL:  *serverURL,
		APIKey:   *apiKey,
		Interval: *interval,
	}, logger)

	if err := run(ctx, c, *target, *limit, *out, logger); err != nil {
		logger.Error("generate manifest failed", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, target string, limit int, out string, logger *zap.Logger) error {
	logger.Info("starting crawl", zap.String("url", target))
	text, err := c.Generate(ctx, target, limit)
	if err != nil {
		return fmt.Errorf("generate %s: %w", target, err)
	}
	logger.Info("crawl completed", zap.String("url", target))

	if out == "" {
		fmt.Print(text)
		return nil
	}
	if err := os.WriteFile(out, []byte(text), 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	logger.Info("manifest written", zap.String("path", out))
	return nil
}

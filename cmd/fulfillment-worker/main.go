package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/antigravity-dev/fulfillment/internal/blobstore"
	"github.com/antigravity-dev/fulfillment/internal/config"
	"github.com/antigravity-dev/fulfillment/internal/fulfillment"
	"github.com/antigravity-dev/fulfillment/internal/schema"
	"github.com/antigravity-dev/fulfillment/internal/taskqueue"
)

func configureLogger(logLevel, format string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// echoHandler is the sample activity body wired into this binary: it
// returns its parsed arguments unchanged as the result. Real
// deployments swap this for a domain-specific Handler.
func echoHandler(_ context.Context, args map[string]any) (any, []string, error) {
	return args, nil, nil
}

func buildStore(cfg *config.Config) (blobstore.Store, error) {
	if !cfg.Storage.UseS3 {
		return blobstore.NewInMemoryStore(), nil
	}
	return blobstore.NewS3Store(context.Background())
}

func main() {
	configPath := flag.String("config", "fulfillment-worker.toml", "path to config file")
	once := flag.Bool("once", false, "poll for a single task then exit")
	dev := flag.Bool("dev", false, "force text log format regardless of config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logFormat := cfg.Log.Format
	if *dev {
		logFormat = "text"
	}
	logger := configureLogger(cfg.Log.Level, logFormat)
	slog.SetDefault(logger)

	logger.Info("fulfillment worker starting", "config", *configPath, "activity", cfg.Worker.ActivityName, "domain", cfg.Worker.SWFDomain)

	store, err := buildStore(cfg)
	if err != nil {
		logger.Error("failed to build blob store", "error", err)
		os.Exit(1)
	}

	tq := taskqueue.NewInMemoryQueue(16)

	params := schema.MustObject("", []schema.Property{
		{Name: "payload", Param: schema.MustJson("Arbitrary JSON payload to echo back", schema.Optional())},
	})
	result := schema.MustGenericResult("Echoes back whatever payload was given")

	workerCfg := fulfillment.Config{
		Description:     "Reference activity worker: echoes its input back as its result.",
		Properties:      params.Properties,
		Result:          result,
		Region:          cfg.Worker.Region,
		ActivityName:    cfg.Worker.ActivityName,
		ActivityVersion: cfg.Worker.ActivityVersion,
		SWFDomain:       cfg.Worker.SWFDomain,
		Bucket:          cfg.Storage.Bucket,
		SizeLimit:       cfg.Worker.SizeLimit,
		ResolverTimeout: cfg.Worker.ResolverTimeout.Duration,
		DisableProtocol: cfg.Worker.DisableProtocol,
	}

	w, err := fulfillment.New(workerCfg, echoHandler, tq, store, logger.With("component", "worker"))
	if err != nil {
		logger.Error("failed to build worker", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		handled, err := w.Run(ctx)
		if err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		logger.Info("single poll complete", "handled", handled)
		return
	}

	go func() {
		ticker := time.NewTicker(cfg.Worker.PollTimeout.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.Run(ctx); err != nil {
					logger.Error("poll error", "error", err)
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for {
		sig := <-sigCh
		switch sig {
		case syscall.SIGHUP:
			reloaded, err := config.Reload(*configPath)
			if err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			cfg = reloaded
			logger.Info("config reloaded", "activity", cfg.Worker.ActivityName)
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return
		}
	}
}

package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/antigravity-dev/fulfillment/internal/blobstore"
	"github.com/antigravity-dev/fulfillment/internal/config"
)

func TestConfigureLoggerLevels(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"junk":  slog.LevelInfo,
	}
	for level, want := range cases {
		logger := configureLogger(level, "json")
		if !logger.Enabled(context.Background(), want) {
			t.Errorf("level %q: expected handler to enable %v", level, want)
		}
	}
}

func TestEchoHandlerReturnsArgsUnchanged(t *testing.T) {
	args := map[string]any{"payload": map[string]any{"a": 1.0}}
	result, notes, err := echoHandler(context.Background(), args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes != nil {
		t.Fatalf("expected no notes, got %v", notes)
	}
	got, ok := result.(map[string]any)
	if !ok || got["payload"] == nil {
		t.Fatalf("expected the args map echoed back, got %v", result)
	}
}

func TestBuildStoreChoosesInMemoryWithoutS3(t *testing.T) {
	cfg := &config.Config{}
	store, err := buildStore(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*blobstore.InMemoryStore); !ok {
		t.Fatalf("expected an in-memory store when Storage.UseS3 is false, got %T", store)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"syscall"
	"testing"

	"blobcache/internal/config"
)

func TestServerEnvPinsSpawnedServer(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = "/data/blobcache.db"
	cfg.BlobRoot = "/data/blobs"
	cfg.APIURL = "http://127.0.0.1:7555"
	cfg.LogLevel = "debug"
	cfg.Cache.AllowedMediaTypes = []string{"image/png", "image/jpeg"}

	env := serverEnv(&cfg, func(string) string { return "" })
	for _, want := range []string{
		"BLOBCACHE_DB=/data/blobcache.db",
		"BLOBCACHE_BLOB_ROOT=/data/blobs",
		"BLOBCACHE_API_URL=http://127.0.0.1:7555",
		"BLOBCACHE_ALLOWED_MEDIA_TYPES=image/png,image/jpeg",
		"BLOBCACHE_LOG_LEVEL=debug",
	} {
		if !slices.Contains(env, want) {
			t.Fatalf("expected %q in %v", want, env)
		}
	}
}

func TestServerEnvKeepsCallerLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "debug"

	env := serverEnv(&cfg, func(key string) string {
		if key == logLevelEnvKey {
			return "warn"
		}
		return ""
	})
	if slices.Contains(env, "BLOBCACHE_LOG_LEVEL=debug") {
		t.Fatalf("config log level should not override the caller's: %v", env)
	}
}

func TestServerLogPath(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join("/var", "lib", "blobcache", "cache.db")
	if got := serverLogPath(&cfg); got != filepath.Join("/var", "lib", "blobcache", serverLogFileName) {
		t.Fatalf("unexpected log path %q", got)
	}
	cfg.DBPath = ""
	if got := serverLogPath(&cfg); got != "" {
		t.Fatalf("expected no log path without a database, got %q", got)
	}
}

func TestStillBooting(t *testing.T) {
	refused := fmt.Errorf("dial: %w", syscall.ECONNREFUSED)
	if !stillBooting(refused) {
		t.Fatal("connection refused should mean the server is still starting")
	}
	if !stillBooting(fmt.Errorf("ping: %w", context.DeadlineExceeded)) {
		t.Fatal("ping timeout should mean the server is still starting")
	}
	if stillBooting(errors.New("unexpected status 404")) {
		t.Fatal("a foreign listener should stop the wait")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"blobcache/internal/api"
	"blobcache/internal/config"
)

const (
	spawnReadyTimeout = 3 * time.Second
	spawnPollInterval = 100 * time.Millisecond
	pingTimeout       = 500 * time.Millisecond

	serverLogFileName = "blobcache-server.log"
)

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	if err := ensureServer(cfg); err != nil {
		return err
	}
	return fn(api.NewClient(cfg.APIURL))
}

// ensureServer makes sure a cache server answers at cfg.APIURL, spawning
// `blobcache srv` in the background if nothing does. Cached records live only
// in that process, so it outlives the command that spawned it.
func ensureServer(cfg *config.Config) error {
	client := api.NewClient(cfg.APIURL)
	if pingOnce(client, pingTimeout) == nil {
		return nil
	}

	cmd, logPath, err := spawnServer(cfg)
	if err != nil {
		return fmt.Errorf("start cache server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), spawnReadyTimeout)
	defer cancel()
	if err := awaitReady(ctx, client); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		if logPath != "" {
			return fmt.Errorf("%w (server log: %s)", err, logPath)
		}
		return err
	}

	slog.Debug("spawned cache server", "pid", cmd.Process.Pid, "api_url", cfg.APIURL, "log", logPath)
	return cmd.Process.Release()
}

// spawnServer starts the current executable as a cache server. Its output
// goes to serverLogPath(cfg) when that file can be opened.
func spawnServer(cfg *config.Config) (*exec.Cmd, string, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, "", err
	}

	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(), serverEnv(cfg, os.Getenv)...)

	logPath := serverLogPath(cfg)
	var logFile *os.File
	if logPath != "" {
		logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			slog.Debug("server log unavailable", "path", logPath, "error", err)
			logPath = ""
		}
	}
	if logFile != nil {
		cmd.Stdout = logFile
		cmd.Stderr = logFile
		// The child holds its own descriptor once started.
		defer logFile.Close()
	}

	if err := cmd.Start(); err != nil {
		return nil, "", err
	}
	return cmd, logPath, nil
}

// serverEnv lists the variables that pin a spawned server to the same
// database, blob root, address and media policy as the calling command. An
// explicit log level in the caller's environment wins over the config file.
func serverEnv(cfg *config.Config, getenv func(string) string) []string {
	env := []string{
		"BLOBCACHE_DB=" + cfg.DBPath,
		"BLOBCACHE_API_URL=" + cfg.APIURL,
		"BLOBCACHE_BLOB_ROOT=" + cfg.BlobRoot,
	}
	if len(cfg.Cache.AllowedMediaTypes) > 0 {
		env = append(env, "BLOBCACHE_ALLOWED_MEDIA_TYPES="+strings.Join(cfg.Cache.AllowedMediaTypes, ","))
	}
	if strings.TrimSpace(getenv(logLevelEnvKey)) == "" && strings.TrimSpace(cfg.LogLevel) != "" {
		env = append(env, logLevelEnvKey+"="+cfg.LogLevel)
	}
	return env
}

// serverLogPath places the spawned server's log beside its database.
func serverLogPath(cfg *config.Config) string {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.DBPath), serverLogFileName)
}

func pingOnce(client *api.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Ping(ctx)
}

// awaitReady polls until the server answers, ctx expires, or the address
// turns out to be held by something that is not refusing connections.
func awaitReady(ctx context.Context, client *api.Client) error {
	ticker := time.NewTicker(spawnPollInterval)
	defer ticker.Stop()

	for {
		err := pingOnce(client, 2*spawnPollInterval)
		if err == nil {
			return nil
		}
		if !stillBooting(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.New("cache server did not become ready in time")
		case <-ticker.C:
		}
	}
}

// stillBooting reports whether err means nothing is listening yet.
func stillBooting(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded)
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blobcache/internal/blobstore"
	"blobcache/internal/config"
	"blobcache/internal/models"
	"blobcache/internal/server"
	"blobcache/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	var memoryOnly bool

	cmd := &cobra.Command{
		Use:   "srv",
		Short: "Run the blobcache API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			opts := server.Options{
				Origin:             cfg.Cache.Origin,
				AllowedMediaTypes:  cfg.Cache.AllowedMediaTypes,
				MaxBlobBytes:       cfg.Cache.MaxBlobBytes,
				PersistConcurrency: cfg.Store.PersistConcurrency,
				TokenHash:          cfg.Auth.TokenHash,
			}

			if !memoryOnly {
				if cfg.DBPath == "" {
					return fmt.Errorf("db path is required")
				}
				compression, err := models.ParseCompression(cfg.Store.Compression)
				if err != nil {
					return err
				}

				logger.Info("opening database", "path", cfg.DBPath)
				st, err := store.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()

				bs, err := blobstore.NewLocalCAS(cfg.BlobRoot, blobstore.WithCompression(compression))
				if err != nil {
					return err
				}
				opts.Assets = st
				opts.Blobs = bs
				opts.DBPath = cfg.DBPath
				opts.BlobRoot = cfg.BlobRoot
			}

			srv := server.New(addr, opts, logger)
			defer srv.Close()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-sigCh:
				logger.Info("shutting down", "signal", sig.String())
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&memoryOnly, "memory-only", false, "disable persistence routes")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blobcache/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "blobcache",
		Short:         "Blobcache keeps pasted and uploaded editor assets addressable until they are persisted",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newPutCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newLookupCmd(cfg, &jsonOutput),
		newCatCmd(cfg),
		newRemoveCmd(cfg, &jsonOutput),
		newDestroyCmd(cfg, &jsonOutput),
		newPersistCmd(cfg, &jsonOutput),
		newAssetsCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
		newTokenCmd(&jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
	)

	return cmd
}

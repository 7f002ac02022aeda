package main

import (
	"github.com/spf13/cobra"

	"blobcache/internal/api"
	"blobcache/internal/config"
)

func newPersistCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "persist [<id>]",
		Short: "Persist one cached record, or all of them, into the asset store",
		Args:  requireAtMostArgs(1, "at most one id may be given"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				if len(args) == 1 {
					resp, err := client.PersistBlob(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if *jsonOutput {
						return writeJSON(resp)
					}
					return writePlain("%s %s %s\n", resp.Asset.ID, resp.Asset.Digest, persistState(resp.Created))
				}

				resp, err := client.PersistAll(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				if err := writeAssetList(resp.Assets); err != nil {
					return err
				}
				return writePlain("persisted %d new, %d total\n", resp.Created, len(resp.Assets))
			})
		},
	}
}

func persistState(created bool) string {
	if created {
		return "created"
	}
	return "existing"
}

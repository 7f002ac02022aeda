package main

import (
	"github.com/spf13/cobra"

	"blobcache/internal/api"
	"blobcache/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache, handle and persistence status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("records: %d\n", resp.Records)
				_ = writePlain("handles_live: %d\n", resp.Handles.Live)
				_ = writePlain("handles_allocated: %d\n", resp.Handles.Allocated)
				_ = writePlain("handles_revoked: %d\n", resp.Handles.Revoked)
				_ = writePlain("double_releases: %d\n", resp.Handles.DoubleReleases)
				_ = writePlain("live_bytes: %d\n", resp.Handles.LiveBytes)
				_ = writePlain("persistence: %t\n", resp.Persistence)
				if resp.Persistence {
					_ = writePlain("assets: %d\n", resp.Assets)
					_ = writePlain("asset_bytes: %d\n", resp.AssetBytes)
					_ = writePlain("db_path: %s\n", resp.DBPath)
					_ = writePlain("blob_root: %s\n", resp.BlobRoot)
				}
				return writePlain("auth: %t\n", resp.AuthEnabled)
			})
		},
	}
}

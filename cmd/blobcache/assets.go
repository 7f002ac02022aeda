package main

import (
	"github.com/spf13/cobra"

	"blobcache/internal/api"
	"blobcache/internal/config"
)

func newAssetsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "assets", Short: "Manage persisted assets"}
	cmd.AddCommand(
		newAssetsListCmd(cfg, jsonOutput),
		newAssetsShowCmd(cfg, jsonOutput),
		newAssetsLookupCmd(cfg, jsonOutput),
		newAssetsGetCmd(cfg),
		newAssetsRemoveCmd(cfg, jsonOutput),
	)
	return cmd
}

func newAssetsListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List persisted assets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				assets, err := client.ListAssets(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(assets)
				}
				return writeAssetList(assets)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "page size (server default when 0)")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func newAssetsShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one persisted asset",
		Args:  requireExactlyArgs(1, "asset id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				asset, err := client.GetAsset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(asset)
				}
				return writeAssetDetail(asset)
			})
		},
	}
}

func newAssetsLookupCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var mediaType string

	cmd := &cobra.Command{
		Use:   "lookup <digest>",
		Short: "Find a persisted asset by payload digest",
		Args:  requireExactlyArgs(1, "digest is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				asset, err := client.LookupAsset(cmd.Context(), args[0], mediaType)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(asset)
				}
				return writeAssetDetail(asset)
			})
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "", "media type of the payload")
	return cmd
}

func newAssetsGetCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download persisted asset content",
		Args:  requireExactlyArgs(1, "asset id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				body, _, err := client.OpenAssetContent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				defer body.Close()
				return copyToOutput(body, outPath, force)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

func newAssetsRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a persisted asset",
		Args:  requireExactlyArgs(1, "asset id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteAsset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("%s\n", resp.ID)
			})
		},
	}
}

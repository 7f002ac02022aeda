package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"blobcache/internal/api"
	"blobcache/internal/config"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var includeData bool

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List cached records in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				blobs, err := client.ListBlobs(cmd.Context(), includeData)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(blobs)
				}
				return writeBlobList(blobs)
			})
		},
	}

	cmd.Flags().BoolVar(&includeData, "include-data", false, "include base64 payloads (JSON output)")
	return cmd
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one cached record",
		Args:  requireExactlyArgs(1, "id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				blob, err := client.GetBlob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(blob)
				}
				return writeBlobDetail(blob)
			})
		},
	}
}

func newLookupCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		blobURI   string
		encoded   string
		file      string
		mediaType string
	)

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Find a cached record by object URI or by payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exactlyOneOf(map[string]string{"uri": blobURI, "base64": encoded, "file": file}); err != nil {
				return err
			}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				encoded = base64.StdEncoding.EncodeToString(data)
				if mediaType == "" {
					mediaType = http.DetectContentType(data)
				}
			}

			return withClient(cfg, func(client *api.Client) error {
				var (
					blob api.BlobResponse
					err  error
				)
				if blobURI != "" {
					blob, err = client.LookupByURI(cmd.Context(), blobURI)
				} else {
					blob, err = client.LookupByData(cmd.Context(), encoded, mediaType)
				}
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(blob)
				}
				return writeBlobDetail(blob)
			})
		},
	}

	cmd.Flags().StringVar(&blobURI, "uri", "", "object URI")
	cmd.Flags().StringVar(&encoded, "base64", "", "base64 payload")
	cmd.Flags().StringVar(&file, "file", "", "read the payload from a file")
	cmd.Flags().StringVar(&mediaType, "type", "", "media type of the payload")
	return cmd
}

func newCatCmd(cfg *config.Config) *cobra.Command {
	var (
		blobURI string
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "cat [<id>]",
		Short: "Write the payload behind an object URI (or record id) to stdout",
		Args:  requireAtMostArgs(1, "at most one id may be given"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			if err := exactlyOneOf(map[string]string{"uri": blobURI, "id": id}); err != nil {
				return fmt.Errorf("an id argument or --uri is required")
			}

			return withClient(cfg, func(client *api.Client) error {
				target := blobURI
				if target == "" {
					blob, err := client.GetBlob(cmd.Context(), id)
					if api.IsNotFound(err) {
						return fmt.Errorf("no cached record with id %q", id)
					}
					if err != nil {
						return err
					}
					target = blob.BlobURI
				}

				body, _, err := client.OpenObject(cmd.Context(), target)
				if err != nil {
					return err
				}
				defer body.Close()
				return copyToOutput(body, outPath, force)
			})
		},
	}

	cmd.Flags().StringVar(&blobURI, "uri", "", "object URI")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

func newRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var blobURI string

	cmd := &cobra.Command{
		Use:   "rm --uri <object-uri>",
		Short: "Release every record holding an object URI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(blobURI) == "" {
				return fmt.Errorf("--uri is required")
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.RemoveBlob(cmd.Context(), blobURI)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				if !resp.Removed {
					return writePlain("%s not cached\n", resp.URI)
				}
				return writePlain("%s\n", resp.URI)
			})
		},
	}

	cmd.Flags().StringVar(&blobURI, "uri", "", "object URI")
	return cmd
}

func newDestroyCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "Release every cached record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Destroy(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("released %d\n", resp.Released)
			})
		},
	}
}

// copyToOutput streams r to stdout, or to outPath when set.
func copyToOutput(r io.Reader, outPath string, force bool) error {
	if strings.TrimSpace(outPath) == "" {
		_, err := io.Copy(os.Stdout, r)
		return err
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(outPath, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("output file exists (use --force to overwrite)")
		}
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"blobcache/internal/api"
	"blobcache/internal/config"
)

// manifestEntry describes one file to upload from a put manifest.
type manifestEntry struct {
	File     string `yaml:"file"`
	ID       string `yaml:"id,omitempty"`
	Type     string `yaml:"type,omitempty"`
	Filename string `yaml:"filename,omitempty"`
	Path     string `yaml:"path,omitempty"`
	URI      string `yaml:"uri,omitempty"`
}

type manifest struct {
	Blobs []manifestEntry `yaml:"blobs"`
}

func newPutCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		entry        manifestEntry
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "put [<file>]",
		Short: "Upload a file (or every file in a manifest) into the cache",
		Args:  requireAtMostArgs(1, "at most one file may be given"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []manifestEntry
			switch {
			case manifestPath != "" && len(args) > 0:
				return fmt.Errorf("use either a file argument or --manifest")
			case manifestPath != "":
				loaded, err := loadManifest(manifestPath)
				if err != nil {
					return err
				}
				entries = loaded
			case len(args) == 1:
				entry.File = args[0]
				entries = []manifestEntry{entry}
			default:
				return fmt.Errorf("file or --manifest is required")
			}

			return withClient(cfg, func(client *api.Client) error {
				results := make([]api.BlobCreateResponse, 0, len(entries))
				for _, e := range entries {
					resp, err := uploadEntry(cmd, client, e)
					if err != nil {
						return fmt.Errorf("%s: %w", e.File, err)
					}
					results = append(results, resp)
				}

				if *jsonOutput {
					if manifestPath == "" {
						return writeJSON(results[0])
					}
					return writeJSON(results)
				}
				for _, resp := range results {
					state := "existing"
					if resp.Added {
						state = "added"
					}
					if err := writePlain("%s %s\n", formatBlobLine(resp.Blob), state); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&entry.ID, "id", "", "record id (generated when empty)")
	cmd.Flags().StringVar(&entry.Type, "type", "", "media type (sniffed when empty)")
	cmd.Flags().StringVar(&entry.Filename, "filename", "", "record filename (defaults to the file's base name)")
	cmd.Flags().StringVar(&entry.Path, "path", "", "asset path; the directory part is kept as the record path prefix")
	cmd.Flags().StringVar(&entry.URI, "uri", "", "source URI of the payload")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "YAML manifest listing files to upload")
	return cmd
}

func uploadEntry(cmd *cobra.Command, client *api.Client, e manifestEntry) (api.BlobCreateResponse, error) {
	file, err := os.Open(e.File)
	if err != nil {
		return api.BlobCreateResponse{}, err
	}
	defer file.Close()

	filename := strings.TrimSpace(e.Filename)
	if filename == "" {
		filename = filepath.Base(e.File)
	}
	return client.UploadBlob(cmd.Context(), api.BlobUploadRequest{
		ID:        e.ID,
		Filename:  filename,
		MediaType: e.Type,
		URI:       e.URI,
		Path:      e.Path,
	}, file)
}

func loadManifest(path string) ([]manifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := parseManifest(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return entries, nil
}

// parseManifest decodes a manifest and resolves relative file paths against
// baseDir.
func parseManifest(data []byte, baseDir string) ([]manifestEntry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, err
	}
	if len(m.Blobs) == 0 {
		return nil, fmt.Errorf("manifest lists no blobs")
	}

	ids := make(map[string]int, len(m.Blobs))
	for i := range m.Blobs {
		e := &m.Blobs[i]
		e.File = strings.TrimSpace(e.File)
		if e.File == "" {
			return nil, fmt.Errorf("blobs[%d]: file is required", i)
		}
		if !filepath.IsAbs(e.File) {
			e.File = filepath.Join(baseDir, e.File)
		}
		if id := strings.TrimSpace(e.ID); id != "" {
			if prev, ok := ids[id]; ok {
				return nil, fmt.Errorf("blobs[%d]: id %q already used by blobs[%d]", i, id, prev)
			}
			ids[id] = i
		}
	}
	return m.Blobs, nil
}

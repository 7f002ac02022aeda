package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"blobcache/internal/auth"
)

type tokenResponse struct {
	Token string `json:"token,omitempty"`
	Hash  string `json:"hash"`
}

func newTokenCmd(jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create API tokens and their config hashes",
	}
	cmd.AddCommand(newTokenGenerateCmd(jsonOutput), newTokenHashCmd(jsonOutput))
	return cmd
}

func newTokenGenerateCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate a random token and its bcrypt hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(tokenResponse{Token: token, Hash: hash})
			}
			_ = writePlain("token: %s\n", token)
			_ = writePlain("hash: %s\n", hash)
			return writePlain("store it with: blobcache config set --global auth.token_hash '%s'\n", hash)
		},
	}
}

func newTokenHashCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "hash [<token>]",
		Short: "Hash a token (read from stdin when omitted)",
		Args:  requireAtMostArgs(1, "at most one token may be given"),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				token = strings.TrimSpace(line)
			}

			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(tokenResponse{Hash: hash})
			}
			return writePlain("%s\n", hash)
		},
	}
}

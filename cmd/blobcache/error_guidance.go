package main

import (
	"context"
	"errors"
	"net"

	"blobcache/internal/api"
)

// errCodeRequestTooLarge matches the server's numeric code for oversized payloads.
const errCodeRequestTooLarge = 1002

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: set BLOBCACHE_API_TOKEN to a token matching auth.token_hash.")
		case "resource_exhausted":
			lines = append(lines, "hint: a persist run is already in progress; retry shortly.")
		case "not_implemented":
			lines = append(lines, "hint: the server runs without persistence; restart it without --memory-only.")
		}
		if api.HasErrorCode(err, errCodeRequestTooLarge) {
			lines = append(lines, "hint: raise cache.max_blob_bytes to accept larger payloads.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify BLOBCACHE_API_URL points to a blobcache server.")
		}
		if apiErr.Status >= 500 && apiErr.Status != 501 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase BLOBCACHE_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a blobcache server is running at BLOBCACHE_API_URL.",
			"hint: start local server manually with: blobcache srv",
		)
	}
	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

package blobcache

import (
	"crypto/rand"
	"fmt"
)

const (
	IDPrefix       = "blobid"
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idHashLength   = 12
	idMaxAttempts  = 20
)

// GenerateID returns a new record id using prefix. It retries on collisions
// using the provided exists function.
func GenerateID(prefix string, exists func(string) bool) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}

	for i := 0; i < idMaxAttempts; i++ {
		hash, err := randomBase36(idHashLength)
		if err != nil {
			return "", err
		}
		id := prefix + hash
		if exists == nil || !exists(id) {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}

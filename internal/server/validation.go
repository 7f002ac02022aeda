package server

import (
	"errors"
	"fmt"
	"mime"
	"regexp"
	"strings"

	"blobcache/internal/models"
)

var recordIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func validateRecordID(id string) bool {
	return recordIDRegex.MatchString(id)
}

func normalizeMediaType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", badRequestCode(fmt.Errorf("invalid media_type"), ErrCodeInvalidMediaType)
	}
	return strings.ToLower(strings.TrimSpace(parsed)), nil
}

// cacheError maps blob cache failures onto API errors.
func cacheError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrMissingField):
		return badRequestCode(err, ErrCodeMissingRequired)
	case errors.Is(err, models.ErrInvalidArgument):
		return badRequestCode(err, ErrCodeInvalidArgument)
	default:
		return internalError(err)
	}
}

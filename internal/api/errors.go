package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a structured error returned by the HTTP API. ErrorCode is the
// server's numeric code (1xxx validation, 2xxx missing records, 3xxx auth
// and limits, 4xxx internal).
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Message != "" && e.ErrorCode != 0:
		return fmt.Sprintf("%s (%d): %s", e.Code, e.ErrorCode, e.Message)
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	case e.Status > 0:
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return "api error"
}

// HasErrorCode reports whether err carries the given numeric API error code.
func HasErrorCode(err error, errorCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == errorCode
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

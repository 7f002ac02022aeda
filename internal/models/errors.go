package models

import "errors"

var (
	// ErrInvalidArgument reports a create input of an unrecognized shape.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingField reports a record built without both payload and base64.
	ErrMissingField = errors.New("missing field")
)

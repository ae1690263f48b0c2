package protocol

import "errors"

// ErrMissingType is returned for messages without a type field.
var ErrMissingType = errors.New("message type missing")

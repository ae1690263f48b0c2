package lipsync

import "errors"

var (
	// ErrUnknownMode is returned for modes other than realtime and prerecorded.
	ErrUnknownMode = errors.New("unknown lip-sync mode")

	// ErrInputFailed is returned when an audio input cannot start.
	ErrInputFailed = errors.New("lip-sync input failed")
)

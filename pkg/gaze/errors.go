package gaze

import "errors"

var (
	// ErrAnatomyMissing is returned when a bone needed for eye orientation
	// is absent.
	ErrAnatomyMissing = errors.New("gaze: anatomy missing")

	// ErrEmptyCandidateSet reports that no candidate could be selected.
	ErrEmptyCandidateSet = errors.New("gaze: empty candidate set")

	// ErrUnknownMode is returned when parsing an unknown behavior mode.
	ErrUnknownMode = errors.New("gaze: unknown mode")
)

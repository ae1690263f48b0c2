package expression

import "errors"

var (
	// ErrConfigurationMissing is returned when no preset backs a category.
	ErrConfigurationMissing = errors.New("expression preset missing")

	// ErrUnknownCategory is returned for names outside the category set.
	ErrUnknownCategory = errors.New("unknown expression category")

	// ErrInvalidPreset is returned when a preset file is malformed.
	ErrInvalidPreset = errors.New("invalid expression preset")

	// ErrNotFound is returned when a named preset is not registered.
	ErrNotFound = errors.New("preset not found")
)

package blendshape

import "errors"

// ErrInvalidSpace is returned when mesh parts cannot form a channel space.
var ErrInvalidSpace = errors.New("invalid channel space")

package driver

import "errors"

// ErrNotInGroup is returned when a category is not a member of the group.
var ErrNotInGroup = errors.New("category not in group")

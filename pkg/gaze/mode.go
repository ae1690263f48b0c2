package gaze

import (
	"fmt"
	"strings"
)

// Mode is the gaze target behavior.
type Mode int

const (
	// ModeProbabilistic picks weighted targets from the interest field.
	ModeProbabilistic Mode = iota
	// ModeRandom jitters around the neutral point every few seconds.
	ModeRandom
	// ModeStatic looks straight ahead.
	ModeStatic
	// ModeScripted looks wherever it is told.
	ModeScripted
	// ModeNone leaves the aim point alone.
	ModeNone
)

var modeNames = [...]string{"probabilistic", "random", "static", "scripted", "none"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode resolves a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

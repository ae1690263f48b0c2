// Package expression defines facial expression categories and the preset
// store that maps each category to its maximum channel weights.
package expression

import (
	"fmt"
	"strings"
)

// Category is a facial expression the engine can drive.
type Category int

// Categories in their canonical order. The order of the six emotions is the
// priority order used when several emotion requests change in one frame.
const (
	Anger Category = iota
	Disgust
	Fear
	Happiness
	Sadness
	Surprise
	Blink
	GazeUp
	GazeDown
	VisemeSil
	VisemePP
	VisemeFF
	VisemeTH
	VisemeDD
	VisemeKK
	VisemeCH
	VisemeSS
	VisemeNN
	VisemeRR
	VisemeAA
	VisemeE
	VisemeI
	VisemeO
	VisemeU
	Default

	// NumCategories is the size of the closed set.
	NumCategories = int(Default) + 1
)

var categoryNames = [NumCategories]string{
	"anger", "disgust", "fear", "happiness", "sadness", "surprise",
	"blink", "gazeup", "gazedown",
	"sil", "pp", "ff", "th", "dd", "kk", "ch", "ss", "nn", "rr", "aa", "e", "i", "o", "u",
	"default",
}

// String returns the lowercase name of c.
func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool { return c >= 0 && int(c) < NumCategories }

// MarshalText encodes c by name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory resolves a case-insensitive category name. "gaze_up",
// "gaze-up" and "viseme_aa" style aliases are accepted.
func ParseCategory(name string) (Category, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "viseme_")
	n = strings.NewReplacer("_", "", "-", "").Replace(n)
	for i, cn := range categoryNames {
		if cn == n {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// Emotions lists the six emotion categories in priority order.
func Emotions() []Category {
	return []Category{Anger, Disgust, Fear, Happiness, Sadness, Surprise}
}

// GazeCategories lists blink, gaze-up and gaze-down in priority order.
func GazeCategories() []Category {
	return []Category{Blink, GazeUp, GazeDown}
}

// Visemes lists the fifteen viseme categories in decoder order.
func Visemes() []Category {
	out := make([]Category, 0, NumVisemes)
	for c := VisemeSil; c <= VisemeU; c++ {
		out = append(out, c)
	}
	return out
}

// NumVisemes is the length of a viseme frame.
const NumVisemes = int(VisemeU-VisemeSil) + 1

// IsEmotion reports whether c is one of the six emotions.
func (c Category) IsEmotion() bool { return c >= Anger && c <= Surprise }

// IsViseme reports whether c is one of the fifteen visemes.
func (c Category) IsViseme() bool { return c >= VisemeSil && c <= VisemeU }

// Package interest tracks the objects near a character that may attract
// its gaze.
package interest

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/teslashibe/go-face/internal/log"
)

// PruneInterval is how often inactive candidates are dropped, in seconds.
const PruneInterval = 1.0

// Candidate is an object that can be looked at. Implementations must be
// comparable, typically pointers.
type Candidate interface {
	Position() mgl64.Vec3
	// Active is false once the object has left the scene.
	Active() bool
}

// Emitter is a sound source attached to a candidate.
type Emitter interface {
	Playing() bool
	// Volume is linear, 0 to 1.
	Volume() float64
}

// EmitterSource is implemented by candidates that may carry an emitter.
type EmitterSource interface {
	Emitter() (Emitter, bool)
}

// EmitterOf returns c's emitter, if it has one.
func EmitterOf(c Candidate) (Emitter, bool) {
	if s, ok := c.(EmitterSource); ok {
		return s.Emitter()
	}
	return nil, false
}

// Entry is a candidate with its stable identity.
type Entry struct {
	ID        uuid.UUID
	Candidate Candidate
}

// Field is the ordered set of candidates currently in range. Entry order
// is insertion order. Only the frame loop may touch it.
type Field struct {
	logger  *slog.Logger
	entries []Entry
	since   float64

	onChange func(n int)
}

// NewField creates an empty field.
func NewField(logger *slog.Logger) *Field {
	return &Field{logger: log.Component(logger, "interest")}
}

// OnChange is called with the new size whenever the set changes.
func (f *Field) OnChange(fn func(n int)) { f.onChange = fn }

// Enter adds c and returns its ID. Adding a candidate twice returns the
// existing ID.
func (f *Field) Enter(c Candidate) uuid.UUID {
	for _, e := range f.entries {
		if e.Candidate == c {
			return e.ID
		}
	}
	id := uuid.New()
	f.entries = append(f.entries, Entry{ID: id, Candidate: c})
	f.logger.Debug("candidate entered", "id", id, "count", len(f.entries))
	f.changed()
	return id
}

// Exit removes the candidate with id.
func (f *Field) Exit(id uuid.UUID) bool {
	for i, e := range f.entries {
		if e.ID == id {
			f.remove(i)
			f.logger.Debug("candidate left", "id", id, "count", len(f.entries))
			f.changed()
			return true
		}
	}
	return false
}

// ExitCandidate removes c.
func (f *Field) ExitCandidate(c Candidate) bool {
	for _, e := range f.entries {
		if e.Candidate == c {
			return f.Exit(e.ID)
		}
	}
	return false
}

// Len returns the number of candidates.
func (f *Field) Len() int { return len(f.entries) }

// Entries returns a copy of the current entries.
func (f *Field) Entries() []Entry {
	return append([]Entry(nil), f.entries...)
}

// Lookup finds the entry with id.
func (f *Field) Lookup(id uuid.UUID) (Entry, bool) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Update runs the liveness prune every PruneInterval seconds.
func (f *Field) Update(dt float64) {
	f.since += dt
	if f.since+1e-9 < PruneInterval {
		return
	}
	f.since = 0
	f.Prune()
}

// Prune drops every inactive candidate and returns how many were dropped.
func (f *Field) Prune() int {
	kept := f.entries[:0]
	dropped := 0
	for _, e := range f.entries {
		if e.Candidate == nil || !e.Candidate.Active() {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(f.entries); i++ {
		f.entries[i] = Entry{}
	}
	f.entries = kept
	if dropped > 0 {
		f.logger.Debug("pruned inactive candidates", "dropped", dropped, "count", len(f.entries))
		f.changed()
	}
	return dropped
}

// Clear removes every candidate.
func (f *Field) Clear() {
	if len(f.entries) == 0 {
		return
	}
	clear(f.entries)
	f.entries = f.entries[:0]
	f.changed()
}

func (f *Field) remove(i int) {
	copy(f.entries[i:], f.entries[i+1:])
	f.entries[len(f.entries)-1] = Entry{}
	f.entries = f.entries[:len(f.entries)-1]
}

func (f *Field) changed() {
	if f.onChange != nil {
		f.onChange(len(f.entries))
	}
}

package interest

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Object is a simple movable candidate, optionally carrying an emitter.
type Object struct {
	mu      sync.RWMutex
	name    string
	pos     mgl64.Vec3
	active  bool
	emitter Emitter
}

// NewObject creates an active object at pos.
func NewObject(name string, pos mgl64.Vec3) *Object {
	return &Object{name: name, pos: pos, active: true}
}

// Name returns the object name.
func (o *Object) Name() string { return o.name }

// Position returns the world position.
func (o *Object) Position() mgl64.Vec3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pos
}

// MoveTo sets the world position.
func (o *Object) MoveTo(p mgl64.Vec3) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pos = p
}

// Active reports whether the object is still in the scene.
func (o *Object) Active() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.active
}

// SetActive marks the object as present or gone.
func (o *Object) SetActive(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = on
}

// AttachEmitter gives the object a sound source. nil detaches it.
func (o *Object) AttachEmitter(e Emitter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emitter = e
}

// Emitter returns the attached sound source.
func (o *Object) Emitter() (Emitter, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.emitter, o.emitter != nil
}

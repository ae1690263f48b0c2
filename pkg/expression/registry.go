package expression

import (
	"fmt"
	"sort"
	"sync"

	"github.com/teslashibe/go-face/pkg/blendshape"
)

// Registry holds named presets for one character.
type Registry struct {
	mu      sync.RWMutex
	space   *blendshape.Space
	presets map[string]*Preset
}

// NewRegistry creates a registry whose presets resolve against space.
func NewRegistry(space *blendshape.Space) *Registry {
	return &Registry{
		space:   space,
		presets: make(map[string]*Preset),
	}
}

// LoadBuiltIn registers every embedded preset.
func (r *Registry) LoadBuiltIn() error {
	names, err := ListEmbedded()
	if err != nil {
		return fmt.Errorf("failed to list embedded presets: %w", err)
	}
	for _, name := range names {
		p, err := LoadEmbedded(name, r.space)
		if err != nil {
			return fmt.Errorf("failed to load preset %q: %w", name, err)
		}
		r.Register(p)
	}
	return nil
}

// LoadCustomDir registers every preset found in dir.
func (r *Registry) LoadCustomDir(dir string) error {
	presets, err := LoadFromDirectory(dir, r.space)
	if err != nil {
		return err
	}
	for _, p := range presets {
		r.Register(p)
	}
	return nil
}

// Register adds or replaces a preset.
func (r *Registry) Register(p *Preset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[p.Name] = p
}

// Get retrieves a preset by name.
func (r *Registry) Get(name string) (*Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// List returns all registered preset names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered presets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presets)
}

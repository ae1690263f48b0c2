package expression

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-face/pkg/blendshape"
)

//go:embed data/*.yaml
var embeddedPresets embed.FS

// presetFile is the YAML layout of a preset.
//
//	name: sim
//	expressions:
//	  happiness: {mouthSmile_L: 80, mouthSmile_R: 80}
//	  blink: [0, 0, 100, 100]
type presetFile struct {
	Name        string                   `yaml:"name"`
	Description string                   `yaml:"description"`
	Channels    int                      `yaml:"channels"`
	Expressions map[string]channelValues `yaml:"expressions"`
}

// channelValues is either a positional list or a channel-name map.
type channelValues struct {
	list  []float64
	named map[string]float64
}

func (c *channelValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&c.list)
	case yaml.MappingNode:
		return node.Decode(&c.named)
	default:
		return fmt.Errorf("%w: line %d: expected list or map of channel weights", ErrInvalidPreset, node.Line)
	}
}

// Load parses a YAML preset and resolves it against space.
func Load(r io.Reader, space *blendshape.Space) (*Preset, error) {
	var f presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	if f.Channels != 0 && f.Channels != space.Total() {
		return nil, fmt.Errorf("%w: preset declares %d channels, character has %d",
			ErrInvalidPreset, f.Channels, space.Total())
	}

	p := NewPreset(f.Name, space.Total())
	p.Description = f.Description
	for name, vals := range f.Expressions {
		cat, err := ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
		}
		if vals.named == nil {
			p.Set(cat, vals.list)
			continue
		}
		raw := make([]float64, space.Total())
		for ch, w := range vals.named {
			i, ok := space.Index(ch)
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown channel %q", ErrInvalidPreset, cat, ch)
			}
			raw[i] = w
		}
		p.Set(cat, raw)
	}
	return p, nil
}

// LoadFile loads a preset from disk. The file stem names the preset when
// the document does not.
func LoadFile(path string, space *blendshape.Space) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}
	p, err := Load(bytes.NewReader(data), space)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = stem(path)
	}
	return p, nil
}

// LoadFromDirectory loads every *.yaml and *.yml preset in dir.
func LoadFromDirectory(dir string, space *blendshape.Space) ([]*Preset, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list preset files: %w", err)
		}
		files = append(files, matches...)
	}

	presets := make([]*Preset, 0, len(files))
	for _, file := range files {
		p, err := LoadFile(file, space)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// LoadEmbedded loads a built-in preset by name.
func LoadEmbedded(name string, space *blendshape.Space) (*Preset, error) {
	data, err := embeddedPresets.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p, err := Load(bytes.NewReader(data), space)
	if err != nil {
		return nil, fmt.Errorf("built-in %s: %w", name, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

// ListEmbedded returns the names of the built-in presets.
func ListEmbedded() ([]string, error) {
	entries, err := embeddedPresets.ReadDir("data")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, stem(e.Name()))
	}
	return names, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

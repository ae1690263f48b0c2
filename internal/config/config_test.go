package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "face.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second/60, cfg.Loop.Rate)
	assert.Equal(t, "probabilistic", cfg.Face.GazeMode)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
loop:
  rate: 20ms
face:
  emotion: happiness
  emotion_intensity: 40
  gaze_mode: random
http:
  addr: ":9001"
sink:
  url: ws://renderer:7000/face
`)
	cfg, err := NewLoader(path, log.Discard()).Load()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Millisecond, cfg.Loop.Rate)
	assert.Equal(t, "happiness", cfg.Face.Emotion)
	assert.Equal(t, 40.0, cfg.Face.EmotionIntensity)
	assert.Equal(t, "random", cfg.Face.GazeMode)
	assert.Equal(t, ":9001", cfg.HTTP.Addr)
	assert.Equal(t, "ws://renderer:7000/face", cfg.Sink.URL)
	// Untouched keys keep their defaults.
	assert.True(t, cfg.Face.Blinking)
	assert.Equal(t, 10*time.Second, cfg.Sink.HandshakeTimeout)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "http:\n  addr: \":9001\"\n")
	t.Setenv("FACE_HTTP_ADDR", ":7777")
	t.Setenv("FACE_FACE_AGENT", "true")

	cfg, err := NewLoader(path, log.Discard()).Load()
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.HTTP.Addr)
	assert.True(t, cfg.Face.Agent)
}

func TestMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), log.Discard()).Load()
	assert.Error(t, err)
}

func TestSearchPathFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	l := NewLoader("", log.Discard())
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
	assert.Empty(t, l.File())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"not an emotion":  func(c *Config) { c.Face.Emotion = "blink" },
		"unknown emotion": func(c *Config) { c.Face.Emotion = "smug" },
		"intensity":       func(c *Config) { c.Face.EmotionIntensity = 150 },
		"gaze mode":       func(c *Config) { c.Face.GazeMode = "wander" },
		"eye axis":        func(c *Config) { c.Face.EyeAxis = "w" },
		"lipsync mode":    func(c *Config) { c.Face.LipSyncMode = "psychic" },
		"rate":            func(c *Config) { c.Loop.Rate = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "face:\n  gaze_mode: sideways\n")
	_, err := NewLoader(path, log.Discard()).Load()
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestWatchDeliversEdits(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "face:\n  gaze_mode: static\n")
	l := NewLoader(path, log.Discard())
	_, err := l.Load()
	require.NoError(t, err)

	type change struct{ old, cur *Config }
	got := make(chan change, 4)
	l.Watch(func(old, cur *Config) { got <- change{old, cur} })

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("face:\n  gaze_mode: random\n"), 0o644))

	select {
	case c := <-got:
		assert.Equal(t, "static", c.old.Face.GazeMode)
		assert.Equal(t, "random", c.cur.Face.GazeMode)
		assert.Equal(t, "random", l.Current().Face.GazeMode)
	case <-time.After(3 * time.Second):
		t.Fatal("config change not delivered")
	}
}

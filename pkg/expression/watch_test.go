package expression_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/expression"
)

func TestWatcherReloadsPreset(t *testing.T) {
	space := blendshape.MustSpace(blendshape.Part{Name: "face", Channels: []string{"a", "b"}})
	dir := t.TempDir()
	path := filepath.Join(dir, "face.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: v1\nexpressions:\n  blink: [10, 0]\n"), 0o644))

	w, err := expression.NewWatcher(path, space, log.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *expression.Preset, 4)
	go w.Run(ctx, func(p *expression.Preset) { got <- p })

	// Broken edits are skipped; the next good one is delivered.
	require.NoError(t, os.WriteFile(path, []byte("expressions: [\n"), 0o644))
	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: v2\nexpressions:\n  blink: [0, 70]\n"), 0o644))

	select {
	case p := <-got:
		assert.Equal(t, "v2", p.Name)
		v, err := p.MaxValues(expression.Blink)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 70}, v)
	case <-time.After(3 * time.Second):
		t.Fatal("preset was not reloaded")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	space := blendshape.MustSpace(blendshape.Part{Name: "face", Channels: []string{"a"}})
	dir := t.TempDir()
	path := filepath.Join(dir, "face.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: v1\n"), 0o644))

	w, err := expression.NewWatcher(path, space, log.Discard())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *expression.Preset, 1)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(p *expression.Preset) { got <- p }) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("name: x\n"), 0o644))
	select {
	case <-got:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(400 * time.Millisecond):
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

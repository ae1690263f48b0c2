package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/pkg/interest"
)

func TestSceneRadioKeepsOneEmitter(t *testing.T) {
	s, err := newScene()
	require.NoError(t, err)
	first := s.emitter
	require.NotNil(t, first)
	assert.True(t, first.Playing())

	step := func(seconds float64) {
		for i := 0; i < int(seconds*60); i++ {
			s.Update(1.0 / 60)
		}
	}

	step(6)
	assert.False(t, first.Playing(), "burst over")

	step(7)
	assert.Same(t, first, s.emitter)
	assert.True(t, first.Playing(), "next burst")
	em, ok := interest.EmitterOf(s.radio)
	require.True(t, ok)
	assert.Same(t, first, em)
}

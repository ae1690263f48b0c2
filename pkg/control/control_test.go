package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/face/facetest"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/lipsync"
	"github.com/teslashibe/go-face/pkg/protocol"
)

func newController(t *testing.T) (*Controller, *facetest.Face) {
	t.Helper()
	f := facetest.New(t)
	f.Run(t)
	return New(f.Loop, f.Manager, log.Discard()), f
}

func send(t *testing.T, c *Controller, typ protocol.MessageType, data any) (*protocol.Message, error) {
	t.Helper()
	msg, err := protocol.NewMessage(typ, data)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.Handle(ctx, msg)
}

func TestEmotionCommand(t *testing.T) {
	c, f := newController(t)

	_, err := send(t, c, protocol.TypeEmotion, protocol.EmotionCommand{Emotion: "Happiness", Intensity: 60})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.Weight(t, 0) == 60 }, time.Second, time.Millisecond)

	s, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "happiness", s.Emotion.Name)
}

func TestEmotionCommandRejectsNonEmotions(t *testing.T) {
	c, _ := newController(t)

	_, err := send(t, c, protocol.TypeEmotion, protocol.EmotionCommand{Emotion: "blink", Intensity: 60})
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = send(t, c, protocol.TypeEmotion, protocol.EmotionCommand{Emotion: "smug", Intensity: 60})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestGazeCommands(t *testing.T) {
	c, _ := newController(t)

	agent := true
	_, err := send(t, c, protocol.TypeGazeMode, protocol.GazeModeCommand{Mode: "scripted", Agent: &agent})
	require.NoError(t, err)
	_, err = send(t, c, protocol.TypeGazeTarget, protocol.GazeTargetCommand{Position: [3]float64{0, 0, 5}})
	require.NoError(t, err)

	s, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gaze.ModeScripted, s.Gaze.Mode)
	assert.True(t, s.Gaze.Agent)

	_, err = send(t, c, protocol.TypeGazeMode, protocol.GazeModeCommand{Mode: "wander"})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestLipSyncCommand(t *testing.T) {
	c, f := newController(t)

	off := false
	smoothing := 250
	_, err := send(t, c, protocol.TypeLipSync, protocol.LipSyncCommand{Mode: "prerecorded", Processing: &off, Smoothing: &smoothing})
	require.NoError(t, err)

	s, err := c.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lipsync.Prerecorded.String(), s.LipSync.Mode)
	assert.False(t, s.LipSync.Processing)
	assert.Equal(t, 100, s.LipSync.Smoothing)
	assert.Equal(t, 100, f.Decoder.Smoothing())
}

func TestEnableCommand(t *testing.T) {
	c, f := newController(t)

	_, err := send(t, c, protocol.TypeEmotion, protocol.EmotionCommand{Emotion: "anger", Intensity: 40})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.Weight(t, 1) == 40 }, time.Second, time.Millisecond)

	_, err = send(t, c, protocol.TypeEnable, protocol.EnableCommand{Enabled: false})
	require.NoError(t, err)
	assert.Zero(t, f.Weight(t, 1))

	s, err := c.State(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Enabled)

	_, err = send(t, c, protocol.TypeEnable, protocol.EnableCommand{Enabled: true})
	require.NoError(t, err)
	s, err = c.State(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Enabled)
}

func TestPingAndState(t *testing.T) {
	c, _ := newController(t)

	reply, err := c.HandleBytes(context.Background(), []byte(`{"type":"ping","data":{"id":"abc","ts":10}}`))
	require.NoError(t, err)
	require.Equal(t, protocol.TypePong, reply.Type)
	pong, err := reply.GetPongData()
	require.NoError(t, err)
	assert.Equal(t, "abc", pong.ID)
	assert.Equal(t, int64(10), pong.PingTS)

	reply, err = send(t, c, protocol.TypeState, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeState, reply.Type)
}

func TestUnsupportedMessages(t *testing.T) {
	c, _ := newController(t)

	_, err := send(t, c, protocol.TypeWeights, nil)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = c.HandleBytes(context.Background(), []byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestHandleHonorsContext(t *testing.T) {
	f := facetest.New(t)
	c := New(f.Loop, f.Manager, log.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	msg, err := protocol.NewEmotionMessage("fear", 10)
	require.NoError(t, err)
	_, err = c.Handle(ctx, msg)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

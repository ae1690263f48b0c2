// Package control applies protocol commands to a face from any goroutine.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/expression"
	"github.com/teslashibe/go-face/pkg/face"
	"github.com/teslashibe/go-face/pkg/frame"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/lipsync"
	"github.com/teslashibe/go-face/pkg/protocol"
)

var (
	// ErrUnsupported is returned for message types the engine does not accept.
	ErrUnsupported = errors.New("unsupported message type")

	// ErrInvalidCommand is returned when a command payload cannot be applied.
	ErrInvalidCommand = errors.New("invalid command")
)

// Controller serializes commands onto the frame loop that owns a face.
type Controller struct {
	loop   *frame.Loop
	face   *face.Manager
	logger *slog.Logger
}

// New creates a controller for m, which must be registered on loop.
func New(loop *frame.Loop, m *face.Manager, logger *slog.Logger) *Controller {
	return &Controller{loop: loop, face: m, logger: log.Component(logger, "control")}
}

// State captures a snapshot on the loop.
func (c *Controller) State(ctx context.Context) (face.Snapshot, error) {
	var s face.Snapshot
	err := c.loop.Do(ctx, func() { s = c.face.Snapshot() })
	return s, err
}

// HandleBytes parses and applies a JSON message.
func (c *Controller) HandleBytes(ctx context.Context, data []byte) (*protocol.Message, error) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return c.Handle(ctx, msg)
}

// Handle applies msg and returns the reply, if the message has one.
// Pings are answered without touching the loop.
func (c *Controller) Handle(ctx context.Context, msg *protocol.Message) (*protocol.Message, error) {
	if msg.Type == protocol.TypePing {
		p, err := msg.GetPingData()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return protocol.NewPongMessage(p.ID, p.Timestamp, time.Now().UnixMilli())
	}

	apply, err := c.prepare(msg)
	if err != nil {
		c.logger.Debug("command rejected", "type", msg.Type, "error", err)
		return nil, err
	}
	var reply *protocol.Message
	var applyErr error
	if err := c.loop.Do(ctx, func() { reply, applyErr = apply() }); err != nil {
		return nil, err
	}
	if applyErr != nil {
		c.logger.Warn("command failed", "type", msg.Type, "error", applyErr)
	}
	return reply, applyErr
}

// prepare decodes and validates msg off the loop and returns the work to
// run on it.
func (c *Controller) prepare(msg *protocol.Message) (func() (*protocol.Message, error), error) {
	switch msg.Type {
	case protocol.TypeEmotion:
		cmd, err := msg.GetEmotionCommand()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		cat, err := expression.ParseCategory(cmd.Emotion)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		if !cat.IsEmotion() {
			return nil, fmt.Errorf("%w: %s is not an emotion", ErrInvalidCommand, cat)
		}
		return func() (*protocol.Message, error) {
			return nil, c.face.SetEmotion(cat, cmd.Intensity)
		}, nil

	case protocol.TypeGazeMode:
		cmd, err := msg.GetGazeModeCommand()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		mode, err := gaze.ParseMode(cmd.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return func() (*protocol.Message, error) {
			c.face.SetGazeMode(mode)
			if cmd.Agent != nil {
				c.face.SetAgentMode(*cmd.Agent)
			}
			return nil, nil
		}, nil

	case protocol.TypeGazeTarget:
		cmd, err := msg.GetGazeTargetCommand()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		p := mgl64.Vec3(cmd.Position)
		return func() (*protocol.Message, error) {
			c.face.SetGazeTarget(p)
			return nil, nil
		}, nil

	case protocol.TypeLipSync:
		cmd, err := msg.GetLipSyncCommand()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		var mode *lipsync.Mode
		if cmd.Mode != "" {
			m, err := lipsync.ParseMode(cmd.Mode)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
			}
			mode = &m
		}
		return func() (*protocol.Message, error) {
			lip := c.face.LipSync()
			if cmd.Smoothing != nil {
				lip.SetSmoothing(*cmd.Smoothing)
			}
			if mode != nil {
				if err := c.face.SetLipMode(*mode); err != nil {
					return nil, err
				}
			}
			if cmd.Processing != nil {
				return nil, lip.SetProcessing(*cmd.Processing)
			}
			return nil, nil
		}, nil

	case protocol.TypeEnable:
		cmd, err := msg.GetEnableCommand()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return func() (*protocol.Message, error) {
			if cmd.Enabled {
				return nil, c.face.Enable()
			}
			return nil, c.face.Disable()
		}, nil

	case protocol.TypeState:
		return func() (*protocol.Message, error) {
			return protocol.NewStateMessage(c.face.Snapshot())
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, msg.Type)
	}
}

package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-face/pkg/control"
	"github.com/teslashibe/go-face/pkg/hub"
	"github.com/teslashibe/go-face/pkg/protocol"
)

// requestTimeout bounds how long a request waits for the frame loop.
const requestTimeout = 2 * time.Second

// handleError maps control errors to HTTP status codes
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, control.ErrInvalidCommand), errors.Is(err, control.ErrUnsupported):
		code = fiber.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = fiber.StatusServiceUnavailable
	}
	if code >= 500 {
		s.logger.Warn("request failed", "path", c.Path(), "status", code, "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// handleHealth reports liveness and connected clients
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"dashboard": s.dashboard.ClientCount(),
		"renderers": s.renderers.Count(),
	})
}

// handleState returns a face snapshot
func (s *Server) handleState(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	state, err := s.ctl.State(ctx)
	if err != nil {
		return err
	}
	return c.JSON(state)
}

// command parses the body into T and applies it as a message of type typ
func command[T any](s *Server, c *fiber.Ctx, typ protocol.MessageType) error {
	var body T
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	msg, err := protocol.NewMessage(typ, body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	if _, err := s.ctl.Handle(ctx, msg); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleEmotion(c *fiber.Ctx) error {
	return command[protocol.EmotionCommand](s, c, protocol.TypeEmotion)
}

func (s *Server) handleGazeMode(c *fiber.Ctx) error {
	return command[protocol.GazeModeCommand](s, c, protocol.TypeGazeMode)
}

func (s *Server) handleGazeTarget(c *fiber.Ctx) error {
	return command[protocol.GazeTargetCommand](s, c, protocol.TypeGazeTarget)
}

func (s *Server) handleLipSync(c *fiber.Ctx) error {
	return command[protocol.LipSyncCommand](s, c, protocol.TypeLipSync)
}

func (s *Server) handleEnable(c *fiber.Ctx) error {
	return command[protocol.EnableCommand](s, c, protocol.TypeEnable)
}

// handleWeightsWS streams weights to a dashboard and accepts commands
// from it. A state message is queued on connect.
func (s *Server) handleWeightsWS(c *websocket.Conn) {
	var client *hub.Client
	client = hub.NewClient(s.dashboard, c, func(data []byte) {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		reply, err := s.ctl.HandleBytes(ctx, data)
		if err != nil {
			reply, err = protocol.NewErrorMessage("", err)
		}
		if err != nil || reply == nil {
			return
		}
		if b, err := reply.Bytes(); err == nil {
			client.Send(hub.NewJSONMessage(b))
		}
	})
	s.stream.Subscribed()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	state, err := s.ctl.State(ctx)
	cancel()
	if err == nil {
		if msg, err := protocol.NewStateMessage(state); err == nil {
			if b, err := msg.Bytes(); err == nil {
				client.Send(hub.NewJSONMessage(b))
			}
		}
	}
	client.Run()
}

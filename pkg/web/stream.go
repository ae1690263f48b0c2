package web

import (
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/gaze"
	"github.com/teslashibe/go-face/pkg/hub"
	"github.com/teslashibe/go-face/pkg/protocol"
	"github.com/teslashibe/go-face/pkg/renderer"
)

// Stream publishes frames to dashboards and renderers. Publish and
// SetLookAt run on the frame loop.
type Stream struct {
	logger    *slog.Logger
	dashboard *hub.Hub
	renderers *renderer.Hub
	channels  []string

	last      []float64
	lookAt    *gaze.LookAt
	joined    atomic.Bool
	encodeErr log.WarnOnce
}

// NewStream creates a stream for a face with the given channel names.
func NewStream(channels []string, logger *slog.Logger) *Stream {
	s := &Stream{
		logger:    log.Component(logger, "stream"),
		dashboard: hub.New("weights", logger),
		renderers: renderer.NewHub(logger),
		channels:  channels,
	}
	s.renderers.OnChange(func(int) { s.Subscribed() })
	return s
}

// Dashboard returns the browser hub.
func (s *Stream) Dashboard() *hub.Hub { return s.dashboard }

// Renderers returns the renderer hub.
func (s *Stream) Renderers() *renderer.Hub { return s.renderers }

// Subscribed forces the next frame to be published with channel names.
func (s *Stream) Subscribed() { s.joined.Store(true) }

// Subscribers returns the number of connected dashboards and renderers.
func (s *Stream) Subscribers() int {
	return s.dashboard.ClientCount() + s.renderers.Count()
}

// SetLookAt records the IK request to publish with the next frame.
func (s *Stream) SetLookAt(l gaze.LookAt) { s.lookAt = &l }

// Publish sends the weights of frame when they changed since the last
// published frame or a subscriber joined.
func (s *Stream) Publish(frame uint64, weights []float64) {
	if s.Subscribers() == 0 {
		s.lookAt = nil
		return
	}
	joined := s.joined.Swap(false)
	if !joined && equal(s.last, weights) {
		s.publishLookAt()
		return
	}
	s.last = append(s.last[:0], weights...)

	var names []string
	if joined {
		names = s.channels
	}
	msg, err := protocol.NewWeightsMessage(frame, weights, names)
	if err != nil {
		s.encodeErr.Warn(s.logger, "weights", "encoding weights failed", "error", err)
		return
	}
	s.send(msg)
	s.publishLookAt()
}

func (s *Stream) publishLookAt() {
	if s.lookAt == nil || s.renderers.Count() == 0 {
		s.lookAt = nil
		return
	}
	l := *s.lookAt
	s.lookAt = nil
	msg, err := protocol.NewLookAtMessage(l.Weight, l.BodyWeight, l.HeadWeight, [3]float64(l.Position))
	if err != nil {
		s.encodeErr.Warn(s.logger, "lookat", "encoding look-at failed", "error", err)
		return
	}
	if err := s.renderers.Broadcast(msg); err != nil {
		s.encodeErr.Warn(s.logger, "lookat.send", "broadcasting look-at failed", "error", err)
	}
}

func (s *Stream) send(msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		s.encodeErr.Warn(s.logger, "bytes", "encoding message failed", "error", err)
		return
	}
	s.dashboard.Broadcast(hub.NewJSONMessage(data))
	if s.renderers.Count() > 0 {
		if err := s.renderers.Broadcast(msg); err != nil {
			s.encodeErr.Warn(s.logger, "send", "broadcasting weights failed", "error", err)
		}
	}
}

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

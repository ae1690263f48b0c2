// Package sink provides blend-shape sinks that live outside the process.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
	"github.com/teslashibe/go-face/pkg/protocol"
)

// ErrDisconnected is returned by Flush while no renderer is connected.
var ErrDisconnected = errors.New("remote sink disconnected")

// CommandFunc handles a message sent by the renderer and returns the
// reply, if any.
type CommandFunc func(ctx context.Context, data []byte) (*protocol.Message, error)

// Config controls the connection to a remote renderer.
type Config struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	ReconnectMin     time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax     time.Duration `mapstructure:"reconnect_max"`
	Header           http.Header   `mapstructure:"-"`
}

// DefaultConfig returns conservative timeouts for a LAN renderer.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      120 * time.Second,
		ReconnectMin:     500 * time.Millisecond,
		ReconnectMax:     10 * time.Second,
	}
}

// Remote streams weights to a renderer over a websocket. Writes land in
// memory; Flush publishes one weights message per frame when anything
// changed. It implements blendshape.Sink and blendshape.Flusher.
type Remote struct {
	cfg      Config
	logger   *slog.Logger
	channels []string

	mem   *blendshape.Memory
	dirty bool
	frame uint64

	out       chan []byte
	joined    atomic.Bool
	connected atomic.Bool
	onCommand CommandFunc

	wsMu sync.Mutex
	ws   *websocket.Conn

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewRemote creates a sink for a face with the given channel names.
// Nothing is dialled until Run.
func NewRemote(cfg Config, channels []string, logger *slog.Logger) *Remote {
	def := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = def.ReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = max(def.ReconnectMax, cfg.ReconnectMin)
	}
	return &Remote{
		cfg:      cfg,
		logger:   log.Component(logger, "sink").With("url", cfg.URL),
		channels: channels,
		mem:      blendshape.NewMemory(len(channels)),
		out:      make(chan []byte, 1),
	}
}

// OnCommand installs the handler for messages sent by the renderer.
// Call before Run.
func (r *Remote) OnCommand(fn CommandFunc) { r.onCommand = fn }

// SetChannelWeight records w for channel i.
func (r *Remote) SetChannelWeight(i int, w float64) {
	if r.mem.ChannelWeight(i) == w {
		return
	}
	r.mem.SetChannelWeight(i, w)
	r.dirty = true
}

// ChannelWeight returns the last weight written to channel i.
func (r *Remote) ChannelWeight(i int) float64 { return r.mem.ChannelWeight(i) }

// Connected reports whether a renderer is attached.
func (r *Remote) Connected() bool { return r.connected.Load() }

// Sent returns the number of weights messages written.
func (r *Remote) Sent() uint64 { return r.sent.Load() }

// Dropped returns the number of frames replaced before they were written.
func (r *Remote) Dropped() uint64 { return r.dropped.Load() }

// Flush queues the current weights. Only the latest frame is kept when
// the connection falls behind.
func (r *Remote) Flush() error {
	joined := r.joined.Swap(false)
	if !r.dirty && !joined {
		return nil
	}
	if !r.connected.Load() {
		if joined {
			r.joined.Store(true)
		}
		return ErrDisconnected
	}
	r.dirty = false
	r.frame++

	var names []string
	if joined {
		names = r.channels
	}
	msg, err := protocol.NewWeightsMessage(r.frame, r.mem.Weights(), names)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	r.enqueue(data)
	return nil
}

func (r *Remote) enqueue(data []byte) {
	for {
		select {
		case r.out <- data:
			return
		default:
		}
		select {
		case <-r.out:
			r.dropped.Add(1)
		default:
		}
	}
}

// Run dials the renderer and keeps the connection up until ctx is
// cancelled, backing off exponentially between attempts.
func (r *Remote) Run(ctx context.Context) error {
	if r.cfg.URL == "" {
		return errors.New("remote sink: url required")
	}
	backoff := r.cfg.ReconnectMin
	for {
		start := time.Now()
		err := r.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > r.cfg.ReconnectMax {
			backoff = r.cfg.ReconnectMin
		}
		r.logger.Warn("renderer connection lost", "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, r.cfg.ReconnectMax)
	}
}

// session runs one connection until it fails.
func (r *Remote) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: r.cfg.HandshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, r.cfg.URL, r.cfg.Header)
	if err != nil {
		return fmt.Errorf("dial renderer: %w", err)
	}
	defer ws.Close()

	r.wsMu.Lock()
	r.ws = ws
	r.wsMu.Unlock()
	defer func() {
		r.wsMu.Lock()
		r.ws = nil
		r.wsMu.Unlock()
	}()

	// Answer pings under the write lock
	ws.SetPingHandler(func(appData string) error {
		r.wsMu.Lock()
		defer r.wsMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
	})

	// Discard whatever was queued for the previous connection
	select {
	case <-r.out:
	default:
	}
	r.joined.Store(true)
	r.connected.Store(true)
	defer r.connected.Store(false)
	r.logger.Info("renderer connected")

	readErr := make(chan error, 1)
	go func() { readErr <- r.readLoop(ctx, ws) }()

	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		case err := <-readErr:
			return err
		case data := <-r.out:
			if err := r.write(websocket.TextMessage, data); err != nil {
				return err
			}
			r.sent.Add(1)
		case <-ticker.C:
			r.wsMu.Lock()
			err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			r.wsMu.Unlock()
			if err != nil {
				return err
			}
		}
	}
}

func (r *Remote) readLoop(ctx context.Context, ws *websocket.Conn) error {
	for {
		ws.SetReadDeadline(time.Now().Add(r.cfg.ReadTimeout))
		mt, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage || r.onCommand == nil {
			continue
		}
		reply, err := r.onCommand(ctx, data)
		if err != nil {
			r.logger.Debug("renderer command rejected", "error", err)
			reply, err = protocol.NewErrorMessage("", err)
		}
		if err != nil || reply == nil {
			continue
		}
		b, err := reply.Bytes()
		if err != nil {
			continue
		}
		if err := r.write(websocket.TextMessage, b); err != nil {
			return err
		}
	}
}

// write sends one frame under the write lock.
func (r *Remote) write(mt int, data []byte) error {
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	if r.ws == nil {
		return ErrDisconnected
	}
	r.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return r.ws.WriteMessage(mt, data)
}

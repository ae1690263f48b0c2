// Package renderer accepts websocket connections from remote renderers,
// streams face frames to them and forwards their commands to the engine.
package renderer

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/protocol"
)

// writeWait bounds a single write to a renderer.
const writeWait = 2 * time.Second

// CommandFunc applies a command from a renderer and returns the reply,
// if any.
type CommandFunc func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error)

// Connection represents a connected renderer
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the renderer
func (r *Connection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return r.send(data)
}

func (r *Connection) send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return r.Conn.WriteMessage(websocket.TextMessage, data)
}

func (r *Connection) touch() {
	r.mu.Lock()
	r.LastSeen = time.Now()
	r.mu.Unlock()
}

// Hub manages WebSocket connections from renderers
type Hub struct {
	logger *slog.Logger

	mu        sync.RWMutex
	renderers map[string]*Connection
	onCommand CommandFunc
	onChange  func(n int)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	commandsFailed   atomic.Uint64
}

// NewHub creates a new renderer hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:    log.Component(logger, "renderer"),
		renderers: make(map[string]*Connection),
	}
}

// OnCommand sets the callback for commands sent by renderers
func (h *Hub) OnCommand(fn CommandFunc) {
	h.mu.Lock()
	h.onCommand = fn
	h.mu.Unlock()
}

// OnChange is called with the renderer count after every connect and
// disconnect.
func (h *Hub) OnChange(fn func(n int)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber router
func (h *Hub) RegisterRoutes(r fiber.Router) {
	r.Use("/ws/renderer", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws/renderer", websocket.New(h.handleRenderer))
	r.Get("/ws/renderer/:id", websocket.New(h.handleRenderer))
}

// handleRenderer handles a renderer WebSocket connection
func (h *Hub) handleRenderer(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	conn := &Connection{
		ID:        id,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	if old, ok := h.renderers[id]; ok {
		old.Conn.Close()
	}
	h.renderers[id] = conn
	count := len(h.renderers)
	onChange := h.onChange
	h.mu.Unlock()
	h.logger.Info("renderer connected", "id", id, "renderers", count)
	if onChange != nil {
		onChange(count)
	}

	defer func() {
		h.mu.Lock()
		if h.renderers[id] == conn {
			delete(h.renderers, id)
		}
		count := len(h.renderers)
		onChange := h.onChange
		h.mu.Unlock()
		h.logger.Info("renderer disconnected", "id", id, "renderers", count)
		if onChange != nil {
			onChange(count)
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("renderer read ended", "id", id, "error", err)
			return
		}
		conn.touch()
		h.messagesReceived.Add(1)
		h.handleMessage(conn, data)
	}
}

// handleMessage processes an incoming message from a renderer
func (h *Hub) handleMessage(conn *Connection, data []byte) {
	reply := h.replyTo(conn)

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Debug("parse error", "id", conn.ID, "error", err)
		reply(protocol.NewErrorMessage("", err))
		return
	}

	if msg.Type == protocol.TypePing {
		ping, err := msg.GetPingData()
		if err != nil {
			reply(protocol.NewErrorMessage(msg.Type, err))
			return
		}
		reply(protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli()))
		return
	}

	h.mu.RLock()
	onCommand := h.onCommand
	h.mu.RUnlock()
	if onCommand == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := onCommand(ctx, msg)
	if err != nil {
		h.commandsFailed.Add(1)
		reply(protocol.NewErrorMessage(msg.Type, err))
		return
	}
	if out != nil {
		reply(out, nil)
	}
}

func (h *Hub) replyTo(conn *Connection) func(*protocol.Message, error) {
	return func(msg *protocol.Message, err error) {
		if err != nil {
			h.logger.Warn("building reply failed", "id", conn.ID, "error", err)
			return
		}
		h.messagesSent.Add(1)
		if err := conn.Send(msg); err != nil {
			h.logger.Debug("reply failed", "id", conn.ID, "error", err)
		}
	}
}

// SendTo sends a message to one renderer
func (h *Hub) SendTo(id string, msg *protocol.Message) error {
	h.mu.RLock()
	conn, ok := h.renderers[id]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "renderer not connected")
	}

	h.messagesSent.Add(1)
	return conn.Send(msg)
}

// Broadcast sends a message to all connected renderers. The message is
// encoded once.
func (h *Hub) Broadcast(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.renderers))
	for _, r := range h.renderers {
		conns = append(conns, r)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.messagesSent.Add(1)
		if err := conn.send(data); err != nil {
			h.logger.Debug("broadcast failed", "id", conn.ID, "error", err)
		}
	}
	return nil
}

// Get returns a renderer connection by ID
func (h *Hub) Get(id string) *Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.renderers[id]
}

// Count returns the number of connected renderers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.renderers)
}

// Stats contains hub statistics
type Stats struct {
	Renderers        int    `json:"renderers"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	CommandsFailed   uint64 `json:"commands_failed"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		Renderers:        h.Count(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		CommandsFailed:   h.commandsFailed.Load(),
	}
}

// Info describes a connected renderer
type Info struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// Infos returns info about all connected renderers, sorted by ID
func (h *Hub) Infos() []Info {
	h.mu.RLock()
	infos := make([]Info, 0, len(h.renderers))
	for _, r := range h.renderers {
		r.mu.Lock()
		infos = append(infos, Info{ID: r.ID, Connected: r.Connected, LastSeen: r.LastSeen})
		r.mu.Unlock()
	}
	h.mu.RUnlock()
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// RegisterAPIRoutes registers API routes for renderer management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	renderers := api.Group("/renderers")

	renderers.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"renderers": h.Infos(),
			"count":     h.Count(),
		})
	})

	renderers.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	// Push a raw protocol message to one renderer
	renderers.Post("/:id/send", func(c *fiber.Ctx) error {
		msg, err := protocol.ParseMessage(c.Body())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := h.SendTo(c.Params("id"), msg); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"status": "sent"})
	})
}

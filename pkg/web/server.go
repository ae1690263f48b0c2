// Package web serves the face over HTTP: a JSON control API, Prometheus
// metrics and websocket streams for dashboards and renderers.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/control"
	"github.com/teslashibe/go-face/pkg/hub"
	"github.com/teslashibe/go-face/pkg/metrics"
	"github.com/teslashibe/go-face/pkg/renderer"
)

// Config controls the HTTP server.
type Config struct {
	Addr         string `mapstructure:"addr"`
	AllowOrigins string `mapstructure:"allow_origins"`
	// AccessLog enables per-request logging.
	AccessLog bool `mapstructure:"access_log"`
	// Static, when set, is served at /.
	Static string `mapstructure:"static"`
}

// DefaultConfig listens on :8080 and allows every origin.
func DefaultConfig() Config {
	return Config{Addr: ":8080", AllowOrigins: "*"}
}

// Server is the face's HTTP front end
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	ctl       *control.Controller
	stream    *Stream
	dashboard *hub.Hub
	renderers *renderer.Hub
	metrics   *metrics.Collector
}

// NewServer creates a server driving ctl. The dashboard and renderer
// hubs are fed by stream; collector may be nil.
func NewServer(cfg Config, ctl *control.Controller, stream *Stream, collector *metrics.Collector, logger *slog.Logger) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = def.AllowOrigins
	}
	s := &Server{
		cfg:       cfg,
		logger:    log.Component(logger, "web"),
		ctl:       ctl,
		stream:    stream,
		dashboard: stream.Dashboard(),
		renderers: stream.Renderers(),
		metrics:   collector,
	}
	s.renderers.OnCommand(ctl.Handle)

	app := fiber.New(fiber.Config{
		AppName:               "go-face",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	if collector != nil {
		app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	}

	// API routes
	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Post("/emotion", s.handleEmotion)
	api.Post("/gaze/mode", s.handleGazeMode)
	api.Post("/gaze/target", s.handleGazeTarget)
	api.Post("/lipsync", s.handleLipSync)
	api.Post("/enable", s.handleEnable)
	s.renderers.RegisterAPIRoutes(api)

	// WebSocket routes
	app.Use("/ws/weights", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/weights", websocket.New(s.handleWeightsWS))
	s.renderers.RegisterRoutes(app)

	if cfg.Static != "" {
		app.Static("/", cfg.Static)
	}

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is cancelled, then shuts down within five seconds.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.dashboard.Run(hubCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown failed", "error", err)
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

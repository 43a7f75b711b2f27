// Package web serves the assistant's control panel: a JSON API for
// status, tuning, and conversation history, plus a websocket feed of
// state transitions.
package web

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/mkarlsen/hearth/pkg/assistant"
	"github.com/mkarlsen/hearth/pkg/hub"
)

// Server is the control panel server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	assistant *assistant.Assistant
	statusHub *hub.Hub
}

// NewServer creates the control panel over the given assistant.
func NewServer(port string, a *assistant.Assistant, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		port:      port,
		logger:    logger.With("component", "web"),
		assistant: a,
		statusHub: hub.New("status", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "hearth control panel",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/settings", s.handleGetSettings)
	api.Post("/settings", s.handlePostSettings)
	api.Get("/conversation", s.handleConversation)
	api.Post("/chat", s.handleChat)
	api.Post("/trigger", s.handleTrigger)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app

	// Push every state transition to connected panels.
	a.SetTransitionHook(func(from, to assistant.State, ev assistant.Event) {
		s.statusHub.BroadcastJSON(transitionMessage{
			From:  from.String(),
			To:    to.String(),
			Event: ev.String(),
		})
	})

	return s
}

type transitionMessage struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Event string `json:"event"`
}

// Start runs the hub and listens. It blocks until Shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run()
	s.logger.Info("control panel listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown stops the server and disconnects panel clients.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

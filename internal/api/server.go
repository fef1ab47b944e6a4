// Package api serves the dashboard: task and memory management over
// REST, a chat endpoint into the conversation loop, a websocket feed of
// live turns, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gmsas95/aria/internal/agent"
	"github.com/gmsas95/aria/internal/config"
	"github.com/gmsas95/aria/internal/history"
	"github.com/gmsas95/aria/internal/store"
)

// Server handles HTTP API and the websocket turn feed.
type Server struct {
	app        *fiber.App
	config     *config.Config
	store      *store.Store
	controller *agent.Controller
	logger     *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New wires the server against an already-built store and controller.
// The controller feeds every appended turn to connected websockets.
func New(cfg *config.Config, st *store.Store, controller *agent.Controller, logger *zap.Logger) *Server {
	readTimeout := cfg.Server.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30
	}
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 30
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:        app,
		config:     cfg,
		store:      st,
		controller: controller,
		logger:     logger,
		clients:    make(map[*websocket.Conn]struct{}),
	}

	controller.OnTurn(s.broadcastTurn)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)

	api := s.app.Group("/api")

	api.Get("/memories", s.handleListMemories)
	api.Post("/memories", s.handleSaveMemory)
	api.Delete("/memories/:key", s.handleDeleteMemory)

	api.Get("/tasks", s.handleListTasks)
	api.Post("/tasks", s.handleCreateTask)
	api.Post("/tasks/:id/complete", s.handleCompleteTask)
	api.Delete("/tasks/:id", s.handleDeleteTask)

	api.Post("/chat", s.handleChat)
	api.Get("/history", s.handleHistory)

	s.app.Get("/ws", websocket.New(s.handleWebSocket))
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app.Get("/", s.handleIndex)
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("Dashboard listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// ==================== WebSocket feed ====================

func (s *Server) handleWebSocket(c *websocket.Conn) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		c.Close()
	}()

	// Reads only keep the connection alive; the feed is one-way.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcastTurn(turn history.Turn) {
	payload := turnPayload(turn)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if err := c.WriteJSON(payload); err != nil {
			s.logger.Debug("Dropping websocket client", zap.Error(err))
			c.Close()
			delete(s.clients, c)
		}
	}
}

func turnPayload(turn history.Turn) fiber.Map {
	return fiber.Map{
		"id":         turn.ID,
		"role":       turn.Role,
		"content":    turn.Content,
		"tool_name":  turn.ToolName,
		"created_at": turn.CreatedAt.Unix(),
	}
}

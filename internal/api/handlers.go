package api

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/gmsas95/aria/internal/errors"
	"github.com/gmsas95/aria/internal/store"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"state":     string(s.controller.State()),
		"timestamp": time.Now().Unix(),
	})
}

// ==================== Memories ====================

func (s *Server) handleListMemories(c *fiber.Ctx) error {
	memories, err := s.store.ListMemories()
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"memories": memories, "count": len(memories)})
}

func (s *Server) handleSaveMemory(c *fiber.Ctx) error {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	key := strings.ToLower(strings.Join(strings.Fields(req.Key), " "))
	if key == "" || req.Value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "key and value are required"})
	}

	if err := s.store.SaveMemory(key, req.Value); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key, "value": req.Value})
}

func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("key"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid key"})
	}
	if err := s.store.DeleteMemory(key); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Tasks ====================

func (s *Server) handleListTasks(c *fiber.Ctx) error {
	filter := store.FilterAll
	if f := c.Query("filter"); f != "" {
		filter = store.TaskFilter(f)
	}

	tasks, err := s.store.ListTasks(filter)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleCreateTask(c *fiber.Ctx) error {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "description is required"})
	}

	id, err := s.store.CreateTask(description)
	if err != nil {
		return s.fail(c, err)
	}

	task, err := s.store.GetTask(id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (s *Server) handleCompleteTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task id"})
	}

	if err := s.store.CompleteTask(id); err != nil {
		return s.fail(c, err)
	}

	task, err := s.store.GetTask(id)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(task)
}

func (s *Server) handleDeleteTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid task id"})
	}

	if err := s.store.DeleteTask(id); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ==================== Chat ====================

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}

	reply, err := s.controller.HandleUtterance(c.Context(), req.Message)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"reply": reply})
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	turns := s.controller.History()
	payload := make([]fiber.Map, 0, len(turns))
	for _, turn := range turns {
		payload = append(payload, turnPayload(turn))
	}
	return c.JSON(fiber.Map{"turns": payload, "count": len(payload)})
}

// fail maps store and agent errors onto HTTP statuses.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = fiber.StatusNotFound
	case apperrors.GetCode(err) == "STORE_003":
		status = fiber.StatusBadRequest
	case apperrors.GetCode(err) == "AGENT_002":
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": apperrors.GetCode(err)})
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(`<!DOCTYPE html>
<html>
<head><title>Aria</title></head>
<body style="font-family: sans-serif; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Aria</h1>
<p>Voice assistant dashboard. Endpoints:</p>
<ul>
<li><code>GET /api/health</code></li>
<li><code>GET /api/tasks</code>, <code>POST /api/tasks</code></li>
<li><code>GET /api/memories</code>, <code>POST /api/memories</code></li>
<li><code>POST /api/chat</code></li>
<li><code>GET /ws</code> live turn feed</li>
<li><code>GET /metrics</code></li>
</ul>
</body>
</html>`)
}

package handler

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/relionflow/api/internal/service"
	ws "github.com/relionflow/api/internal/websocket"
)

type StreamHandler struct {
	service *service.JobService
	hub     *ws.Hub
}

func NewStreamHandler(svc *service.JobService, hub *ws.Hub) *StreamHandler {
	return &StreamHandler{service: svc, hub: hub}
}

// Upgrade rejects plain HTTP requests on websocket routes.
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream handles GET /ws/jobs/:jobId. The current status is sent first
// when the job exists.
func (h *StreamHandler) Stream() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		job, _ := h.service.Record(context.Background(), jobID)
		h.hub.HandleConnection(c, jobID, job)
	})
}

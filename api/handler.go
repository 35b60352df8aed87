// Package api provides HTTP handlers for the assistant gateway.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vantagecrm/guru/domain"
	"github.com/vantagecrm/guru/gateway"
	"github.com/vantagecrm/guru/hub"
)

// Handler handles HTTP requests.
type Handler struct {
	registry *gateway.Registry
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(registry *gateway.Registry, h *hub.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		registry: registry,
		hub:      h,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/assistant/open", h.OpenAssistant)
	e.POST("/v1/assistant/close", h.CloseAssistant)
	e.POST("/v1/assistant/clear", h.ClearAssistant)
	e.POST("/v1/assistant/message", h.SendMessage)
	e.POST("/v1/assistant/page", h.SetPage)
	e.GET("/v1/assistant/state", h.GetState)
	e.GET("/v1/assistant/pages/:page/queries", h.GetSuggestedQueries)
	e.GET("/v1/assistant/ws", h.HandleWebSocket)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// MessagePublisher adapts the hub to the gateway's publisher surface.
type MessagePublisher struct {
	Hub *hub.Hub
}

// Publish pushes an appended message to the user's connections.
func (p MessagePublisher) Publish(userID string, msg domain.Message) {
	p.Hub.Publish(userID, msg)
}

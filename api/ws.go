package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HandleWebSocket upgrades the connection and streams every message
// appended to the user's session. The stream is push-only; inbound
// frames are read solely to detect the close.
// GET /v1/assistant/ws?user_id=
func (h *Handler) HandleWebSocket(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return err
	}

	conn := h.hub.Register(userID, ws)

	// Read pump: drain until the peer goes away, then unregister.
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}

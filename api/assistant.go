package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type sessionRequest struct {
	UserID string `json:"user_id"`
	Page   string `json:"page,omitempty"`
}

type messageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// OpenAssistant shows the assistant panel for a user, creating the
// session on first open.
// POST /v1/assistant/open
func (h *Handler) OpenAssistant(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	g := h.registry.Session(c.Request().Context(), req.UserID, req.Page)
	if req.Page != "" {
		g.SetPage(req.Page)
	}
	g.Open(c.Request().Context())

	return c.JSON(http.StatusOK, g.State())
}

// CloseAssistant hides the panel. History and in-flight sends survive.
// POST /v1/assistant/close
func (h *Handler) CloseAssistant(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	g, ok := h.registry.Peek(req.UserID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no session"})
	}
	g.Close()

	return c.JSON(http.StatusOK, g.State())
}

// ClearAssistant empties the transcript.
// POST /v1/assistant/clear
func (h *Handler) ClearAssistant(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	g, ok := h.registry.Peek(req.UserID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no session"})
	}
	g.Clear()

	return c.JSON(http.StatusOK, g.State())
}

// SendMessage runs one exchange and returns the updated state. The
// send runs on a detached context so a dropped client connection never
// cancels a dispatch already in flight.
// POST /v1/assistant/message
func (h *Handler) SendMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}

	g := h.registry.Session(c.Request().Context(), req.UserID, "")
	g.SendMessage(context.Background(), req.Text)

	return c.JSON(http.StatusOK, g.State())
}

// SetPage records the page the user is viewing.
// POST /v1/assistant/page
func (h *Handler) SetPage(c echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	g := h.registry.Session(c.Request().Context(), req.UserID, req.Page)
	g.SetPage(req.Page)

	return c.JSON(http.StatusOK, g.State())
}

// GetState returns the observable session state for polling consumers.
// GET /v1/assistant/state?user_id=
func (h *Handler) GetState(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	g, ok := h.registry.Peek(userID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no session"})
	}

	return c.JSON(http.StatusOK, g.State())
}

// GetSuggestedQueries returns the canned prompts for a page.
// GET /v1/assistant/pages/:page/queries
func (h *Handler) GetSuggestedQueries(c echo.Context) error {
	queries := h.registry.SuggestedQueries(c.Param("page"))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"page":    c.Param("page"),
		"queries": queries,
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/feedreach-backend/internal/http/middleware"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений.
type WSHandler struct {
	hub      *ws.Hub
	tokens   middleware.AccessParser
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Браузер не умеет ставить заголовки
// на WebSocket, поэтому токен передаётся в query.
func NewWSHandler(hub *ws.Hub, tokens middleware.AccessParser, checkOrigin func(*http.Request) bool) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}

	principal, err := h.tokens.ParseAccess(rawToken)
	if err != nil {
		response.Unauthorized(c, "невалидный access токен")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту.
		logger.Component("ws").WithField("error", err.Error()).Warn("не удалось открыть соединение")
		return
	}

	h.hub.Serve(c.Request.Context(), conn, ws.Principal{
		UserID:  principal.UserID,
		Role:    principal.Role,
		IsAdmin: principal.IsAdmin,
	})
}

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/feedreach-backend/internal/service"
	"github.com/ignatzorin/feedreach-backend/internal/ws"
)

type rejectingTokens struct{}

func (rejectingTokens) ParseAccess(token string) (*service.Principal, error) {
	return nil, errors.New("invalid token")
}

func TestWSHandler_RejectsMissingOrInvalidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewWSHandler(ws.NewHub(ws.ChannelNotifications), rejectingTokens{}, func(*http.Request) bool { return true })
	r := gin.New()
	r.GET("/ws", h.Handle)

	for _, url := range []string{"/ws", "/ws?token=garbage"} {
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, url)
	}
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/feedreach-backend/internal/http/handlers/common"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/service"
)

type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Top GET /leaderboard?kind=donors|karma&limit=
func (h *LeaderboardHandler) Top(c *gin.Context) {
	entries, err := h.leaderboard.Top(c.Request.Context(), c.Query("kind"), common.ParseIntQuery(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, entries)
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/feedreach-backend/internal/http/handlers/common"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/service"
)

// AdminHandler обслуживает маршруты панели администратора.
type AdminHandler struct {
	admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers GET /admin/users?offset=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	_, offset := common.GetPagination(c)

	users, err := h.admin.ListUsers(c.Request.Context(), offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, users)
}

// SetStatus POST /admin/users/:id/status
func (h *AdminHandler) SetStatus(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор пользователя")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Days   int    `json:"days"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.admin.SetAccountStatus(c.Request.Context(), adminID, userID, req.Status, req.Days)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Warn POST /admin/users/:id/warnings
func (h *AdminHandler) Warn(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор пользователя")
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		response.BadRequest(c, "укажите причину предупреждения")
		return
	}

	count, err := h.admin.IssueWarning(c.Request.Context(), userID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"warning_count": count})
}

// Broadcast POST /admin/notifications
func (h *AdminHandler) Broadcast(c *gin.Context) {
	var req struct {
		Title   string `json:"title" binding:"required"`
		Message string `json:"message" binding:"required"`
		Type    string `json:"type"`
		Link    string `json:"link"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	notification, err := h.admin.Broadcast(c.Request.Context(), req.Title, req.Message, req.Type, req.Link)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, notification)
}

// History GET /admin/notifications
func (h *AdminHandler) History(c *gin.Context) {
	items, err := h.admin.NotificationHistory(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, items)
}

// Stats GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

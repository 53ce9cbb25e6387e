package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/feedreach-backend/internal/http/handlers/common"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/service"
)

type VerificationHandler struct {
	svc *service.VerificationService
}

func NewVerificationHandler(s *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{svc: s}
}

// Submit POST /verification
func (h *VerificationHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	var req struct {
		DocumentURL string `json:"document_url" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.svc.Submit(c.Request.Context(), userID, req.DocumentURL)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// Pending GET /admin/verifications
func (h *VerificationHandler) Pending(c *gin.Context) {
	limit, _ := common.GetPagination(c)

	users, err := h.svc.Pending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, users)
}

// Approve POST /admin/verifications/:id/approve
func (h *VerificationHandler) Approve(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор пользователя")
		return
	}

	if err := h.svc.Approve(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "верификация одобрена"})
}

// Reject POST /admin/verifications/:id/reject
func (h *VerificationHandler) Reject(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "неверный идентификатор пользователя")
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := common.BindAndValidate(c, &req); err != nil {
		response.BadRequest(c, "укажите причину отказа")
		return
	}

	if err := h.svc.Reject(c.Request.Context(), userID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "верификация отклонена"})
}

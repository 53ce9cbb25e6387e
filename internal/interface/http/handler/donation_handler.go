package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/authz"
	"github.com/ignatzorin/feedreach-backend/internal/domain/valueobject"
	"github.com/ignatzorin/feedreach-backend/internal/geo"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/dto"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
	"github.com/ignatzorin/feedreach-backend/internal/usecase/donation"
)

type DonationHandler struct {
	createUC  *donation.CreateDonationUseCase
	getUC     *donation.GetDonationUseCase
	listUC    *donation.ListDonationsUseCase
	updateUC  *donation.UpdateDonationUseCase
	deleteUC  *donation.DeleteDonationUseCase
	acceptUC  *donation.AcceptDonationUseCase
	statusUC  *donation.UpdateDonationStatusUseCase
	summaryUC *donation.ImpactSummaryUseCase
	resolver  *geo.Resolver
}

func NewDonationHandler(
	createUC *donation.CreateDonationUseCase,
	getUC *donation.GetDonationUseCase,
	listUC *donation.ListDonationsUseCase,
	updateUC *donation.UpdateDonationUseCase,
	deleteUC *donation.DeleteDonationUseCase,
	acceptUC *donation.AcceptDonationUseCase,
	statusUC *donation.UpdateDonationStatusUseCase,
	summaryUC *donation.ImpactSummaryUseCase,
	resolver *geo.Resolver,
) *DonationHandler {
	return &DonationHandler{
		createUC:  createUC,
		getUC:     getUC,
		listUC:    listUC,
		updateUC:  updateUC,
		deleteUC:  deleteUC,
		acceptUC:  acceptUC,
		statusUC:  statusUC,
		summaryUC: summaryUC,
		resolver:  resolver,
	}
}

// CreateDonation POST /donations. Пустой адрес заполняется обратным геокодированием.
func (h *DonationHandler) CreateDonation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	form := req.Form()
	if strings.TrimSpace(form.Address) == "" {
		if !req.HasCoordinates() || h.resolver == nil {
			response.Error(c, apperror.New(apperror.ErrCodeValidation, "укажите адрес или точку на карте"))
			return
		}
		address, err := h.resolver.Address(c.Request.Context(), form.Latitude, form.Longitude)
		if err != nil {
			response.Error(c, err)
			return
		}
		form.Address = address
	}

	created, err := h.createUC.Execute(c.Request.Context(), donation.CreateDonationInput{
		DonorID: userID,
		Form:    form,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToDonationResponse(created))
}

func (h *DonationHandler) GetDonation(c *gin.Context) {
	donationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID пожертвования")
		return
	}

	d, err := h.getUC.Execute(c.Request.Context(), donationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDonationResponse(d))
}

// ListDonations GET /donations?scope=mine|available|pickups&status=
func (h *DonationHandler) ListDonations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	scope, ok := resolveScope(c)
	if !ok {
		return
	}

	items, err := h.listUC.Execute(c.Request.Context(), donation.ListDonationsInput{
		Scope:  scope,
		UserID: userID,
		Status: valueobject.DonationStatus(c.Query("status")),
		Limit:  parseIntQuery(c, "limit", 0),
		Offset: parseIntQuery(c, "offset", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDonationResponses(items))
}

func (h *DonationHandler) UpdateDonation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	donationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID пожертвования")
		return
	}

	var req dto.UpdateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	updated, err := h.updateUC.Execute(c.Request.Context(), donation.UpdateDonationInput{
		DonationID: donationID,
		DonorID:    userID,
		Patch:      req.Patch(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDonationResponse(updated))
}

func (h *DonationHandler) DeleteDonation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	donationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID пожертвования")
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), donationID, userID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AcceptDonation POST /donations/:id/accept
func (h *DonationHandler) AcceptDonation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	donationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID пожертвования")
		return
	}

	accepted, err := h.acceptUC.Execute(c.Request.Context(), donation.AcceptDonationInput{
		DonationID: donationID,
		NGOID:      userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDonationResponse(accepted))
}

// UpdateStatus POST /donations/:id/status {"status": "completed"|"cancelled"}
func (h *DonationHandler) UpdateStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	donationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID пожертвования")
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "статус обязателен")
		return
	}

	updated, err := h.statusUC.Execute(c.Request.Context(), donation.UpdateStatusInput{
		DonationID: donationID,
		ActorID:    userID,
		Status:     valueobject.DonationStatus(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToDonationResponse(updated))
}

// ImpactSummary GET /donations/summary: донору по его пожертвованиям, НКО по принятым.
func (h *DonationHandler) ImpactSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	scope := donation.ScopeMine
	if getSubject(c).Role == models.RoleNGO {
		scope = donation.ScopePickups
	}

	summary, err := h.summaryUC.Execute(c.Request.Context(), scope, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, summary)
}

// resolveScope по умолчанию донору отдаёт свои пожертвования, НКО доступные.
// Выборки available и pickups требуют права просмотра.
func resolveScope(c *gin.Context) (donation.Scope, bool) {
	subject := getSubject(c)
	scope := donation.Scope(c.Query("scope"))
	if scope == "" {
		scope = donation.ScopeMine
		if subject.Role == models.RoleNGO {
			scope = donation.ScopeAvailable
		}
	}

	if scope != donation.ScopeMine && !authz.Can(subject, authz.DonationBrowse) {
		response.Forbidden(c, "выборка доступна только НКО")
		return "", false
	}
	return scope, true
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/feedreach-backend/internal/geo"
	"github.com/ignatzorin/feedreach-backend/internal/http/handlers/common"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
)

type GeoHandler struct {
	resolver *geo.Resolver
}

func NewGeoHandler(resolver *geo.Resolver) *GeoHandler {
	return &GeoHandler{resolver: resolver}
}

// Reverse GET /geo/reverse?lat=&lng= адрес точки и ссылка на маршрут.
func (h *GeoHandler) Reverse(c *gin.Context) {
	lat, err := common.ParseFloatQuery(c, "lat")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	lng, err := common.ParseFloatQuery(c, "lng")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	address, err := h.resolver.Address(c.Request.Context(), lat, lng)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"address":         address,
		"navigation_link": geo.NavigationLink(lat, lng),
	})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/http/handlers/common"
	"github.com/ignatzorin/feedreach-backend/internal/interface/http/response"
	"github.com/ignatzorin/feedreach-backend/internal/service"
)

const multipartOverhead = 1 << 20

// MediaHandler управляет загрузкой и удалением медиа-файлов.
type MediaHandler struct {
	media    *service.MediaService
	maxBytes int64
}

// NewMediaHandler создаёт новый хэндлер. maxBytes предел размера файла,
// тело запроса ограничивается с запасом на заголовки multipart.
func NewMediaHandler(media *service.MediaService, maxBytes int64) *MediaHandler {
	return &MediaHandler{media: media, maxBytes: maxBytes}
}

// Upload обрабатывает POST /media: multipart поле file и необязательное kind
// (avatar, donation, verification).
func (h *MediaHandler) Upload(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "поле file обязательно или файл слишком большой")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer src.Close()

	media, err := h.media.Upload(c.Request.Context(), userID, c.PostForm("kind"), src)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, media)
}

// DeleteMedia обрабатывает DELETE /media/:id.
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, err.Error())
		return
	}

	mediaID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный идентификатор")
		return
	}

	if err := h.media.Delete(c.Request.Context(), mediaID, userID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

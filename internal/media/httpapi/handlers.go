package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/romariotrain/visa-docs/internal/media/models"
	"github.com/romariotrain/visa-docs/internal/media/service"
)

const (
	msgNotFound    = "Media not found."
	msgDeleted     = "File deleted successfully."
	msgServerError = "Server Error"
)

type Handler struct {
	svc    *service.Service
	rules  UploadRules
	logger zerolog.Logger
}

func New(svc *service.Service, rules UploadRules, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		rules:  rules,
		logger: logger.With().Str("component", "media_http").Logger(),
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListMedia responds with stored media grouped by category key.
func (h *Handler) ListMedia(c *gin.Context) {
	grouped, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list media")
		c.JSON(http.StatusInternalServerError, messageResponse{Message: msgServerError})
		return
	}

	data := make(map[string][]MediaResponse, len(grouped))
	for category, items := range grouped {
		out := make([]MediaResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMediaResponse(m, h.svc.URL(m)))
		}
		data[string(category)] = out
	}

	c.JSON(http.StatusOK, dataEnvelope{Data: data})
}

func (h *Handler) ListCategories(c *gin.Context) {
	metas := h.svc.Categories()
	out := make([]CategoryResponse, 0, len(metas))
	for _, m := range metas {
		out = append(out, toCategoryResponse(m))
	}
	c.JSON(http.StatusOK, dataEnvelope{Data: out})
}

func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.rules.maxBytes()+envelopeSlack)

	req, verrs := h.rules.parseUpload(c.Request)
	if form := c.Request.MultipartForm; form != nil {
		defer func() {
			if err := form.RemoveAll(); err != nil {
				h.logger.Warn().Err(err).Msg("failed to free multipart form resources")
			}
		}()
	}
	if verrs != nil {
		c.JSON(http.StatusUnprocessableEntity, verrs.response())
		return
	}

	f, err := req.File.Open()
	if err != nil {
		h.logger.Error().Err(err).Msg("open uploaded file")
		writeValidation(c, "file", msgFileUploadFailed)
		return
	}
	defer f.Close()

	mimeType := req.File.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	m, err := h.svc.Upload(c.Request.Context(), service.UploadInput{
		Content:      f,
		Size:         req.File.Size,
		OriginalName: req.File.Filename,
		MimeType:     mimeType,
		Category:     req.Category,
	})
	if err != nil {
		var ue *service.UploadError
		switch {
		case errors.As(err, &ue):
			writeValidation(c, ue.Field, ue.Message)
		case errors.Is(err, models.ErrInvalidArgument):
			writeValidation(c, "file", msgFileUploadFailed)
		default:
			h.logger.Error().Err(err).Msg("upload media")
			c.JSON(http.StatusInternalServerError, messageResponse{Message: msgServerError})
		}
		return
	}

	c.JSON(http.StatusCreated, dataEnvelope{Data: toMediaResponse(m, h.svc.URL(m))})
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, messageResponse{Message: msgNotFound})
		return
	}

	err = h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		var de *service.DeleteError
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, messageResponse{Message: msgNotFound})
		case errors.As(err, &de):
			writeValidation(c, de.Field, de.Message)
		default:
			h.logger.Error().Err(err).Int64("media_id", id).Msg("delete media")
			c.JSON(http.StatusInternalServerError, messageResponse{Message: msgServerError})
		}
		return
	}

	// 204 carries no body; gin drops the payload and only sends the status.
	c.JSON(http.StatusNoContent, messageResponse{Message: msgDeleted})
}

func writeValidation(c *gin.Context, field, message string) {
	verrs := &ValidationErrors{}
	verrs.Add(field, message)
	c.JSON(http.StatusUnprocessableEntity, verrs.response())
}

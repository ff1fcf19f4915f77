package artifacts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"templatefill-backend/internal/shared/server/middleware"
	"templatefill-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches artifact routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/artifacts", h.list)
	rg.GET("/artifacts/:id", h.get)
	rg.GET("/artifacts/:id/download", h.download)
}

func (h *Handler) list(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	items, err := h.Svc.List(c.Request.Context(), p, limit, offset)
	if err != nil {
		writeError(c, err, "failed to list artifacts")
		return
	}

	resp := make([]ArtifactResponse, 0, len(items))
	for _, rec := range items {
		resp = append(resp, ToResponse(rec))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	rec, err := h.Svc.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch artifact")
		return
	}
	respond.JSON(c, http.StatusOK, ToResponse(rec))
}

func (h *Handler) download(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	rec, reader, err := h.Svc.Open(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load artifact")
		return
	}
	defer reader.Close()

	c.Set(middleware.TemplateIDKey, rec.TemplateID)
	c.Set(middleware.SessionIDKey, rec.SessionID)
	respond.File(c, respond.Attachment, rec.FileName, rec.MimeType, reader)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "access denied", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrStoreInconsistency):
		respond.Error(c, http.StatusServiceUnavailable, "store_inconsistency", fallback, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

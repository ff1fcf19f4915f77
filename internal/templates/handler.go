package templates

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"templatefill-backend/internal/extract"
	"templatefill-backend/internal/shared/server/middleware"
	"templatefill-backend/internal/shared/server/respond"
	"templatefill-backend/internal/shared/telemetry"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches template routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.list)
	rg.POST("/templates", h.create)
	rg.POST("/templates/analyze", h.analyze)
	rg.GET("/templates/:id", h.get)
	rg.PATCH("/templates/:id", h.update)
	rg.DELETE("/templates/:id", h.delete)
	rg.GET("/templates/:id/source", h.source)
}

func (h *Handler) list(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	items, err := h.Svc.List(c.Request.Context(), p)
	if err != nil {
		telemetry.Error("templates.list_failed", map[string]any{
			"user_id": p.UserID,
			"error":   err.Error(),
		})
		respond.JSON(c, http.StatusOK, listResponse{
			Templates: []TemplateResponse{},
			Error:     "templates are temporarily unavailable",
		})
		return
	}

	resp := listResponse{Templates: make([]TemplateResponse, 0, len(items))}
	for _, t := range items {
		resp.Templates = append(resp.Templates, toResponse(t))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) create(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileName, data, ok := readUpload(c)
	if !ok {
		return
	}

	placeholders, err := parsePlaceholders(c.PostForm("placeholders"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	t, err := h.Svc.Create(c.Request.Context(), p, CreateInput{
		FileName:     fileName,
		Data:         data,
		Name:         c.PostForm("name"),
		Placeholders: placeholders,
	})
	if err != nil {
		writeError(c, err, "failed to create template")
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(t))
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	_, data, ok := readUpload(c)
	if !ok {
		return
	}

	names, err := h.Svc.Analyze(c.Request.Context(), data)
	if err != nil {
		writeError(c, err, "failed to analyze document")
		return
	}
	if names == nil {
		names = []string{}
	}

	respond.JSON(c, http.StatusOK, analyzeResponse{
		Placeholders: names,
		Labels:       labels(names),
		Fillable:     len(names) > 0,
	})
}

func (h *Handler) get(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	t, err := h.Svc.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch template")
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(t))
}

func (h *Handler) update(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Name == nil && req.Placeholders == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name or placeholders is required", nil)
		return
	}

	t, err := h.Svc.Update(c.Request.Context(), p, c.Param("id"), Patch{Name: req.Name, Placeholders: req.Placeholders})
	if err != nil {
		writeError(c, err, "failed to update template")
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(t))
}

func (h *Handler) delete(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	deleted, err := h.Svc.Delete(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to delete template")
		return
	}
	if !deleted {
		respond.Error(c, http.StatusNotFound, "not_found", "template not found", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) source(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)

	t, reader, err := h.Svc.Source(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load template")
		return
	}
	defer reader.Close()

	respond.File(c, respond.Inline, t.FileName, t.MimeType, reader)
}

func readUpload(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB", nil)
			return "", nil, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return "", nil, false
	}

	data, err := readFile(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parsePlaceholders accepts a JSON array or a comma separated list. An absent
// value returns nil so the service runs extraction.
func parsePlaceholders(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return nil, errors.New("placeholders must be a JSON array of strings")
		}
		if names == nil {
			names = []string{}
		}
		return names, nil
	}
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			names = append(names, s)
		}
	}
	return names, nil
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "template not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, extract.ErrUnreadableDocument):
		respond.Error(c, http.StatusUnprocessableEntity, "unreadable_document", "document could not be read as a PDF", nil)
	case errors.Is(err, ErrStoreInconsistency):
		respond.Error(c, http.StatusServiceUnavailable, "store_inconsistency", fallback, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

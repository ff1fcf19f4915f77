package fulfillment

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"templatefill-backend/internal/artifacts"
	"templatefill-backend/internal/llm"
	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/shared/server/middleware"
	"templatefill-backend/internal/shared/server/respond"
	"templatefill-backend/internal/shared/telemetry"
	"templatefill-backend/internal/templates"
)

const maxBriefSize = 64 << 10

// TemplateSource resolves the template a session is opened over.
type TemplateSource interface {
	Get(ctx context.Context, p auth.Principal, id string) (templates.Template, error)
}

// Handler wires HTTP handlers to the session manager.
type Handler struct {
	Sessions  *Manager
	Templates TemplateSource
}

// NewHandler constructs a Handler.
func NewHandler(sessions *Manager, tpls TemplateSource) *Handler {
	return &Handler{Sessions: sessions, Templates: tpls}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/templates/:id/sessions", h.open)
	rg.GET("/sessions/:sid", h.get)
	rg.POST("/sessions/:sid/brief", h.submitBrief)
	rg.PATCH("/sessions/:sid/fields", h.updateFields)
	rg.POST("/sessions/:sid/confirm", h.confirm)
	rg.POST("/sessions/:sid/back", h.back)
	rg.POST("/sessions/:sid/deliver", h.deliver)
	rg.GET("/sessions/:sid/download", h.download)
	rg.DELETE("/sessions/:sid", h.close)
}

func (h *Handler) open(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)
	c.Set(middleware.TemplateIDKey, c.Param("id"))

	tpl, err := h.Templates.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "template not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load template", nil)
		return
	}

	s, err := h.Sessions.Open(p, tpl)
	if err != nil {
		writeError(c, err, "failed to open session")
		return
	}
	respondSession(c, http.StatusCreated, s)
}

func (h *Handler) get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	respondSession(c, http.StatusOK, s)
}

func (h *Handler) submitBrief(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBriefSize)

	var req briefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	if err := s.SubmitBrief(c.Request.Context(), req.Brief); err != nil {
		writeError(c, err, "failed to suggest values")
		return
	}
	respondSession(c, http.StatusOK, s)
}

func (h *Handler) updateFields(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req fieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Values) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "values are required", nil)
		return
	}

	if err := s.UpdateFields(req.Values); err != nil {
		writeError(c, err, "failed to update fields")
		return
	}
	respondSession(c, http.StatusOK, s)
}

func (h *Handler) confirm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if _, err := s.Confirm(c.Request.Context()); err != nil {
		writeError(c, err, "failed to render document")
		return
	}
	respondSession(c, http.StatusOK, s)
}

func (h *Handler) back(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Back(); err != nil {
		writeError(c, err, "failed to go back")
		return
	}
	respondSession(c, http.StatusOK, s)
}

func (h *Handler) deliver(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	rec, err := s.Deliver(c.Request.Context())
	if err != nil {
		telemetry.Warn("session.deliver_failed", map[string]any{
			"session_id": s.ID(),
			"error":      err.Error(),
		})
		writeError(c, err, "failed to deliver document")
		return
	}
	respond.JSON(c, http.StatusOK, artifacts.ToResponse(rec))
}

func (h *Handler) download(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	art, ok := s.Artifact()
	if !ok {
		respond.Error(c, http.StatusConflict, "invalid_transition", "nothing rendered to download", nil)
		return
	}
	respond.File(c, respond.Attachment, art.FileName, art.ContentType, bytes.NewReader(art.Bytes))
}

func (h *Handler) close(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)
	c.Set(middleware.SessionIDKey, c.Param("sid"))

	if err := h.Sessions.Close(p, c.Param("sid")); err != nil {
		writeError(c, err, "failed to close session")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	p := middleware.PrincipalFromContext(c)
	c.Set(middleware.SessionIDKey, c.Param("sid"))

	s, err := h.Sessions.Get(p, c.Param("sid"))
	if err != nil {
		writeError(c, err, "failed to load session")
		return nil, false
	}
	c.Set(middleware.TemplateIDKey, s.Template().ID)
	return s, true
}

func respondSession(c *gin.Context, status int, s *Session) {
	snap := s.Snapshot()
	c.Set(middleware.SessionIDKey, snap.ID)
	c.Set(middleware.StepKey, string(snap.Step))
	respond.JSON(c, status, toResponse(snap))
}

func writeError(c *gin.Context, err error, fallback string) {
	var disabled *ConfirmDisabledError
	switch {
	case errors.As(err, &disabled):
		respond.Error(c, http.StatusConflict, "confirm_disabled", "all fields need a value before confirming",
			gin.H{"missingFields": disabled.Missing})
	case errors.Is(err, ErrSessionNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, ErrSessionClosed):
		respond.Error(c, http.StatusGone, "session_closed", "session was closed", nil)
	case errors.Is(err, ErrBusy):
		respond.Error(c, http.StatusConflict, "session_busy", "another operation is in progress", nil)
	case errors.Is(err, ErrStale):
		respond.Error(c, http.StatusConflict, "stale_result", "session changed while the operation ran", nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, ErrUnknownField):
		respond.Error(c, http.StatusBadRequest, "unknown_field", err.Error(), nil)
	case errors.Is(err, ErrNoPlaceholders):
		respond.Error(c, http.StatusUnprocessableEntity, "no_placeholders", "template has no placeholders to fill", nil)
	case errors.Is(err, llm.ErrSuggestionUnavailable):
		respond.Error(c, http.StatusBadGateway, "suggestion_unavailable", "suggestions are unavailable, try again", nil)
	case errors.Is(err, ErrRenderFailed):
		respond.Error(c, http.StatusInternalServerError, "render_failed", fallback, nil)
	case errors.Is(err, ErrDeliveryFailed):
		respond.Error(c, http.StatusServiceUnavailable, "delivery_failed", "delivery failed, try again", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

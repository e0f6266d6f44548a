package attempt

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/trustscore/internal/idgen"
	"github.com/mbd888/trustscore/internal/logging"
	"github.com/mbd888/trustscore/internal/trust"
	"github.com/mbd888/trustscore/internal/validation"
)

// Handler provides HTTP endpoints for attempt sessions.
type Handler struct {
	manager *Manager
}

// NewHandler creates an attempt handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes sets up attempt endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/attempts", h.StartAttempt)

	byID := r.Group("/attempts/:id", requireAttemptID())
	byID.GET("", h.GetAttempt)
	byID.POST("/events", h.RecordEvent)
	byID.GET("/behavior", h.GetBehavior)
	byID.POST("/complete", h.CompleteAttempt)
}

// requireAttemptID answers 404 for IDs this service could not have issued.
func requireAttemptID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !idgen.HasShape(c.Param("id"), idgen.AttemptPrefix) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Attempt not found"})
			return
		}
		c.Next()
	}
}

// StartAttemptRequest opens an attempt.
type StartAttemptRequest struct {
	UserID       string `json:"user_id"`
	AssessmentID string `json:"assessment_id"`
}

// StartAttempt handles POST /v1/attempts
func (h *Handler) StartAttempt(c *gin.Context) {
	var req StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	req.AssessmentID = validation.SanitizeString(req.AssessmentID, 128)
	if errs := validation.Validate(validation.UserID("user_id", req.UserID)); len(errs) > 0 {
		validation.Abort(c, errs)
		return
	}

	a, err := h.manager.Start(c.Request.Context(), req.UserID, req.AssessmentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attempt": a})
}

// GetAttempt handles GET /v1/attempts/:id
func (h *Handler) GetAttempt(c *gin.Context) {
	a, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempt": a})
}

// RecordEvent handles POST /v1/attempts/:id/events
func (h *Handler) RecordEvent(c *gin.Context) {
	var ev Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	a, err := h.manager.RecordEvent(c.Request.Context(), c.Param("id"), ev)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"attempt": a})
}

// GetBehavior handles GET /v1/attempts/:id/behavior
func (h *Handler) GetBehavior(c *gin.Context) {
	b, err := h.manager.Behavior(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"behavior": b})
}

// CompleteAttempt handles POST /v1/attempts/:id/complete
func (h *Handler) CompleteAttempt(c *gin.Context) {
	var req Completion
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	errs := validation.Submission(req.Submission)
	errs = append(errs, validation.Validate(
		validation.MaxLength("code", req.Code, validation.MaxCodeLength),
	)...)
	if len(req.References) > validation.MaxReferences {
		errs = append(errs, validation.ValidationError{Field: "references", Message: "too many references"})
	}
	for _, ref := range req.References {
		if len(ref) > validation.MaxCodeLength {
			errs = append(errs, validation.ValidationError{Field: "references", Message: "reference exceeds maximum length"})
			break
		}
	}
	if len(errs) > 0 {
		validation.Abort(c, errs)
		return
	}

	rep, err := h.manager.Complete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rep})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Attempt not found"})
	case errors.Is(err, ErrAttemptClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "attempt_closed", "message": "Attempt is no longer accepting input"})
	case errors.Is(err, trust.ErrAttemptAlreadyScored):
		c.JSON(http.StatusConflict, gin.H{"error": "attempt_already_scored", "message": "Attempt has already been scored"})
	case errors.Is(err, ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_event", "message": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "timeout", "message": "Attempt is busy, retry"})
	default:
		logging.L(c.Request.Context()).Error("attempt request failed", "attempt_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "Failed to process attempt"})
	}
}

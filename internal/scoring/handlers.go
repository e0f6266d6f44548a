package scoring

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/trustscore/internal/logging"
	"github.com/mbd888/trustscore/internal/risk"
	"github.com/mbd888/trustscore/internal/skill"
	"github.com/mbd888/trustscore/internal/trust"
	"github.com/mbd888/trustscore/internal/validation"
)

// Handler exposes the pipeline directly, for callers that already hold the
// behavioural signals.
type Handler struct {
	pipeline *Pipeline
}

// NewHandler creates a scoring handler.
func NewHandler(p *Pipeline) *Handler {
	return &Handler{pipeline: p}
}

// RegisterRoutes sets up scoring endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/score", h.Score)
}

// ScoreRequest carries precomputed signals and submission metrics.
type ScoreRequest struct {
	UserID     string           `json:"user_id"`
	AttemptID  string           `json:"attempt_id"`
	FinalScore float64          `json:"final_score"`
	Signals    risk.Signals     `json:"signals"`
	Submission skill.Submission `json:"submission"`
}

// Score handles POST /v1/score
func (h *Handler) Score(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	errs := validation.Validate(
		validation.UserID("user_id", req.UserID),
		validation.MaxLength("attempt_id", req.AttemptID, 64),
	)
	errs = append(errs, validation.Signals(req.Signals)...)
	errs = append(errs, validation.Submission(req.Submission)...)
	if len(errs) > 0 {
		validation.Abort(c, errs)
		return
	}

	ctx := c.Request.Context()
	if req.AttemptID != "" {
		ctx = logging.WithAttemptID(ctx, req.AttemptID)
	}
	rep, err := h.pipeline.Evaluate(ctx, Input{
		UserID:     req.UserID,
		AttemptID:  req.AttemptID,
		FinalScore: req.FinalScore,
		Signals:    req.Signals,
		Submission: req.Submission,
	})
	if errors.Is(err, trust.ErrAttemptAlreadyScored) {
		c.JSON(http.StatusConflict, gin.H{"error": "attempt_already_scored", "message": "Attempt has already been scored"})
		return
	}
	if err != nil {
		logging.L(ctx).Error("scoring failed", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scoring_failed", "message": "Failed to score attempt"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": rep})
}

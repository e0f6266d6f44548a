package trust

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for trust scores.
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a trust handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes sets up trust endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:id/trust", h.GetTrust)
	r.GET("/users/:id/trust/history", h.GetTrustHistory)
}

// GetTrust returns a user's current trust score.
func (h *Handler) GetTrust(c *gin.Context) {
	userID := c.Param("id")

	score, err := h.ledger.Current(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "lookup_failed",
			"message": "Failed to read trust score",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"trust_score": score,
	})
}

// GetTrustHistory returns recorded trust updates.
// GET /v1/users/:id/trust/history?from=&to=&limit=
func (h *Handler) GetTrustHistory(c *gin.Context) {
	q := HistoryQuery{
		UserID: c.Param("id"),
		Limit:  100,
	}

	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			q.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			q.To = t
		}
	}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
			if q.Limit > 1000 {
				q.Limit = 1000
			}
		}
	}

	snapshots, err := h.ledger.History(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to query trust history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   q.UserID,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

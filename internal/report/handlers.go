package report

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/trustscore/internal/idgen"
)

// Handler provides HTTP endpoints for stored reports.
type Handler struct {
	store Store
}

// NewHandler creates a report handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up report endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reports/:id", h.GetReport)
	r.GET("/users/:id/reports", h.ListUserReports)
}

// GetReport returns a single report.
func (h *Handler) GetReport(c *gin.Context) {
	id := c.Param("id")
	if !idgen.HasShape(id, idgen.ReportPrefix) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "report_not_found",
			"message": "No report with that ID",
		})
		return
	}

	rep, err := h.store.Get(c.Request.Context(), id)
	if errors.Is(err, ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "report_not_found",
			"message": "No report with that ID",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "lookup_failed",
			"message": "Failed to load report",
		})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// ListUserReports returns a user's reports, newest first.
// GET /v1/users/:id/reports?limit=
func (h *Handler) ListUserReports(c *gin.Context) {
	userID := c.Param("id")

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 500 {
				limit = 500
			}
		}
	}

	reports, err := h.store.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list reports",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"reports": reports,
		"count":   len(reports),
	})
}

package handler

import (
	"net/http"

	"parkcore/internal/apierror"
	"parkcore/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ReportsHandler exposes the shift-report dead-letter list to supervisors.
type ReportsHandler struct {
	rdb *redis.Client
}

func NewReportsHandler(rdb *redis.Client) *ReportsHandler { return &ReportsHandler{rdb: rdb} }

type replayRequest struct {
	Max int `json:"max" validate:"omitempty,min=1,max=1000"`
}

// DeadLetters godoc
// @Summary Number of shift reports that failed every attempt
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Router /v1/reports/dead-letters [get]
func (h *ReportsHandler) DeadLetters(c *gin.Context) {
	n, err := worker.DLQLength(c.Request.Context(), h.rdb, worker.QueueShiftReport)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, &apierror.APIError{Detail: "job queue unavailable", Code: "external_dependency"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": worker.QueueShiftReport, "count": n})
}

// Replay godoc
// @Summary Requeue dead shift reports
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body replayRequest false "How many to replay (default 100)"
// @Router /v1/reports/dead-letters/replay [post]
func (h *ReportsHandler) Replay(c *gin.Context) {
	var req replayRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	if req.Max == 0 {
		req.Max = 100
	}
	moved, err := worker.ReplayDLQ(c.Request.Context(), h.rdb, worker.QueueShiftReport, req.Max)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, &apierror.APIError{Detail: "job queue unavailable", Code: "external_dependency"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": moved})
}

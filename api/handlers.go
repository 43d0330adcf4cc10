package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/chxlky/trello-timers/internal/models"
	"github.com/chxlky/trello-timers/internal/timers"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PassRunner interface {
	TryRun(ctx context.Context) (models.Result, error)
}

type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
}

type Handler struct {
	Runner PassRunner
	Runs   RunLister
}

type runResponse struct {
	Summary       string   `json:"summary"`
	Recovered     int      `json:"recovered"`
	DueReset      int      `json:"dueReset"`
	Bumped        int      `json:"bumped"`
	Skipped       int      `json:"skipped"`
	CleanedClones int      `json:"cleanedClones"`
	Errors        []string `json:"errors,omitempty"`
}

func newRunResponse(res models.Result) runResponse {
	resp := runResponse{
		Summary:       res.Summary(),
		Recovered:     res.Recovered,
		DueReset:      res.DueReset,
		Bumped:        res.Bumped,
		Skipped:       res.Skipped,
		CleanedClones: res.CleanedClones,
	}
	for _, e := range res.Errors {
		resp.Errors = append(resp.Errors, e.Error())
	}
	return resp
}

// Register mounts the handlers on group.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/health", h.HealthCheckHandler)
	group.POST("/run", h.RunHandler)
	group.GET("/runs", h.RunsHandler)
}

func (h *Handler) RunHandler(c *gin.Context) {
	res, err := h.Runner.TryRun(c.Request.Context())
	if errors.Is(err, timers.ErrPassInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		zap.L().Error("Triggered pass failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newRunResponse(res))
}

func (h *Handler) RunsHandler(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, 200)
	}

	runs, err := h.Runs.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		zap.L().Error("Failed to load run history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load run history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

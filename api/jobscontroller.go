package api

import (
	"errors"
	"net/http"
	"strings"

	"shortsmith/logger"
	"shortsmith/orchestrator"

	"github.com/gin-gonic/gin"
)

// JobRequest starts a run. An empty source resumes the saved session.
type JobRequest struct {
	SourceURL string `json:"source_url"`
	Fresh     bool   `json:"fresh"`
}

// JobResponse acknowledges a started run.
type JobResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// RegisterJobRoutes registers run control endpoints.
func RegisterJobRoutes(r *gin.Engine, runner JobRunner, validURL func(string) bool, log *logger.Logger) {
	g := r.Group("/api")
	g.POST("/jobs", func(c *gin.Context) {
		handleStartJob(c, runner, validURL, log)
	})
	g.POST("/cancel", func(c *gin.Context) {
		if !runner.Cancel() {
			c.JSON(http.StatusConflict, gin.H{"error": "no run in progress"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
	})
}

// handleStartJob launches a run and returns 202 immediately.
func handleStartJob(c *gin.Context, runner JobRunner, validURL func(string) bool, log *logger.Logger) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.SourceURL = strings.TrimSpace(req.SourceURL)
	if req.SourceURL != "" && validURL != nil && !validURL(req.SourceURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported source_url"})
		return
	}

	runID, err := runner.Start(req.SourceURL, req.Fresh)
	if errors.Is(err, orchestrator.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.WithError(err).Error("could not start run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, JobResponse{RunID: runID, Status: "started"})
}

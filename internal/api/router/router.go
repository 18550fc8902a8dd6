// Package router wires the HTTP routes to their handlers.
package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruiter-go/internal/api/handler"
)

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(h *server.Hertz,
	candidates *handler.CandidateHandler,
	jobs *handler.JobHandler,
	interviews *handler.InterviewHandler,
) {
	api := h.Group("/api/v1")

	api.GET("/health", func(_ context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	jobGroup := api.Group("/jobs")
	jobGroup.POST("", jobs.Create)
	jobGroup.GET("", jobs.List)
	jobGroup.GET("/:id", jobs.Get)
	jobGroup.PUT("/:id", jobs.Update)
	jobGroup.DELETE("/:id", jobs.Delete)
	jobGroup.GET("/:id/candidates/best", jobs.BestCandidates)
	jobGroup.POST("/:id/recalculate", jobs.Recalculate)
	jobGroup.POST("/:id/candidates/upload", candidates.Upload)

	candidateGroup := api.Group("/candidates")
	candidateGroup.GET("", candidates.List)
	candidateGroup.GET("/:id", candidates.Get)
	candidateGroup.DELETE("/:id", candidates.Delete)
	candidateGroup.PUT("/:id/status", candidates.UpdateStatus)
	candidateGroup.PUT("/:id/job", candidates.Rematch)
	candidateGroup.POST("/:id/score", candidates.RefreshScore)
	candidateGroup.GET("/:id/best-jobs", candidates.BestJobs)
	candidateGroup.POST("/:id/notes", candidates.AddNote)
	candidateGroup.GET("/:id/cv", candidates.DownloadCV)
	candidateGroup.POST("/:id/interviews", interviews.Schedule)
	candidateGroup.GET("/:id/interviews", interviews.List)
}

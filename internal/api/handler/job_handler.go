package handler

import (
	"bytes"
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"

	"recruiter-go/internal/constants"
	"recruiter-go/internal/logger"
	"recruiter-go/internal/matching"
	"recruiter-go/internal/storage"
	"recruiter-go/internal/storage/models"
)

// JobHandler serves job CRUD and job-side rankings. Updating a job's
// matching-relevant fields enqueues a background score recalculation instead
// of blocking the caller.
type JobHandler struct {
	storage *storage.Storage
	matcher *matching.Service
}

// NewJobHandler builds a JobHandler.
func NewJobHandler(st *storage.Storage, matcher *matching.Service) *JobHandler {
	return &JobHandler{storage: st, matcher: matcher}
}

type jobRequest struct {
	Title           string                   `json:"title"`
	Location        string                   `json:"location"`
	ContractType    string                   `json:"contractType"`
	Salary          string                   `json:"salary"`
	ExperienceLevel string                   `json:"experienceLevel"`
	StartDate       *time.Time               `json:"startDate"`
	Languages       string                   `json:"languages"`
	Description     string                   `json:"description"`
	Skills          []string                 `json:"skills"`
	PipelineStages  []map[string]interface{} `json:"pipelineStages"`
	Status          string                   `json:"status"`
}

func (r *jobRequest) apply(job *models.Job) error {
	job.Title = r.Title
	job.Location = r.Location
	job.ContractType = r.ContractType
	job.Salary = r.Salary
	job.ExperienceLevel = r.ExperienceLevel
	job.StartDate = r.StartDate
	job.Languages = r.Languages
	job.Description = r.Description
	job.SkillsJSON = models.StringsToJSON(r.Skills)
	if r.Status != "" {
		job.Status = r.Status
	}

	stages, err := models.MapsToJSON(r.PipelineStages)
	if err != nil {
		return err
	}
	job.PipelineStagesJSON = stages
	return nil
}

// Create creates a job posting.
func (h *JobHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req jobRequest
	if err := c.BindAndValidate(&req); err != nil || req.Title == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "title is required"})
		return
	}
	if len(req.Skills) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "at least one skill is required"})
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		respondError(c, err)
		return
	}
	job := &models.Job{
		JobID:  id.String(),
		Status: constants.JobStatusActive,
	}
	if err := req.apply(job); err != nil {
		respondError(c, err)
		return
	}

	if err := h.storage.MySQL.CreateJob(ctx, job); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusCreated, job)
}

// List returns jobs, optionally filtered by status.
func (h *JobHandler) List(ctx context.Context, c *app.RequestContext) {
	jobs, err := h.storage.MySQL.ListJobs(ctx, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, jobs)
}

type jobDetail struct {
	*models.Job
	CandidateCounts map[string]int64 `json:"candidateCounts"`
}

// Get returns one job with its candidate count per pipeline status.
func (h *JobHandler) Get(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")
	job, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	counts, err := h.storage.MySQL.CountCandidatesByStatus(ctx, jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, jobDetail{Job: job, CandidateCounts: counts})
}

// Update saves the job. When skills, experience level or languages changed,
// a recalculation event goes through the outbox in the same transaction; the
// response never waits for the sweep itself.
func (h *JobHandler) Update(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")

	var req jobRequest
	if err := c.BindAndValidate(&req); err != nil || req.Title == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "title is required"})
		return
	}

	existing, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		respondError(c, err)
		return
	}

	updated := &models.Job{JobID: jobID, Status: existing.Status}
	if err := req.apply(updated); err != nil {
		respondError(c, err)
		return
	}

	needsRecalc := matchingFieldsChanged(existing, updated)
	if err := h.storage.MySQL.UpdateJobWithRecalc(ctx, updated, needsRecalc && h.storage.RabbitMQ != nil); err != nil {
		respondError(c, err)
		return
	}

	// Without a broker the outbox has no relay, run the sweep in the
	// background directly.
	if needsRecalc && h.storage.RabbitMQ == nil {
		go func() {
			if err := h.matcher.RecalculateAfterJobUpdate(context.Background(), jobID); err != nil {
				logger.Error().Err(err).Str("job_id", jobID).Msg("Inline score recalculation failed")
			}
		}()
	}

	c.JSON(consts.StatusOK, utils.H{"id": jobID, "recalculationQueued": needsRecalc})
}

func matchingFieldsChanged(before, after *models.Job) bool {
	return !bytes.Equal(before.SkillsJSON, after.SkillsJSON) ||
		before.ExperienceLevel != after.ExperienceLevel ||
		before.Languages != after.Languages
}

// Delete removes a job; candidates cascade away with it.
func (h *JobHandler) Delete(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")
	if err := h.storage.MySQL.DeleteJob(ctx, jobID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"deleted": jobID})
}

// BestCandidates returns the top stored-score candidates for a job,
// rejected ones excluded.
func (h *JobHandler) BestCandidates(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	best, err := h.matcher.FindBestForJob(ctx, jobID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, best)
}

// Recalculate triggers a synchronous score sweep for the job. Mostly useful
// operationally; normal recalculation flows through the outbox.
func (h *JobHandler) Recalculate(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")
	updated, failed, err := h.matcher.UpdateAllForJob(ctx, jobID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"id": jobID, "updated": len(updated), "failed": len(failed)})
}

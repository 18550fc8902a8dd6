package handler

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruiter-go/internal/constants"
	"recruiter-go/internal/ingest"
	"recruiter-go/internal/logger"
	"recruiter-go/internal/matching"
	"recruiter-go/internal/storage"
	"recruiter-go/internal/storage/models"
	"recruiter-go/internal/types"
)

// CandidateHandler serves candidate endpoints: batch resume upload, listing,
// status moves, re-matching, notes and rankings.
type CandidateHandler struct {
	storage      *storage.Storage
	matcher      *matching.Service
	orchestrator *ingest.Orchestrator
}

// NewCandidateHandler builds a CandidateHandler.
func NewCandidateHandler(st *storage.Storage, matcher *matching.Service, orchestrator *ingest.Orchestrator) *CandidateHandler {
	return &CandidateHandler{storage: st, matcher: matcher, orchestrator: orchestrator}
}

// Upload ingests a batch of resume files against the job in the path.
// Files are stored first so a missing job can clean them all up; per-file
// parsing or persistence failures only mark their own result entry.
func (h *CandidateHandler) Upload(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("id")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "multipart form expected"})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "no files uploaded"})
		return
	}

	uploads := make([]types.FileUpload, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		file, err := fh.Open()
		if err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "cannot open uploaded file " + fh.Filename})
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "cannot read uploaded file " + fh.Filename})
			return
		}

		key, err := h.storage.Files.Store(ctx, fh.Filename, content)
		if err != nil {
			respondError(c, err)
			return
		}
		uploads = append(uploads, types.FileUpload{Filename: fh.Filename, FileRef: key})
	}

	result, err := h.orchestrator.ProcessBatch(ctx, jobID, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, result)
}

// List returns candidates ordered by stored score, optionally filtered by
// jobId and status and paginated with limit/offset query parameters.
func (h *CandidateHandler) List(ctx context.Context, c *app.RequestContext) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	candidates, err := h.storage.MySQL.ListCandidates(ctx, c.Query("jobId"), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, candidates)
}

type candidateDetail struct {
	*models.Candidate
	JobTitle string `json:"jobTitle,omitempty"`
	CVURL    string `json:"cvUrl,omitempty"`
}

// Get returns one candidate with its notes, the title of its assigned job and
// a short-lived CV download URL when the file backend can mint one.
func (h *CandidateHandler) Get(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		respondError(c, err)
		return
	}
	notes, err := h.storage.MySQL.ListCandidateNotes(ctx, candidateID)
	if err != nil {
		respondError(c, err)
		return
	}
	for _, note := range notes {
		candidate.Notes = append(candidate.Notes, *note)
	}

	detail := candidateDetail{Candidate: candidate}
	if job, err := h.storage.MySQL.GetJobByID(ctx, candidate.JobID); err == nil {
		detail.JobTitle = job.Title
	}
	if candidate.CVFile != "" {
		if url, err := h.storage.Files.URLFor(ctx, candidate.CVFile, 15*time.Minute); err == nil {
			detail.CVURL = url
		}
	}
	c.JSON(consts.StatusOK, detail)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves a candidate through the pipeline. Unknown status values
// are rejected.
func (h *CandidateHandler) UpdateStatus(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")

	var req updateStatusRequest
	if err := c.BindAndValidate(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}
	if !validStatus(req.Status) {
		respondError(c, matching.NewDomainError("candidate", "UpdateStatus", matching.ErrValidation,
			"unknown status %q", req.Status))
		return
	}

	if err := h.storage.MySQL.UpdateCandidateStatus(ctx, candidateID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"id": candidateID, "status": req.Status})
}

func validStatus(status string) bool {
	for _, s := range constants.ValidCandidateStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type rematchRequest struct {
	JobID string `json:"jobId"`
}

// Rematch moves a candidate to another job and stores the score computed
// against it.
func (h *CandidateHandler) Rematch(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")

	var req rematchRequest
	if err := c.BindAndValidate(&req); err != nil || req.JobID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "jobId is required"})
		return
	}

	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		respondError(c, err)
		return
	}
	job, err := h.storage.MySQL.GetJobByID(ctx, req.JobID)
	if err != nil {
		respondError(c, err)
		return
	}

	score := matching.Score(candidate, job)
	if err := h.storage.MySQL.ReassignCandidateJob(ctx, candidateID, job.JobID, score); err != nil {
		respondError(c, err)
		return
	}
	if h.storage.Redis != nil {
		h.storage.Redis.InvalidateBestJobs(ctx, candidateID)
	}
	c.JSON(consts.StatusOK, utils.H{"id": candidateID, "jobId": job.JobID, "matchingScore": score})
}

// RefreshScore recomputes and persists one candidate's score against its
// current job.
func (h *CandidateHandler) RefreshScore(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	candidate, err := h.matcher.UpdateOne(ctx, candidateID, "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, candidate)
}

// BestJobs returns the ephemeral ranking of active jobs for a candidate.
func (h *CandidateHandler) BestJobs(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	ranking, err := h.matcher.FindBestJobsForCandidate(ctx, candidateID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, ranking)
}

type addNoteRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// AddNote attaches a free-form note to a candidate.
func (h *CandidateHandler) AddNote(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")

	var req addNoteRequest
	if err := c.BindAndValidate(&req); err != nil || req.Content == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "content is required"})
		return
	}

	if _, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID); err != nil {
		respondError(c, err)
		return
	}

	note := &models.CandidateNote{
		CandidateID: candidateID,
		UserID:      req.UserID,
		Content:     req.Content,
	}
	if err := h.storage.MySQL.AddCandidateNote(ctx, note); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusCreated, note)
}

// DownloadCV redirects to a presigned URL when the backend supports it and
// streams the file otherwise.
func (h *CandidateHandler) DownloadCV(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		respondError(c, err)
		return
	}
	if candidate.CVFile == "" {
		c.JSON(consts.StatusNotFound, utils.H{"error": "candidate has no stored CV"})
		return
	}

	url, err := h.storage.Files.URLFor(ctx, candidate.CVFile, 15*time.Minute)
	if err == nil && url != "" {
		c.Redirect(consts.StatusFound, []byte(url))
		return
	}

	content, err := h.storage.Files.Retrieve(ctx, candidate.CVFile)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(consts.StatusOK, "application/octet-stream", content)
}

// Delete removes the candidate and its stored CV file.
func (h *CandidateHandler) Delete(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.storage.MySQL.DeleteCandidate(ctx, candidateID); err != nil {
		respondError(c, err)
		return
	}
	if candidate.CVFile != "" {
		if err := h.storage.Files.Delete(ctx, candidate.CVFile); err != nil {
			logger.Warn().Err(err).
				Str("candidate_id", candidateID).
				Str("cv_file", candidate.CVFile).
				Msg("Failed to delete stored CV")
		}
	}
	c.JSON(consts.StatusOK, utils.H{"deleted": candidateID})
}

func parseLimit(raw string) int {
	if raw == "" {
		return constants.DefaultBestLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return constants.DefaultBestLimit
	}
	return limit
}

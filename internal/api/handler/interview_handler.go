package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"

	"recruiter-go/internal/logger"
	"recruiter-go/internal/notify"
	"recruiter-go/internal/storage"
	"recruiter-go/internal/storage/models"
)

// InterviewHandler schedules interviews and emails invitations. The email is
// fire and forget: scheduling succeeds even when delivery later fails.
type InterviewHandler struct {
	storage  *storage.Storage
	notifier *notify.Notifier
}

// NewInterviewHandler builds an InterviewHandler. notifier may be nil, in
// which case no invitations go out.
func NewInterviewHandler(st *storage.Storage, notifier *notify.Notifier) *InterviewHandler {
	return &InterviewHandler{storage: st, notifier: notifier}
}

type scheduleInterviewRequest struct {
	ScheduledAt time.Time `json:"scheduledAt"`
	Round       string    `json:"round"`
	Location    string    `json:"location"`
	Notes       string    `json:"notes"`
	SendInvite  bool      `json:"sendInvite"`
}

// Schedule creates an interview for the candidate in the path.
func (h *InterviewHandler) Schedule(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")

	var req scheduleInterviewRequest
	if err := c.BindAndValidate(&req); err != nil || req.ScheduledAt.IsZero() {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "scheduledAt is required"})
		return
	}

	candidate, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		respondError(c, err)
		return
	}
	job, err := h.storage.MySQL.GetJobByID(ctx, candidate.JobID)
	if err != nil {
		respondError(c, err)
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		respondError(c, err)
		return
	}
	interview := &models.Interview{
		InterviewID: id.String(),
		CandidateID: candidateID,
		JobID:       job.JobID,
		Round:       req.Round,
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		Notes:       req.Notes,
	}
	if err := h.storage.MySQL.CreateInterview(ctx, interview); err != nil {
		respondError(c, err)
		return
	}

	if req.SendInvite && h.notifier != nil {
		go func() {
			// The HTTP request context dies with the response.
			sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.notifier.SendInterviewInvite(sendCtx, candidate, job, interview); err != nil {
				logger.Warn().Err(err).Str("interview_id", interview.InterviewID).Msg("Invite delivery failed")
			}
		}()
	}

	c.JSON(consts.StatusCreated, interview)
}

// List returns a candidate's interviews in chronological order.
func (h *InterviewHandler) List(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("id")
	if _, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID); err != nil {
		respondError(c, err)
		return
	}

	interviews, err := h.storage.MySQL.ListInterviewsForCandidate(ctx, candidateID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, interviews)
}

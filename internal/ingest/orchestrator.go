// Package ingest turns batches of uploaded resume files into candidate
// records: parse, synthesize missing fields, score against the target job,
// persist.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"recruiter-go/internal/constants"
	"recruiter-go/internal/cvparse"
	"recruiter-go/internal/logger"
	"recruiter-go/internal/matching"
	"recruiter-go/internal/storage/models"
	"recruiter-go/internal/types"
	"recruiter-go/pkg/utils"
)

// ErrDuplicateFile marks an upload whose content was already ingested.
var ErrDuplicateFile = errors.New("duplicate resume file")

// JobFinder looks up the batch's target job.
type JobFinder interface {
	GetJobByID(ctx context.Context, jobID string) (*models.Job, error)
}

// CandidateCreator persists new candidate records.
type CandidateCreator interface {
	CreateCandidate(ctx context.Context, candidate *models.Candidate) error
}

// CVParser extracts candidate attributes from one resume.
type CVParser interface {
	Parse(ctx context.Context, req cvparse.Request) (*types.CandidateAttributes, error)
}

// FileStore is the slice of the file store the orchestrator needs: reading
// uploads back for parsing and removing them when a batch is aborted.
type FileStore interface {
	Retrieve(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// DedupeIndex tracks content digests of ingested files. Implementations are
// best effort; an unavailable index must not block ingestion.
type DedupeIndex interface {
	SeenFileMD5(ctx context.Context, digest string) (bool, error)
	RecordFileMD5(ctx context.Context, digest string) error
}

type noopDedupe struct{}

func (noopDedupe) SeenFileMD5(context.Context, string) (bool, error) { return false, nil }
func (noopDedupe) RecordFileMD5(context.Context, string) error       { return nil }

// Orchestrator runs batch resume ingestion for one target job at a time.
type Orchestrator struct {
	jobs       JobFinder
	candidates CandidateCreator
	parser     CVParser
	files      FileStore
	dedupe     DedupeIndex
	// useFileKey switches the parser payload from inline content to a
	// storage reference, for deployments where the extraction service
	// reads the object store directly.
	useFileKey bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDedupeIndex enables content-based duplicate rejection.
func WithDedupeIndex(index DedupeIndex) Option {
	return func(o *Orchestrator) {
		if index != nil {
			o.dedupe = index
		}
	}
}

// WithFileKeyPayloads makes the orchestrator send storage keys to the parser
// instead of inline file content.
func WithFileKeyPayloads() Option {
	return func(o *Orchestrator) { o.useFileKey = true }
}

// NewOrchestrator builds an Orchestrator.
func NewOrchestrator(jobs JobFinder, candidates CandidateCreator, parser CVParser, files FileStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		jobs:       jobs,
		candidates: candidates,
		parser:     parser,
		files:      files,
		dedupe:     noopDedupe{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessBatch ingests the uploaded files against jobID. A missing job aborts
// the whole batch: every uploaded file is deleted and a NotFound error is
// returned. Otherwise files are processed independently and in order; one
// file's failure never aborts the batch, it becomes a failure entry in the
// result list.
func (o *Orchestrator) ProcessBatch(ctx context.Context, jobID string, uploads []types.FileUpload) (*types.BatchResult, error) {
	job, err := o.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		if matching.IsNotFound(err) {
			o.cleanupUploads(ctx, uploads)
		}
		return nil, err
	}

	result := &types.BatchResult{
		TotalProcessed: len(uploads),
		Results:        make([]types.FileResult, 0, len(uploads)),
	}
	for _, upload := range uploads {
		fileResult := o.processOne(ctx, job, upload)
		if fileResult.Success {
			result.SuccessCount++
		} else {
			result.ErrorCount++
			logger.Warn().
				Str("job_id", jobID).
				Str("filename", upload.Filename).
				Str("error", fileResult.Error).
				Msg("Resume ingestion failed for file")
		}
		result.Results = append(result.Results, fileResult)
	}

	logger.Info().
		Str("job_id", jobID).
		Int("total", result.TotalProcessed).
		Int("succeeded", result.SuccessCount).
		Int("failed", result.ErrorCount).
		Msg("Resume batch processed")
	return result, nil
}

func (o *Orchestrator) processOne(ctx context.Context, job *models.Job, upload types.FileUpload) types.FileResult {
	failure := func(err error) types.FileResult {
		return types.FileResult{Filename: upload.Filename, Error: err.Error()}
	}

	content, err := o.files.Retrieve(ctx, upload.FileRef)
	if err != nil {
		return failure(err)
	}

	digest := utils.CalculateMD5(content)
	seen, err := o.dedupe.SeenFileMD5(ctx, digest)
	if err != nil {
		logger.Warn().Err(err).Str("filename", upload.Filename).Msg("Dedupe index unavailable, skipping duplicate check")
	} else if seen {
		return failure(ErrDuplicateFile)
	}

	parseReq := cvparse.Request{Filename: upload.Filename}
	if o.useFileKey {
		parseReq.FileKey = upload.FileRef
	} else {
		parseReq.Content = content
	}
	attrs, err := o.parser.Parse(ctx, parseReq)
	if err != nil {
		return failure(err)
	}

	candidate, err := o.buildCandidate(job, attrs, upload)
	if err != nil {
		return failure(err)
	}
	candidate.MatchingScore = matching.Score(candidate, job)

	if err := o.candidates.CreateCandidate(ctx, candidate); err != nil {
		return failure(err)
	}
	if err := o.dedupe.RecordFileMD5(ctx, digest); err != nil {
		logger.Warn().Err(err).Str("filename", upload.Filename).Msg("Failed to record file digest")
	}

	return types.FileResult{
		Success:       true,
		CandidateID:   candidate.CandidateID,
		Name:          candidate.Name,
		MatchingScore: candidate.MatchingScore,
	}
}

func (o *Orchestrator) buildCandidate(job *models.Job, attrs *types.CandidateAttributes, upload types.FileUpload) (*models.Candidate, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	email := attrs.Email
	if email == "" {
		email = utils.EmailFromName(attrs.Name)
	}

	educationJSON, err := models.MapsToJSON(attrs.Education)
	if err != nil {
		return nil, err
	}
	workExperienceJSON, err := models.MapsToJSON(attrs.WorkExperience)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.Candidate{
		CandidateID:        id.String(),
		Name:               attrs.Name,
		Email:              email,
		Phone:              attrs.Phone,
		Location:           attrs.Location,
		SkillsJSON:         models.StringsToJSON(attrs.Skills),
		Experience:         attrs.Experience,
		EducationJSON:      educationJSON,
		WorkExperienceJSON: workExperienceJSON,
		LanguagesJSON:      models.StringsToJSON(attrs.Languages),
		Status:             constants.CandidateStatusNew,
		JobID:              job.JobID,
		CVFile:             upload.FileRef,
		LastActivity:       now,
	}, nil
}

// cleanupUploads removes already-stored files after a batch is aborted.
// Deletion failures are logged and otherwise ignored.
func (o *Orchestrator) cleanupUploads(ctx context.Context, uploads []types.FileUpload) {
	for _, upload := range uploads {
		if err := o.files.Delete(ctx, upload.FileRef); err != nil {
			logger.Warn().Err(err).
				Str("file_ref", upload.FileRef).
				Msg("Failed to delete uploaded file during batch abort")
		}
	}
}

package matching

import (
	"context"
	"errors"
	"sort"

	"recruiter-go/internal/logger"
	"recruiter-go/internal/storage/models"
	"recruiter-go/internal/types"
)

// CandidateStore is the candidate persistence surface the service needs.
type CandidateStore interface {
	GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error)
	ListCandidatesByJob(ctx context.Context, jobID string) ([]*models.Candidate, error)
	// BestCandidatesForJob returns candidates of the job ordered by stored
	// score descending, rejected candidates excluded.
	BestCandidatesForJob(ctx context.Context, jobID string, limit int) ([]*models.Candidate, error)
	UpdateCandidateScore(ctx context.Context, candidateID string, score int) error
}

// JobStore is the job persistence surface the service needs.
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*models.Job, error)
	ListActiveJobs(ctx context.Context) ([]*models.Job, error)
}

// RankingCache caches ephemeral best-jobs rankings. Implementations must be
// best effort: a miss or a failure only costs a recompute.
type RankingCache interface {
	GetBestJobs(ctx context.Context, candidateID string) ([]types.JobScore, bool)
	SetBestJobs(ctx context.Context, candidateID string, ranking []types.JobScore)
	InvalidateBestJobs(ctx context.Context, candidateID string)
}

// noopCache is used when no cache backend is wired.
type noopCache struct{}

func (noopCache) GetBestJobs(context.Context, string) ([]types.JobScore, bool) { return nil, false }
func (noopCache) SetBestJobs(context.Context, string, []types.JobScore)       {}
func (noopCache) InvalidateBestJobs(context.Context, string)                  {}

// Service recomputes and persists matching scores and answers ranking queries.
type Service struct {
	candidates CandidateStore
	jobs       JobStore
	cache      RankingCache
}

// NewService builds a Service. cache may be nil.
func NewService(candidates CandidateStore, jobs JobStore, cache RankingCache) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	return &Service{candidates: candidates, jobs: jobs, cache: cache}
}

// UpdateOne recomputes the score of a single candidate against the given job
// and persists it. An empty jobID scores against the candidate's assigned
// job. The candidate's job assignment itself never changes here. Returns the
// candidate with its fresh score.
func (s *Service) UpdateOne(ctx context.Context, candidateID, jobID string) (*models.Candidate, error) {
	candidate, err := s.candidates.GetCandidateByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if jobID == "" {
		jobID = candidate.JobID
	}
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	score := Score(candidate, job)
	if err := s.candidates.UpdateCandidateScore(ctx, candidateID, score); err != nil {
		return nil, err
	}
	candidate.MatchingScore = score

	s.cache.InvalidateBestJobs(ctx, candidateID)
	return candidate, nil
}

// UpdateAllForJob recomputes the scores of every candidate assigned to the
// job. One candidate failing never aborts the sweep; failures are logged.
// Returns the candidates whose scores were persisted and the IDs of those
// that kept a stale score.
func (s *Service) UpdateAllForJob(ctx context.Context, jobID string) ([]*models.Candidate, []string, error) {
	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	candidates, err := s.candidates.ListCandidatesByJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	updated := make([]*models.Candidate, 0, len(candidates))
	var failed []string
	for _, candidate := range candidates {
		score := Score(candidate, job)
		if err := s.candidates.UpdateCandidateScore(ctx, candidate.CandidateID, score); err != nil {
			logger.Error().Err(err).
				Str("candidate_id", candidate.CandidateID).
				Str("job_id", jobID).
				Msg("Failed to persist recomputed score, continuing sweep")
			failed = append(failed, candidate.CandidateID)
			continue
		}
		candidate.MatchingScore = score
		s.cache.InvalidateBestJobs(ctx, candidate.CandidateID)
		updated = append(updated, candidate)
	}

	logger.Info().
		Str("job_id", jobID).
		Int("total", len(candidates)).
		Int("updated", len(updated)).
		Int("failed", len(failed)).
		Msg("Score sweep for job finished")
	return updated, failed, nil
}

// FindBestForJob returns the top candidates for a job by stored score,
// descending, excluding rejected candidates. No scores are recomputed.
func (s *Service) FindBestForJob(ctx context.Context, jobID string, limit int) ([]*models.Candidate, error) {
	if _, err := s.jobs.GetJobByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.candidates.BestCandidatesForJob(ctx, jobID, limit)
}

// FindBestJobsForCandidate scores the candidate against every active job and
// returns the top entries, descending. The ranking is ephemeral: nothing is
// persisted, and the candidate's stored score is untouched. Full rankings are
// cached per candidate so repeated queries with different limits stay cheap.
func (s *Service) FindBestJobsForCandidate(ctx context.Context, candidateID string, limit int) ([]types.JobScore, error) {
	candidate, err := s.candidates.GetCandidateByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	if ranking, ok := s.cache.GetBestJobs(ctx, candidateID); ok {
		return topN(ranking, limit), nil
	}

	jobs, err := s.jobs.ListActiveJobs(ctx)
	if err != nil {
		return nil, err
	}

	ranking := make([]types.JobScore, 0, len(jobs))
	for _, job := range jobs {
		ranking = append(ranking, types.JobScore{
			JobID: job.JobID,
			Title: job.Title,
			Score: Score(candidate, job),
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})

	s.cache.SetBestJobs(ctx, candidateID, ranking)
	return topN(ranking, limit), nil
}

// RecalculateAfterJobUpdate is the consumer entry point for a job-changed
// event. It runs the same sweep as UpdateAllForJob; a missing job is treated
// as already handled (the job may have been deleted after the event was
// published).
func (s *Service) RecalculateAfterJobUpdate(ctx context.Context, jobID string) error {
	if _, _, err := s.UpdateAllForJob(ctx, jobID); err != nil {
		if IsNotFound(err) {
			logger.Warn().Str("job_id", jobID).Msg("Job vanished before recalculation, dropping event")
			return nil
		}
		return err
	}
	return nil
}

// IsNotFound reports whether err classifies as a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func topN(ranking []types.JobScore, limit int) []types.JobScore {
	if limit <= 0 || limit > len(ranking) {
		return ranking
	}
	return ranking[:limit]
}

package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruiter-go/internal/constants"
	"recruiter-go/internal/storage/models"
	"recruiter-go/internal/types"
)

type fakeCandidateStore struct {
	candidates map[string]*models.Candidate
	failScore  map[string]error // per-candidate UpdateCandidateScore failures
}

func newFakeCandidateStore(candidates ...*models.Candidate) *fakeCandidateStore {
	s := &fakeCandidateStore{
		candidates: make(map[string]*models.Candidate),
		failScore:  make(map[string]error),
	}
	for _, c := range candidates {
		s.candidates[c.CandidateID] = c
	}
	return s
}

func (s *fakeCandidateStore) GetCandidateByID(_ context.Context, id string) (*models.Candidate, error) {
	c, ok := s.candidates[id]
	if !ok {
		return nil, NewDomainError("candidate", "GetCandidateByID", ErrNotFound, "id=%s", id)
	}
	return c, nil
}

func (s *fakeCandidateStore) ListCandidatesByJob(_ context.Context, jobID string) ([]*models.Candidate, error) {
	var out []*models.Candidate
	for _, c := range s.candidates {
		if c.JobID == jobID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeCandidateStore) BestCandidatesForJob(_ context.Context, jobID string, limit int) ([]*models.Candidate, error) {
	var out []*models.Candidate
	for _, c := range s.candidates {
		if c.JobID == jobID && c.Status != constants.CandidateStatusRejected {
			out = append(out, c)
		}
	}
	// Selection sort keeps the fake dependency-free.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].MatchingScore > out[i].MatchingScore {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeCandidateStore) UpdateCandidateScore(_ context.Context, id string, score int) error {
	if err := s.failScore[id]; err != nil {
		return err
	}
	c, ok := s.candidates[id]
	if !ok {
		return NewDomainError("candidate", "UpdateCandidateScore", ErrNotFound, "id=%s", id)
	}
	c.MatchingScore = score
	return nil
}

type fakeJobStore struct {
	jobs map[string]*models.Job
}

func newFakeJobStore(jobs ...*models.Job) *fakeJobStore {
	s := &fakeJobStore{jobs: make(map[string]*models.Job)}
	for _, j := range jobs {
		s.jobs[j.JobID] = j
	}
	return s
}

func (s *fakeJobStore) GetJobByID(_ context.Context, id string) (*models.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, NewDomainError("job", "GetJobByID", ErrNotFound, "id=%s", id)
	}
	return j, nil
}

func (s *fakeJobStore) ListActiveJobs(_ context.Context) ([]*models.Job, error) {
	var out []*models.Job
	for _, j := range s.jobs {
		if j.Status == constants.JobStatusActive {
			out = append(out, j)
		}
	}
	return out, nil
}

type recordingCache struct {
	rankings    map[string][]types.JobScore
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{rankings: make(map[string][]types.JobScore)}
}

func (c *recordingCache) GetBestJobs(_ context.Context, candidateID string) ([]types.JobScore, bool) {
	r, ok := c.rankings[candidateID]
	return r, ok
}

func (c *recordingCache) SetBestJobs(_ context.Context, candidateID string, ranking []types.JobScore) {
	c.rankings[candidateID] = ranking
}

func (c *recordingCache) InvalidateBestJobs(_ context.Context, candidateID string) {
	delete(c.rankings, candidateID)
	c.invalidated = append(c.invalidated, candidateID)
}

func activeJob(id, title string, skills []string, level, languages string) *models.Job {
	return &models.Job{
		JobID:           id,
		Title:           title,
		SkillsJSON:      models.StringsToJSON(skills),
		ExperienceLevel: level,
		Languages:       languages,
		Status:          constants.JobStatusActive,
	}
}

func assignedCandidate(id, jobID string, skills []string, experience, storedScore int, status string) *models.Candidate {
	return &models.Candidate{
		CandidateID:   id,
		Name:          "Candidate " + id,
		JobID:         jobID,
		SkillsJSON:    models.StringsToJSON(skills),
		LanguagesJSON: models.StringsToJSON(nil),
		Experience:    experience,
		MatchingScore: storedScore,
		Status:        status,
	}
}

func TestUpdateOnePersistsScore(t *testing.T) {
	job := activeJob("job-1", "Backend Engineer", []string{"Go", "MySQL"}, "senior", "")
	candidate := assignedCandidate("cand-1", "job-1", []string{"Go", "MySQL"}, 6, 0, constants.CandidateStatusNew)

	candidates := newFakeCandidateStore(candidate)
	cache := newRecordingCache()
	cache.rankings["cand-1"] = []types.JobScore{{JobID: "stale"}}
	service := NewService(candidates, newFakeJobStore(job), cache)

	updated, err := service.UpdateOne(context.Background(), "cand-1", "")
	require.NoError(t, err)
	assert.Equal(t, 100, updated.MatchingScore)
	assert.Equal(t, 100, candidate.MatchingScore)
	assert.Contains(t, cache.invalidated, "cand-1")
}

func TestUpdateOneAgainstExplicitJob(t *testing.T) {
	assigned := activeJob("job-1", "Backend Engineer", []string{"Go"}, "", "")
	other := activeJob("job-2", "Data Engineer", []string{"Python"}, "", "")
	candidate := assignedCandidate("cand-1", "job-1", []string{"Go"}, 0, 0, constants.CandidateStatusNew)

	service := NewService(newFakeCandidateStore(candidate), newFakeJobStore(assigned, other), nil)

	// Scored against job-2 but still assigned to job-1.
	updated, err := service.UpdateOne(context.Background(), "cand-1", "job-2")
	require.NoError(t, err)
	assert.Equal(t, 10, updated.MatchingScore)
	assert.Equal(t, "job-1", updated.JobID)
}

func TestUpdateOneUnknownCandidate(t *testing.T) {
	service := NewService(newFakeCandidateStore(), newFakeJobStore(), nil)

	_, err := service.UpdateOne(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOneUnknownJob(t *testing.T) {
	candidate := assignedCandidate("cand-1", "job-1", nil, 0, 0, constants.CandidateStatusNew)
	service := NewService(newFakeCandidateStore(candidate), newFakeJobStore(), nil)

	_, err := service.UpdateOne(context.Background(), "cand-1", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAllForJobSurvivesPerCandidateFailure(t *testing.T) {
	job := activeJob("job-1", "Backend Engineer", []string{"Go"}, "", "")
	good := assignedCandidate("cand-good", "job-1", []string{"Go"}, 0, 0, constants.CandidateStatusNew)
	broken := assignedCandidate("cand-broken", "job-1", []string{"Go"}, 0, 0, constants.CandidateStatusNew)

	candidates := newFakeCandidateStore(good, broken)
	candidates.failScore["cand-broken"] = NewDomainError("candidate", "UpdateCandidateScore", ErrPersistence, "write failed")
	service := NewService(candidates, newFakeJobStore(job), nil)

	updated, failed, err := service.UpdateAllForJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "cand-good", updated[0].CandidateID)
	assert.Equal(t, []string{"cand-broken"}, failed)
	assert.Equal(t, 70, good.MatchingScore)
	assert.Equal(t, 0, broken.MatchingScore)
}

func TestUpdateAllForJobUnknownJob(t *testing.T) {
	service := NewService(newFakeCandidateStore(), newFakeJobStore(), nil)

	_, _, err := service.UpdateAllForJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindBestForJobExcludesRejected(t *testing.T) {
	job := activeJob("job-1", "Backend Engineer", []string{"Go"}, "", "")
	top := assignedCandidate("cand-top", "job-1", nil, 0, 90, constants.CandidateStatusNew)
	mid := assignedCandidate("cand-mid", "job-1", nil, 0, 60, constants.CandidateStatusInterview)
	rejected := assignedCandidate("cand-rej", "job-1", nil, 0, 99, constants.CandidateStatusRejected)

	service := NewService(newFakeCandidateStore(top, mid, rejected), newFakeJobStore(job), nil)

	best, err := service.FindBestForJob(context.Background(), "job-1", 5)
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, "cand-top", best[0].CandidateID)
	assert.Equal(t, "cand-mid", best[1].CandidateID)
}

func TestFindBestForJobUnknownJob(t *testing.T) {
	service := NewService(newFakeCandidateStore(), newFakeJobStore(), nil)

	_, err := service.FindBestForJob(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindBestJobsForCandidateIsEphemeral(t *testing.T) {
	match := activeJob("job-match", "Go Engineer", []string{"Go"}, "", "")
	other := activeJob("job-other", "Rust Engineer", []string{"Rust"}, "", "")
	closed := activeJob("job-closed", "Old Role", []string{"Go"}, "", "")
	closed.Status = constants.JobStatusClosed
	candidate := assignedCandidate("cand-1", "job-match", []string{"Go"}, 0, 42, constants.CandidateStatusNew)

	service := NewService(newFakeCandidateStore(candidate), newFakeJobStore(match, other, closed), nil)

	ranking, err := service.FindBestJobsForCandidate(context.Background(), "cand-1", 1)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, "job-match", ranking[0].JobID)
	assert.Equal(t, 70, ranking[0].Score)

	// The stored score never changes: this is a what-if query.
	assert.Equal(t, 42, candidate.MatchingScore)
}

func TestFindBestJobsForCandidateUsesCache(t *testing.T) {
	candidate := assignedCandidate("cand-1", "job-1", []string{"Go"}, 0, 0, constants.CandidateStatusNew)
	cache := newRecordingCache()
	cache.rankings["cand-1"] = []types.JobScore{
		{JobID: "job-a", Title: "Cached A", Score: 80},
		{JobID: "job-b", Title: "Cached B", Score: 40},
	}

	// Empty job store: a cache miss would return an empty ranking.
	service := NewService(newFakeCandidateStore(candidate), newFakeJobStore(), cache)

	ranking, err := service.FindBestJobsForCandidate(context.Background(), "cand-1", 1)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, "job-a", ranking[0].JobID)
}

func TestRecalculateAfterJobUpdateDropsVanishedJob(t *testing.T) {
	service := NewService(newFakeCandidateStore(), newFakeJobStore(), nil)

	// A deleted job is not a consumer failure, the event is simply dropped.
	err := service.RecalculateAfterJobUpdate(context.Background(), "gone")
	assert.NoError(t, err)
}

func TestDomainErrorClassification(t *testing.T) {
	err := NewDomainError("candidate", "GetCandidateByID", ErrNotFound, "id=%s", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrPersistence))
	assert.Contains(t, err.Error(), "candidate")
	assert.Contains(t, err.Error(), "id=x")
}

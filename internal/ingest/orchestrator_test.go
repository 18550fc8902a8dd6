package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruiter-go/internal/constants"
	"recruiter-go/internal/cvparse"
	"recruiter-go/internal/matching"
	"recruiter-go/internal/storage/models"
	"recruiter-go/internal/types"
)

type fakeJobFinder struct {
	jobs map[string]*models.Job
}

func (f *fakeJobFinder) GetJobByID(_ context.Context, id string) (*models.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, matching.NewDomainError("job", "GetJobByID", matching.ErrNotFound, "id=%s", id)
	}
	return j, nil
}

type fakeCandidateCreator struct {
	created []*models.Candidate
	failFor map[string]error // keyed by candidate name
}

func (f *fakeCandidateCreator) CreateCandidate(_ context.Context, c *models.Candidate) error {
	if err := f.failFor[c.Name]; err != nil {
		return err
	}
	f.created = append(f.created, c)
	return nil
}

type fakeParser struct {
	byFilename map[string]*types.CandidateAttributes
	errFor     map[string]error
}

func (f *fakeParser) Parse(_ context.Context, req cvparse.Request) (*types.CandidateAttributes, error) {
	if err := f.errFor[req.Filename]; err != nil {
		return nil, err
	}
	if attrs, ok := f.byFilename[req.Filename]; ok {
		return attrs, nil
	}
	return &types.CandidateAttributes{}, nil
}

type fakeFileStore struct {
	files   map[string][]byte
	deleted []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (f *fakeFileStore) put(key string, content []byte) types.FileUpload {
	f.files[key] = content
	return types.FileUpload{Filename: key, FileRef: key}
}

func (f *fakeFileStore) Retrieve(_ context.Context, key string) ([]byte, error) {
	content, ok := f.files[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return content, nil
}

func (f *fakeFileStore) Delete(_ context.Context, key string) error {
	delete(f.files, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeDedupe struct {
	seen map[string]bool
}

func (f *fakeDedupe) SeenFileMD5(_ context.Context, digest string) (bool, error) {
	return f.seen[digest], nil
}

func (f *fakeDedupe) RecordFileMD5(_ context.Context, digest string) error {
	f.seen[digest] = true
	return nil
}

func testJob() *models.Job {
	return &models.Job{
		JobID:      "job-1",
		Title:      "Backend Engineer",
		SkillsJSON: models.StringsToJSON([]string{"Go"}),
		Status:     constants.JobStatusActive,
	}
}

func TestProcessBatchMissingJobDeletesFiles(t *testing.T) {
	files := newFakeFileStore()
	uploads := []types.FileUpload{
		files.put("a.pdf", []byte("aaa")),
		files.put("b.pdf", []byte("bbb")),
	}

	o := NewOrchestrator(
		&fakeJobFinder{jobs: map[string]*models.Job{}},
		&fakeCandidateCreator{},
		&fakeParser{},
		files,
	)

	_, err := o.ProcessBatch(context.Background(), "missing", uploads)
	assert.ErrorIs(t, err, matching.ErrNotFound)
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf"}, files.deleted)
}

func TestProcessBatchMixedResultsKeepOrder(t *testing.T) {
	files := newFakeFileStore()
	uploads := []types.FileUpload{
		files.put("DUPONT_Jean.pdf", []byte("cv-jean")),
		files.put("broken.pdf", []byte("cv-broken")),
		files.put("MARTIN_Alice.pdf", []byte("cv-alice")),
	}

	parser := &fakeParser{
		byFilename: map[string]*types.CandidateAttributes{
			"DUPONT_Jean.pdf":  {Name: "Jean Dupont", Skills: []string{"Go"}},
			"MARTIN_Alice.pdf": {Name: "Alice Martin", Email: "alice@martin.fr"},
		},
		errFor: map[string]error{
			"broken.pdf": cvparse.ErrExternalService,
		},
	}
	creator := &fakeCandidateCreator{}
	o := NewOrchestrator(&fakeJobFinder{jobs: map[string]*models.Job{"job-1": testJob()}}, creator, parser, files)

	result, err := o.ProcessBatch(context.Background(), "job-1", uploads)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Results, 3)

	// Results come back in input order.
	assert.True(t, result.Results[0].Success)
	assert.Equal(t, "Jean Dupont", result.Results[0].Name)
	// Full skills match plus the free languages component.
	assert.Equal(t, 70, result.Results[0].MatchingScore)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, "broken.pdf", result.Results[1].Filename)
	assert.NotEmpty(t, result.Results[1].Error)
	assert.True(t, result.Results[2].Success)

	require.Len(t, creator.created, 2)
	for _, c := range creator.created {
		assert.Equal(t, constants.CandidateStatusNew, c.Status)
		assert.Equal(t, "job-1", c.JobID)
		assert.NotEmpty(t, c.CandidateID)
		assert.False(t, c.LastActivity.IsZero())
	}
}

func TestProcessBatchSynthesizesEmail(t *testing.T) {
	files := newFakeFileStore()
	uploads := []types.FileUpload{files.put("DUPONT_Jean.pdf", []byte("cv"))}

	parser := &fakeParser{byFilename: map[string]*types.CandidateAttributes{
		"DUPONT_Jean.pdf": {Name: "Jean Dupont"},
	}}
	creator := &fakeCandidateCreator{}
	o := NewOrchestrator(&fakeJobFinder{jobs: map[string]*models.Job{"job-1": testJob()}}, creator, parser, files)

	_, err := o.ProcessBatch(context.Background(), "job-1", uploads)
	require.NoError(t, err)
	require.Len(t, creator.created, 1)
	assert.Equal(t, "jean.dupont@example.com", creator.created[0].Email)
}

func TestProcessBatchKeepsParsedEmail(t *testing.T) {
	files := newFakeFileStore()
	uploads := []types.FileUpload{files.put("cv.pdf", []byte("cv"))}

	parser := &fakeParser{byFilename: map[string]*types.CandidateAttributes{
		"cv.pdf": {Name: "Jean Dupont", Email: "jean@perso.fr"},
	}}
	creator := &fakeCandidateCreator{}
	o := NewOrchestrator(&fakeJobFinder{jobs: map[string]*models.Job{"job-1": testJob()}}, creator, parser, files)

	_, err := o.ProcessBatch(context.Background(), "job-1", uploads)
	require.NoError(t, err)
	require.Len(t, creator.created, 1)
	assert.Equal(t, "jean@perso.fr", creator.created[0].Email)
}

func TestProcessBatchRejectsDuplicateContent(t *testing.T) {
	files := newFakeFileStore()
	uploads := []types.FileUpload{
		files.put("first.pdf", []byte("same-bytes")),
		files.put("second.pdf", []byte("same-bytes")),
	}

	o := NewOrchestrator(
		&fakeJobFinder{jobs: map[string]*models.Job{"job-1": testJob()}},
		&fakeCandidateCreator{},
		&fakeParser{},
		files,
		WithDedupeIndex(&fakeDedupe{seen: make(map[string]bool)}),
	)

	result, err := o.ProcessBatch(context.Background(), "job-1", uploads)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Contains(t, result.Results[1].Error, "duplicate")
}

func TestProcessBatchPersistFailureIsPerFile(t *testing.T) {
	files := newFakeFileStore()
	uploads := []types.FileUpload{
		files.put("ok.pdf", []byte("one")),
		files.put("fail.pdf", []byte("two")),
	}

	parser := &fakeParser{byFilename: map[string]*types.CandidateAttributes{
		"ok.pdf":   {Name: "Ok Person"},
		"fail.pdf": {Name: "Fail Person"},
	}}
	creator := &fakeCandidateCreator{failFor: map[string]error{
		"Fail Person": matching.NewDomainError("candidate", "CreateCandidate", matching.ErrPersistence, "insert failed"),
	}}
	o := NewOrchestrator(&fakeJobFinder{jobs: map[string]*models.Job{"job-1": testJob()}}, creator, parser, files)

	result, err := o.ProcessBatch(context.Background(), "job-1", uploads)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
}

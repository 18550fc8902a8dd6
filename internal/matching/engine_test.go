package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recruiter-go/internal/storage/models"
)

func newCandidate(skills []string, experience int, languages []string) *models.Candidate {
	return &models.Candidate{
		CandidateID:   "cand-1",
		Name:          "Test Candidate",
		SkillsJSON:    models.StringsToJSON(skills),
		Experience:    experience,
		LanguagesJSON: models.StringsToJSON(languages),
	}
}

func newJob(skills []string, level string, languages string) *models.Job {
	return &models.Job{
		JobID:           "job-1",
		Title:           "Test Job",
		SkillsJSON:      models.StringsToJSON(skills),
		ExperienceLevel: level,
		Languages:       languages,
	}
}

func TestScoreFullMatch(t *testing.T) {
	candidate := newCandidate([]string{"Go", "MySQL", "Docker"}, 6, []string{"English", "French"})
	job := newJob([]string{"Go", "MySQL"}, "senior", "English, French")

	assert.Equal(t, 100, Score(candidate, job))
}

func TestScoreEmptyProfile(t *testing.T) {
	// No skills and no experience leave only the languages component, which
	// awards full marks when the job has no language requirement.
	candidate := newCandidate(nil, 0, nil)
	job := newJob([]string{"Go", "Kubernetes"}, "senior", "")

	assert.Equal(t, 10, Score(candidate, job))
}

func TestScoreBounds(t *testing.T) {
	candidates := []*models.Candidate{
		newCandidate(nil, 0, nil),
		newCandidate([]string{"Go"}, 2, []string{"English"}),
		newCandidate([]string{"Go", "Rust", "Python"}, 15, []string{"English", "German"}),
	}
	jobs := []*models.Job{
		newJob(nil, "", ""),
		newJob([]string{"Go", "Rust"}, "junior", "English"),
		newJob([]string{"COBOL"}, "senior", "Mandarin, Latin"),
	}

	for _, c := range candidates {
		for _, j := range jobs {
			score := Score(c, j)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	candidate := newCandidate([]string{"Go", "MySQL"}, 2, []string{"English"})
	job := newJob([]string{"Go", "Redis"}, "intermediate", "English, Spanish")

	first := Score(candidate, job)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(candidate, job))
	}
}

func TestScoreSkillsBidirectionalContainment(t *testing.T) {
	job := newJob([]string{"React"}, "", "")

	// Candidate skill contains the required one.
	assert.Equal(t, 70, Score(newCandidate([]string{"ReactJS"}, 0, nil), job))

	// Required skill contains the candidate one.
	longJob := newJob([]string{"ReactJS"}, "", "")
	assert.Equal(t, 70, Score(newCandidate([]string{"React"}, 0, nil), longJob))

	// Matching is case-insensitive.
	assert.Equal(t, 70, Score(newCandidate([]string{"react"}, 0, nil), job))
}

func TestScoreSkillsPartialMatch(t *testing.T) {
	candidate := newCandidate([]string{"Go"}, 0, nil)
	job := newJob([]string{"Go", "Rust", "Python", "C"}, "", "")

	// 1 of 4 skills: 15 + full languages 10.
	assert.Equal(t, 25, Score(candidate, job))
}

func TestScoreSkillsEmptyJobRequirement(t *testing.T) {
	// A job without skill requirements awards nothing for skills, it does not
	// treat them as satisfied.
	candidate := newCandidate([]string{"Go"}, 0, nil)
	job := newJob(nil, "", "")

	assert.Equal(t, 10, Score(candidate, job))
}

func TestScoreExperienceLevels(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		experience int
		want       int
	}{
		{"junior met with one year", "junior", 1, 30},
		{"intermediate met exactly", "intermediate", 3, 30},
		{"senior exceeded", "senior", 8, 30},
		{"intermediate prorated one of three", "intermediate", 1, 10},
		{"senior prorated two of five", "senior", 2, 12},
		{"zero experience contributes nothing", "senior", 0, 0},
		{"unknown level contributes nothing", "principal", 10, 0},
		{"missing level contributes nothing", "", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := newCandidate(nil, tt.experience, nil)
			// Job language requirement set and candidate has none, so the
			// languages component still awards its full 10.
			job := newJob(nil, tt.level, "English")
			assert.Equal(t, tt.want+10, Score(candidate, job))
		})
	}
}

func TestScoreLanguagesFullMarksWithoutComparison(t *testing.T) {
	// No requirement on the job side.
	assert.Equal(t, 10, Score(newCandidate(nil, 0, []string{"English"}), newJob(nil, "", "")))

	// Requirement present but candidate lists no languages: the component
	// still awards full marks rather than penalizing the gap.
	assert.Equal(t, 10, Score(newCandidate(nil, 0, nil), newJob(nil, "", "English, French")))
}

func TestScoreLanguagesPartialMatch(t *testing.T) {
	candidate := newCandidate(nil, 0, []string{"English"})
	job := newJob(nil, "", "English, French")

	assert.Equal(t, 5, Score(candidate, job))
}

func TestScoreRoundsHalfUp(t *testing.T) {
	// 1 of 8 skills is 7.5 points; with the free languages component the raw
	// total is 17.5 and must round to 18.
	candidate := newCandidate([]string{"Go"}, 0, nil)
	job := newJob([]string{"Go", "a", "b", "c", "d", "e", "f", "g"}, "", "")

	assert.Equal(t, 18, Score(candidate, job))
}

func TestScoreMalformedJSONDegradesToZero(t *testing.T) {
	candidate := &models.Candidate{
		CandidateID:   "cand-bad",
		SkillsJSON:    []byte("{not json"),
		LanguagesJSON: []byte("{not json"),
	}
	job := newJob([]string{"Go"}, "senior", "")

	// Malformed skills read as none; languages component stays free.
	assert.Equal(t, 10, Score(candidate, job))
}

package matching

import (
	"math"
	"strings"

	"recruiter-go/internal/constants"
	"recruiter-go/internal/storage/models"
)

// Component weights. They always sum to 100 and the denominator is never
// reduced when a component sits out, so the final formula degenerates to
// rounding the component sum.
const (
	skillsWeight     = 60
	experienceWeight = 30
	languagesWeight  = 10
)

// requiredYears maps an experience level to its required years. Unknown
// levels map to zero, which disables the experience component.
var requiredYears = map[string]int{
	constants.ExperienceJunior:       1,
	constants.ExperienceIntermediate: 3,
	constants.ExperienceSenior:       5,
}

// Score computes the 0-100 compatibility score between a candidate and a job.
// It is pure and never fails: absent or malformed inputs degrade to a zero
// contribution per component, except for the languages component which awards
// full marks whenever there is nothing to compare (a job without language
// requirements is treated as automatically satisfied).
func Score(candidate *models.Candidate, job *models.Job) int {
	score := 0.0
	maxScore := 0

	// Skills: share of required skills the candidate covers.
	maxScore += skillsWeight
	jobSkills := lowercaseAll(job.Skills())
	candidateSkills := lowercaseAll(candidate.Skills())
	if len(jobSkills) > 0 && len(candidateSkills) > 0 {
		matched := 0
		for _, required := range jobSkills {
			if anyContains(candidateSkills, required) {
				matched++
			}
		}
		score += float64(matched) / float64(len(jobSkills)) * skillsWeight
	}

	// Experience: full marks at or above the required years, prorated below.
	maxScore += experienceWeight
	if job.ExperienceLevel != "" && candidate.Experience > 0 {
		required := requiredYears[job.ExperienceLevel]
		if required > 0 {
			if candidate.Experience >= required {
				score += experienceWeight
			} else {
				score += float64(candidate.Experience) / float64(required) * experienceWeight
			}
		}
	}

	// Languages: share of required languages covered, full marks when there
	// is no requirement or no candidate languages to compare against.
	maxScore += languagesWeight
	candidateLanguages := lowercaseAll(candidate.Languages())
	if job.Languages != "" && len(candidateLanguages) > 0 {
		required := splitLanguages(job.Languages)
		matched := 0
		for _, lang := range required {
			if anyContains(candidateLanguages, lang) {
				matched++
			}
		}
		if len(required) > 0 {
			score += float64(matched) / float64(len(required)) * languagesWeight
		}
	} else {
		score += languagesWeight
	}

	return int(math.Round(score / float64(maxScore) * 100))
}

// anyContains reports whether needle matches any of the candidates under
// bidirectional substring containment (either string contains the other).
func anyContains(candidates []string, needle string) bool {
	for _, c := range candidates {
		if strings.Contains(c, needle) || strings.Contains(needle, c) {
			return true
		}
	}
	return false
}

func lowercaseAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

// splitLanguages splits the comma-separated language requirement, trimming
// and lowercasing each entry.
func splitLanguages(spec string) []string {
	parts := strings.Split(spec, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return out
}

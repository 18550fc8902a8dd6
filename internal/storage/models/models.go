package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Candidate is a parsed applicant tied to exactly one job posting. JobID is a
// mutable reference: an explicit re-match moves the candidate to another job.
type Candidate struct {
	CandidateID        string         `gorm:"type:char(36);primaryKey" json:"id"`
	Name               string         `gorm:"type:varchar(255);not null" json:"name"`
	Email              string         `gorm:"type:varchar(255)" json:"email"`
	Phone              string         `gorm:"type:varchar(50)" json:"phone"`
	Location           string         `gorm:"type:varchar(255)" json:"location"`
	SkillsJSON         datatypes.JSON `gorm:"type:json" json:"skills"`
	Experience         int            `gorm:"default:0" json:"experience"`
	EducationJSON      datatypes.JSON `gorm:"type:json" json:"education"`
	WorkExperienceJSON datatypes.JSON `gorm:"type:json" json:"workExperience"`
	LanguagesJSON      datatypes.JSON `gorm:"type:json" json:"languages"`
	MatchingScore      int            `gorm:"default:0;index:idx_candidates_job_score,priority:2" json:"matchingScore"`
	Status             string         `gorm:"type:varchar(50);default:'new';index:idx_candidates_status" json:"status"`
	JobID              string         `gorm:"type:char(36);not null;index:idx_candidates_job_score,priority:1" json:"jobId"`
	CVFile             string         `gorm:"type:varchar(1024)" json:"cvFile"`
	LastActivity       time.Time      `gorm:"type:datetime(6)" json:"lastActivity"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"createdAt"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updatedAt"`

	Job   *Job            `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Notes []CandidateNote `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"notes,omitempty"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Skills decodes the JSON skills column. Malformed or absent data yields nil;
// the matching engine treats that as "no skills" rather than an error.
func (c *Candidate) Skills() []string {
	return decodeStringSlice(c.SkillsJSON)
}

// Languages decodes the JSON languages column, nil on malformed/absent data.
func (c *Candidate) Languages() []string {
	return decodeStringSlice(c.LanguagesJSON)
}

// Job is a job posting. Skills live in a JSON column; Languages keeps the
// comma-separated string form the matching engine splits on.
type Job struct {
	JobID              string         `gorm:"type:char(36);primaryKey" json:"id"`
	Title              string         `gorm:"type:varchar(255);not null" json:"title"`
	Location           string         `gorm:"type:varchar(255)" json:"location"`
	ContractType       string         `gorm:"type:varchar(100)" json:"contractType"`
	Salary             string         `gorm:"type:varchar(100)" json:"salary"`
	ExperienceLevel    string         `gorm:"type:varchar(50)" json:"experienceLevel"`
	StartDate          *time.Time     `gorm:"type:date" json:"startDate,omitempty"`
	Languages          string         `gorm:"type:varchar(255)" json:"languages"`
	Description        string         `gorm:"type:text" json:"description"`
	SkillsJSON         datatypes.JSON `gorm:"type:json" json:"skills"`
	PipelineStagesJSON datatypes.JSON `gorm:"type:json" json:"pipelineStages"`
	Status             string         `gorm:"type:varchar(50);default:'active';index:idx_jobs_status" json:"status"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"createdAt"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updatedAt"`
}

func (Job) TableName() string {
	return "jobs"
}

// Skills decodes the JSON skills column, nil on malformed/absent data.
func (j *Job) Skills() []string {
	return decodeStringSlice(j.SkillsJSON)
}

// CandidateNote is a free-form note attached to a candidate. Notes are removed
// in cascade when the candidate is deleted.
type CandidateNote struct {
	NoteID      uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CandidateID string    `gorm:"type:char(36);not null;index:idx_notes_candidate_id" json:"candidateId"`
	UserID      string    `gorm:"type:char(36)" json:"userId"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"createdAt"`
}

func (CandidateNote) TableName() string {
	return "candidate_notes"
}

// Interview is a scheduled interview for a candidate on a job.
type Interview struct {
	InterviewID string    `gorm:"type:char(36);primaryKey" json:"id"`
	CandidateID string    `gorm:"type:char(36);not null;index:idx_interviews_candidate_id" json:"candidateId"`
	JobID       string    `gorm:"type:char(36);not null;index:idx_interviews_job_id" json:"jobId"`
	Round       string    `gorm:"type:varchar(100)" json:"round"`
	ScheduledAt time.Time `gorm:"type:datetime(6);not null;index:idx_interviews_scheduled_at" json:"scheduledAt"`
	Location    string    `gorm:"type:varchar(255)" json:"location"`
	Notes       string    `gorm:"type:text" json:"notes"`
	Status      string    `gorm:"type:varchar(50);default:'scheduled'" json:"status"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updatedAt"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Job       *Job       `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (Interview) TableName() string {
	return "interviews"
}

func decodeStringSlice(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// StringsToJSON encodes a string slice for a JSON column. A nil slice encodes
// as an empty JSON array so reads stay array-like.
func StringsToJSON(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	bytes, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return bytes
}

// MapsToJSON encodes structured records (education, work experience) for a
// JSON column.
func MapsToJSON(values []map[string]interface{}) (datatypes.JSON, error) {
	if values == nil {
		values = []map[string]interface{}{}
	}
	bytes, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

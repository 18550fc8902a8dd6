package types

// CandidateAttributes is the normalized record produced by CV parsing. Every
// field carries a safe default: empty string, zero, or empty slice.
type CandidateAttributes struct {
	Name           string                   `json:"name"`
	Email          string                   `json:"email"`
	Phone          string                   `json:"phone"`
	Location       string                   `json:"location"`
	Skills         []string                 `json:"skills"`
	Experience     int                      `json:"experience"`
	Education      []map[string]interface{} `json:"education"`
	WorkExperience []map[string]interface{} `json:"workExperience"`
	Languages      []string                 `json:"languages"`
}

// FileUpload is one uploaded resume handed to the ingestion orchestrator after
// it has been written to the file store.
type FileUpload struct {
	Filename string // original client filename
	FileRef  string // key in the file store
}

// FileResult is the per-file outcome inside a batch ingestion response.
// Success entries carry candidate fields, failures carry filename and error.
type FileResult struct {
	Success       bool   `json:"success"`
	CandidateID   string `json:"candidateId,omitempty"`
	Name          string `json:"name,omitempty"`
	MatchingScore int    `json:"matchingScore,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BatchResult aggregates a whole batch ingestion. Results keep the input file
// order.
type BatchResult struct {
	TotalProcessed int          `json:"totalProcessed"`
	SuccessCount   int          `json:"successCount"`
	ErrorCount     int          `json:"errorCount"`
	Results        []FileResult `json:"results"`
}

// JobScore is one entry of a best-jobs-for-candidate ranking. Scores here are
// ephemeral and never persisted.
type JobScore struct {
	JobID string `json:"jobId"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

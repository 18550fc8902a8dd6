package constants

import "time"

// Candidate statuses.
const (
	CandidateStatusNew       = "new"
	CandidateStatusToContact = "toContact"
	CandidateStatusInterview = "interview"
	CandidateStatusHired     = "hired"
	CandidateStatusRejected  = "rejected"
)

// ValidCandidateStatuses lists the accepted values for candidate status
// updates, in pipeline order.
var ValidCandidateStatuses = []string{
	CandidateStatusNew,
	CandidateStatusToContact,
	CandidateStatusInterview,
	CandidateStatusHired,
	CandidateStatusRejected,
}

// Job statuses.
const (
	JobStatusActive = "active"
	JobStatusDraft  = "draft"
	JobStatusClosed = "closed"
)

// Experience levels and their required-years thresholds.
const (
	ExperienceJunior       = "junior"
	ExperienceIntermediate = "intermediate"
	ExperienceSenior       = "senior"
)

// Messaging topology for score recalculation events.
const (
	ScoreEventsExchange   = "recruiter.score.exchange"
	ScoreRecalcRoutingKey = "score.recalc.needed"
	ScoreRecalcQueue      = "q.score_recalc"
)

// Redis keys.
const (
	CVFileMD5SetKey     = "cvs:file_md5s"    // dedupe set for uploaded CV files
	BestJobsCachePrefix = "match:best_jobs:" // cached best-jobs rankings per candidate
	BestJobsCacheTTL    = 5 * time.Minute
)

// DefaultBestLimit is used when a best-N query omits the limit parameter.
const DefaultBestLimit = 5

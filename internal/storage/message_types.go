package storage

// ScoreRecalcMessage is the payload of a score-recalculation event. It flows
// through the outbox table into RabbitMQ and back out to the consumer.
type ScoreRecalcMessage struct {
	JobID  string `json:"jobId"`
	Reason string `json:"reason"` // e.g. "job_updated"
}

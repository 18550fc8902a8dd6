// Package outbox implements the transactional outbox pattern: domain writes
// enqueue events in the same database transaction, and the relay here ships
// them to RabbitMQ afterwards.
package outbox

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recruiter-go/internal/logger"
	"recruiter-go/internal/storage"
	"recruiter-go/internal/storage/models"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	maxRetryCount          = 5
)

// MessageRelay polls the outbox table and publishes pending messages.
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
}

// NewMessageRelay builds a relay over db and publisher.
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ) *MessageRelay {
	return &MessageRelay{
		db:              db,
		publisher:       publisher,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (r *MessageRelay) Start() {
	logger.Info().Msg("Outbox relay starting")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				logger.Info().Msg("Outbox relay stopped")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					logger.Error().Err(err).Msg("Outbox relay batch failed")
				}
			}
		}
	}()
}

// Stop signals the polling goroutine to exit.
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages publishes one batch of pending messages. Rows are
// locked with FOR UPDATE SKIP LOCKED so several relay instances can run
// side by side without double publishing.
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	for _, msg := range messages {
		publishErr := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true,
		)
		if publishErr != nil {
			logger.Warn().Err(publishErr).
				Uint64("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retries", msg.RetryCount+1).
				Msg("Failed to publish outbox message")
			msg.RetryCount++
			msg.ErrorMessage = publishErr.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = models.OutboxStatusFailed
			}
		} else {
			msg.Status = models.OutboxStatusPublished
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		if err := tx.Save(&msg).Error; err != nil {
			// Rolling back leaves the whole batch pending for the next tick.
			return err
		}
	}

	return tx.Commit().Error
}

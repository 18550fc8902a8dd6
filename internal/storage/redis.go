package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"recruiter-go/internal/config"
	"recruiter-go/internal/constants"
	"recruiter-go/internal/logger"
	"recruiter-go/internal/types"
)

// Redis provides the upload dedupe index and the best-jobs ranking cache.
// Both are best effort: callers keep working when Redis is down.
type Redis struct {
	client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedisAdapter connects and pings the server.
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config must not be nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging Redis (%s): %w", cfg.Address, err)
	}

	logger.Info().Str("address", cfg.Address).Msg("Connected to Redis")
	return &Redis{client: client, cfg: cfg}, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// ---- upload dedupe index ----

// SeenFileMD5 reports whether the digest was recorded before.
func (r *Redis) SeenFileMD5(ctx context.Context, digest string) (bool, error) {
	return r.client.SIsMember(ctx, constants.CVFileMD5SetKey, digest).Result()
}

// RecordFileMD5 adds the digest to the dedupe set and refreshes the set's
// expiry so stale records age out eventually.
func (r *Redis) RecordFileMD5(ctx context.Context, digest string) error {
	if err := r.client.SAdd(ctx, constants.CVFileMD5SetKey, digest).Err(); err != nil {
		return err
	}
	if r.cfg.MD5RecordExpireDays > 0 {
		ttl := time.Duration(r.cfg.MD5RecordExpireDays) * 24 * time.Hour
		if err := r.client.Expire(ctx, constants.CVFileMD5SetKey, ttl).Err(); err != nil {
			logger.Warn().Err(err).Msg("Failed to refresh dedupe set expiry")
		}
	}
	return nil
}

// ---- best-jobs ranking cache ----

// GetBestJobs returns the cached ranking for the candidate, if present.
func (r *Redis) GetBestJobs(ctx context.Context, candidateID string) ([]types.JobScore, bool) {
	raw, err := r.client.Get(ctx, constants.BestJobsCachePrefix+candidateID).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("Best-jobs cache read failed")
		}
		return nil, false
	}
	var ranking []types.JobScore
	if err := json.Unmarshal(raw, &ranking); err != nil {
		logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("Best-jobs cache entry corrupt, dropping")
		r.client.Del(ctx, constants.BestJobsCachePrefix+candidateID)
		return nil, false
	}
	return ranking, true
}

// SetBestJobs caches the full ranking with a short TTL.
func (r *Redis) SetBestJobs(ctx context.Context, candidateID string, ranking []types.JobScore) {
	raw, err := json.Marshal(ranking)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, constants.BestJobsCachePrefix+candidateID, raw, constants.BestJobsCacheTTL).Err(); err != nil {
		logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("Best-jobs cache write failed")
	}
}

// InvalidateBestJobs drops the cached ranking after a score-relevant change.
func (r *Redis) InvalidateBestJobs(ctx context.Context, candidateID string) {
	if err := r.client.Del(ctx, constants.BestJobsCachePrefix+candidateID).Err(); err != nil {
		logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("Best-jobs cache invalidation failed")
	}
}

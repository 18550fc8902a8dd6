// Package storage aggregates the persistence and infrastructure adapters:
// MySQL, the file store, RabbitMQ and Redis.
package storage

import (
	"fmt"

	"recruiter-go/internal/config"
	"recruiter-go/internal/logger"
)

// Storage bundles every storage-layer dependency. MySQL is mandatory;
// RabbitMQ and Redis are optional and stay nil when unconfigured or
// unreachable, callers degrade accordingly.
type Storage struct {
	MySQL    *MySQL
	Files    FileStore
	RabbitMQ *RabbitMQ
	Redis    *Redis
}

// NewStorage initializes every configured adapter. A MySQL or file store
// failure is fatal; RabbitMQ and Redis failures are logged and tolerated.
func NewStorage(cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	s := &Storage{}
	var err error

	s.MySQL, err = NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("initializing MySQL: %w", err)
	}
	logger.Info().Msg("MySQL initialized")

	s.Files, err = NewFileStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing file store: %w", err)
	}
	logger.Info().Str("backend", cfg.Storage.Backend).Msg("File store initialized")

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("RabbitMQ unavailable, score recalculation events disabled")
			s.RabbitMQ = nil
		}
	} else {
		logger.Info().Msg("RabbitMQ not configured, skipping")
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, dedupe and ranking cache disabled")
			s.Redis = nil
		}
	} else {
		logger.Info().Msg("Redis not configured, skipping")
	}

	return s, nil
}

// Close closes every open connection.
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing RabbitMQ failed")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing Redis failed")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing MySQL failed")
		}
	}
}

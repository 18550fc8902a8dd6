package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	hlog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"recruiter-go/internal/api/handler"
	"recruiter-go/internal/api/router"
	"recruiter-go/internal/config"
	"recruiter-go/internal/cvparse"
	"recruiter-go/internal/ingest"
	"recruiter-go/internal/logger"
	"recruiter-go/internal/matching"
	"recruiter-go/internal/notify"
	"recruiter-go/internal/outbox"
	"recruiter-go/internal/storage"
)

var (
	serviceName = "recruiter-go"
	version     = "1.0.0"
)

func main() {
	var configPath string
	var writeSampleConfig bool
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.BoolVar(&writeSampleConfig, "write-sample-config", false, "Write a sample config.yaml and exit")
	pflag.Parse()

	if writeSampleConfig {
		if err := config.CreateSampleConfig("config.yaml"); err != nil {
			logger.Fatal().Err(err).Msg("Failed to write sample config")
		}
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	initLogger(cfg)

	storageManager, err := storage.NewStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	matcher := matching.NewService(storageManager.MySQL, storageManager.MySQL, rankingCache(storageManager))

	parser := cvparse.NewParser(cfg.Parser.ServiceURL, time.Duration(cfg.Parser.TimeoutSeconds)*time.Second)

	var ingestOpts []ingest.Option
	if storageManager.Redis != nil {
		ingestOpts = append(ingestOpts, ingest.WithDedupeIndex(storageManager.Redis))
	}
	if cfg.Storage.Backend == "minio" {
		// The extraction service reads the shared object store directly.
		ingestOpts = append(ingestOpts, ingest.WithFileKeyPayloads())
	}
	orchestrator := ingest.NewOrchestrator(
		storageManager.MySQL,
		storageManager.MySQL,
		parser,
		storageManager.Files,
		ingestOpts...,
	)

	emailBackend, err := notify.NewEmailBackend(&cfg.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize email backend")
	}
	notifier := notify.NewNotifier(emailBackend)

	// Score recalculation pipeline: outbox relay publishes job-changed
	// events, the consumer below runs the sweeps.
	var relay *outbox.MessageRelay
	var consumerStop chan<- struct{}
	if storageManager.RabbitMQ != nil {
		relay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ)
		relay.Start()

		consumerStop, err = startRecalcConsumer(cfg, storageManager, matcher)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to start score recalculation consumer")
		}
	} else {
		logger.Warn().Msg("RabbitMQ unavailable, score recalculation falls back to in-process execution")
	}

	candidateHandler := handler.NewCandidateHandler(storageManager, matcher, orchestrator)
	jobHandler := handler.NewJobHandler(storageManager, matcher)
	interviewHandler := handler.NewInterviewHandler(storageManager, notifier)

	h := server.Default(server.WithHostPorts(cfg.Server.Address))
	router.RegisterRoutes(h, candidateHandler, jobHandler, interviewHandler)

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Termination signal received, shutting down")

	if relay != nil {
		relay.Stop()
	}
	if consumerStop != nil {
		close(consumerStop)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	logger.Info().Msg("Shutdown complete")
}

// startRecalcConsumer binds the recalc queue and consumes job-changed events.
// Handler failures nack with requeue so transient database errors retry.
func startRecalcConsumer(cfg *config.Config, storageManager *storage.Storage, matcher *matching.Service) (chan<- struct{}, error) {
	mq := storageManager.RabbitMQ
	if err := mq.EnsureExchange(cfg.RabbitMQ.ScoreEventsExchange, "topic", true); err != nil {
		return nil, err
	}
	if err := mq.EnsureQueue(cfg.RabbitMQ.ScoreRecalcQueue, true); err != nil {
		return nil, err
	}
	if err := mq.BindQueue(cfg.RabbitMQ.ScoreRecalcQueue, cfg.RabbitMQ.ScoreEventsExchange, cfg.RabbitMQ.RecalcRoutingKey); err != nil {
		return nil, err
	}

	prefetch := cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 10
	}
	return mq.StartConsumer(cfg.RabbitMQ.ScoreRecalcQueue, prefetch, func(body []byte) bool {
		var msg storage.ScoreRecalcMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			logger.Error().Err(err).Msg("Dropping malformed recalc message")
			return true // unparseable, requeueing cannot help
		}
		if err := matcher.RecalculateAfterJobUpdate(context.Background(), msg.JobID); err != nil {
			logger.Error().Err(err).Str("job_id", msg.JobID).Msg("Score recalculation failed, requeueing")
			return false
		}
		return true
	})
}

func rankingCache(storageManager *storage.Storage) matching.RankingCache {
	if storageManager.Redis == nil {
		return nil
	}
	return storageManager.Redis
}

func initLogger(cfg *config.Config) {
	logConfig := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}
	if os.Getenv("ENV") == "production" && cfg.Logger.Format == "" {
		logConfig.Level = "info"
		logConfig.Format = "json"
		logConfig.ReportCaller = false
	}
	logger.Init(logConfig)
	logger.Logger = logger.Logger.With().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	// Route Hertz's own logging through zerolog.
	hlog.SetLogger(hertzadapter.From(logger.Logger))
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"example.com/fitness/internal/config"
	"example.com/fitness/internal/consumer"
	"example.com/fitness/internal/domain"
	"example.com/fitness/internal/logging"
	"example.com/fitness/internal/persistence/postgres"
)

func main() {
	cfg := config.Load()

	flush := logging.Setup(logging.Params{
		Level:       cfg.LogLevel,
		FormatJSON:  cfg.LogFormatJSON,
		FileName:    cfg.LogFile,
		Environment: cfg.Environment,
		SentryDSN:   cfg.SentryDSN,
		ServerName:  "fitness-consumer",
	})
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %s", err)
	}
	defer pool.Close()

	if err := run(ctx, cfg, pool); err != nil {
		log.WithError(err).Error("consumer exited")
	}
}

// run starts one processor per topic plus the metrics listener and blocks
// until ctx is cancelled or any of them fails.
func run(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) error {
	handler := buildHandler(cfg, pool)
	group, ctx := errgroup.WithContext(ctx)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	group.Go(func() error {
		log.Infof("consumer metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("consumer shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	for _, topic := range cfg.ConsumerTopics {
		reader := newReader(cfg, topic)
		logger := log.WithFields(log.Fields{"component": "consumer", "topic": topic})
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(logger))

		group.Go(func() error {
			defer reader.Close()
			logger.WithField("group", cfg.ConsumerGroupID).Info("consumer started")
			if err := proc.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return group.Wait()
}

func buildHandler(cfg config.Config, pool *pgxpool.Pool) consumer.Handler {
	handlers := []consumer.Handler{consumer.NewPersistenceHandler(pool)}
	if cfg.ConsumerApplyGoalProgress {
		goals := domain.NewGoalService(postgres.NewGoalRepository(pool), domain.WithMaxSaveAttempts(cfg.GoalUpdateMaxAttempts))
		handlers = append(handlers, consumer.NewGoalProgressHandler(goals))
		log.Info("applying activity.logged events to goal progress")
	}
	return consumer.Chain(handlers...)
}

func newReader(cfg config.Config, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.ConsumerGroupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
}

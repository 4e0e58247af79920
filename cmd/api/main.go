package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"example.com/fitness/db"
	"example.com/fitness/internal/api"
	"example.com/fitness/internal/auth"
	"example.com/fitness/internal/config"
	"example.com/fitness/internal/domain"
	"example.com/fitness/internal/logging"
	"example.com/fitness/internal/outbox"
	"example.com/fitness/internal/persistence/memory"
	"example.com/fitness/internal/persistence/postgres"
	authlib "example.com/fitness/internal/platform/auth"
	httptransport "example.com/fitness/internal/transport/http"
)

type repositories struct {
	goals      domain.GoalRepository
	activities domain.ActivityRepository
	users      domain.UserRepository
}

func main() {
	cfg := config.Load()

	flush := logging.Setup(logging.Params{
		Level:       cfg.LogLevel,
		FormatJSON:  cfg.LogFormatJSON,
		FileName:    cfg.LogFile,
		Environment: cfg.Environment,
		SentryDSN:   cfg.SentryDSN,
		ServerName:  "fitness-api",
	})
	defer flush()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repos      repositories
		dispatcher *outbox.Dispatcher
	)

	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart and no events are published")
		repos = repositories{
			goals:      memory.NewGoalRepository(),
			activities: memory.NewActivityRepository(),
			users:      memory.NewUserRepository(),
		}
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %s", err)
		}
		defer pool.Close()

		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool); err != nil {
				log.Fatalf("failed to run migrations: %s", err)
			}
		}

		repos = repositories{
			goals:      postgres.NewGoalRepository(pool),
			activities: postgres.NewActivityRepository(pool),
			users:      postgres.NewUserRepository(pool),
		}

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)
	}

	var limiter httptransport.RequestRateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		limiter = redis_rate.NewLimiter(rdb)
		log.Infof("rate limiting sign-up and login to %d/min per client", cfg.AuthRateLimitPerMin)
	}

	issuer := authlib.NewIssuer(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, cfg.JWTTTL)
	goals := domain.NewGoalService(repos.goals, domain.WithMaxSaveAttempts(cfg.GoalUpdateMaxAttempts))
	activities := domain.NewActivityService(repos.activities)
	users := domain.NewUserService(repos.users, issuer, domain.BcryptHasher{Cost: cfg.BcryptCost}, auth.UserScopes)

	mux := http.NewServeMux()
	api.NewHandler(goals, activities, users).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	handler := httptransport.Chain(mux,
		httptransport.PanicRecovery(),
		httptransport.RequestMetrics(),
		httptransport.LogRequest(),
		httptransport.CORS(cfg.CORSAllowOrigin),
		httptransport.RateLimit(limiter, "auth", cfg.AuthRateLimitPerMin, isCredentialRequest),
		authMiddleware.Wrap,
	)

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), handler)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("fitness api listening on %s (storage=%s)", cfg.HTTPAddress, cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %s", err)
		}
	}()

	<-shutdownCh
	log.Info("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %s", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}

func isCredentialRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return r.URL.Path == "/v1/users" || r.URL.Path == "/v1/users/login"
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/twmb/franz-go/pkg/kgo"

	"trustgate/internal/jwttoken"
	"trustgate/internal/platform/config"
	"trustgate/internal/platform/httpserver"
	"trustgate/internal/platform/logger"
	platformmetrics "trustgate/internal/platform/metrics"
	"trustgate/internal/platform/postgres"
	platformredis "trustgate/internal/platform/redis"
	"trustgate/internal/platform/tracing"
	"trustgate/internal/verification"
	"trustgate/internal/verification/adapters"
	"trustgate/internal/verification/gate"
	"trustgate/internal/verification/metrics"
	"trustgate/internal/verification/ports"
	"trustgate/internal/verification/store"
	audit "trustgate/pkg/platform/audit"
	"trustgate/pkg/platform/audit/publisher"
	auditmemory "trustgate/pkg/platform/audit/store/memory"
	auditpostgres "trustgate/pkg/platform/audit/store/postgres"
	"trustgate/pkg/platform/circuit"
	"trustgate/pkg/platform/httputil"
	authmw "trustgate/pkg/platform/middleware/auth"
	"trustgate/pkg/platform/middleware/metadata"
	"trustgate/pkg/platform/middleware/request"
	"trustgate/pkg/platform/middleware/requesttime"
	"trustgate/pkg/platform/outbox"
	"trustgate/pkg/platform/tx"
)

const (
	shutdownTimeout    = 10 * time.Second
	topicPartitions    = 3
	topicReplicas      = 1
	ensureTopicTimeout = 10 * time.Second
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/verification.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "trustgate", cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	backing, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backing.Close()

	reviewers, err := cfg.Reviewers()
	if err != nil {
		return err
	}
	capabilities := adapters.AnyOf{
		adapters.NewAllowlistChecker(reviewers...),
		adapters.NewRoleChecker(adapters.RoleReviewer),
	}

	module := verification.New(verification.Deps{
		Store:        backing.store,
		Directory:    backing.directory,
		Capabilities: capabilities,
		Audit:        publisher.New(backing.audit, publisher.WithLogger(log), publisher.WithMetrics(publisher.NewMetrics())),
		TxRunner:     backing.runner,
		Cache:        backing.cache,
		Metrics:      metrics.New(),
		Logger:       log,
	})

	if backing.relay != nil {
		go func() {
			if err := backing.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox relay stopped", "error", err)
			}
		}()
	}

	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	router := newRouter(log, backing.Health, jwttoken.NewAdapter(jwtService), module, platformmetrics.NewHTTP())
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting trustgate", "addr", cfg.Addr, "postgres", backing.db != nil, "redis", backing.redis != nil, "kafka_relay", backing.relay != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(log *slog.Logger, health func(context.Context) error, validator authmw.JWTValidator, module *verification.Module, httpMetrics *platformmetrics.HTTP) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", platformmetrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(validator, log))
		module.Handler.Register(r)
	})
	return r
}

// ownerSeeder is implemented by both owner directories.
type ownerSeeder interface {
	Upsert(ctx context.Context, owner ports.Owner) error
}

// seedDirectory writes OWNER_PROFILES into the owner directory, so the
// review queue search has profiles to match in memory mode too.
func seedDirectory(ctx context.Context, cfg config.Config, directory ports.OwnerDirectory) error {
	owners, err := cfg.Owners()
	if err != nil {
		return err
	}
	seeder, ok := directory.(ownerSeeder)
	if !ok {
		return nil
	}
	for _, o := range owners {
		if err := seeder.Upsert(ctx, ports.Owner{AccountID: o.AccountID, DisplayName: o.DisplayName, Email: o.Email}); err != nil {
			return fmt.Errorf("seed owner directory: %w", err)
		}
	}
	return nil
}

// infra holds the backing services selected by configuration.
type infra struct {
	db        *sql.DB
	redis     *platformredis.Client
	kafka     *kgo.Client
	store     verification.Store
	directory ports.OwnerDirectory
	audit     audit.Store
	runner    tx.Runner
	cache     gate.Cache
	relay     *outbox.Relay
}

func buildInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		in.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			in.Close()
			return nil, err
		}
		in.store = store.NewPostgres(db)
		in.directory = adapters.NewPostgresDirectory(db)
		in.audit = auditpostgres.New(db)
		in.runner = tx.NewSQLRunner(db, cfg.TxTimeout)
	} else {
		log.Warn("DATABASE_URL not set; using in-memory registry")
		in.store = store.NewInMemoryStore()
		in.directory = adapters.NewInMemoryDirectory()
		in.audit = auditmemory.NewInMemoryStore()
		in.runner = tx.NoopRunner{}
	}
	if err := seedDirectory(ctx, cfg, in.directory); err != nil {
		in.Close()
		return nil, err
	}

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if client != nil {
		in.redis = client
		in.cache = gate.NewBreakerCache(gate.NewRedisCache(client.Client, cfg.GateCacheTTL), circuit.New("gate-redis"), log)
	} else {
		in.cache = gate.NewMemoryCache(cfg.GateCacheTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		if in.db == nil {
			log.Warn("KAFKA_BROKERS set without DATABASE_URL; outbox relay disabled")
			return in, nil
		}
		kc, err := outbox.NewKafkaClient(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.kafka = kc
		topicCtx, cancel := context.WithTimeout(ctx, ensureTopicTimeout)
		err = outbox.EnsureTopic(topicCtx, kc, cfg.Kafka.Topic, topicPartitions, topicReplicas)
		cancel()
		if err != nil {
			in.Close()
			return nil, err
		}
		in.relay = outbox.NewRelay(outbox.NewPostgresSource(in.db, in.runner), kc, cfg.Kafka.Topic,
			outbox.WithPollInterval(cfg.Kafka.PollInterval),
			outbox.WithBatchSize(cfg.Kafka.BatchSize),
			outbox.WithLogger(log),
			outbox.WithMetrics(outbox.NewMetrics()),
		)
	}
	return in, nil
}

func (in *infra) Health(ctx context.Context) error {
	if in.db != nil {
		if err := in.db.PingContext(ctx); err != nil {
			return err
		}
	}
	if in.redis != nil {
		return in.redis.Health(ctx)
	}
	return nil
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"attest/internal/admin"
	credhandler "attest/internal/credential/handler"
	credmetrics "attest/internal/credential/metrics"
	credservice "attest/internal/credential/service"
	issuerstore "attest/internal/credential/store/issuer"
	"attest/internal/credential/workers/expiry"
	"attest/internal/events"
	eventmetrics "attest/internal/events/metrics"
	jwttoken "attest/internal/jwt_token"
	"attest/internal/keys"
	"attest/internal/platform/config"
	"attest/internal/platform/database"
	"attest/internal/platform/health"
	"attest/internal/platform/kafka/producer"
	"attest/internal/platform/logger"
	"attest/internal/platform/privacy"
	redisclient "attest/internal/platform/redis"
	"attest/internal/platform/tracer"
	ratelimitmetrics "attest/internal/ratelimit/metrics"
	ratelimit "attest/internal/ratelimit/middleware"
	ratelimitmodels "attest/internal/ratelimit/models"
	"attest/internal/ratelimit/store/bucket"
	revmetrics "attest/internal/revocation/metrics"
	revservice "attest/internal/revocation/service"
	"attest/internal/seeder"
	stackhandler "attest/internal/stack/handler"
	stackmetrics "attest/internal/stack/metrics"
	stackservice "attest/internal/stack/service"
	httptransport "attest/internal/transport/http"
	"attest/migrations"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/audit/publisher"
	"attest/pkg/platform/circuit"
	"attest/pkg/platform/middleware/request"
)

const (
	tokenAudience   = "attest-admin"
	shutdownTimeout = 10 * time.Second
	auditBuffer     = 1024
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing attest",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"postgres", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
		"kafka", cfg.Kafka.Brokers != "",
	)

	healthHandler := health.New(cfg.Server.Environment)

	repos := memoryStores()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close() //nolint:errcheck // shutdown
		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}
		repos = postgresStores(db)
		healthHandler.RegisterCheck("postgres", db.PingContext)
		prometheus.MustRegister(database.StatsCollector(db))
	}

	km := keys.NewManager([]byte(cfg.Keys.PlatformSecret))
	if !km.Available() {
		log.Warn("ATTEST_KEY_SECRET not set, issuance is disabled")
	}
	healthHandler.SetFeature("issuance", km.Available())
	healthHandler.SetFeature("rate_limit", cfg.RateLimit.VerifyLimit > 0)
	healthHandler.SetFeature("expiry_sweep", cfg.Expiry.SweepInterval > 0)

	trc := tracer.NewNoop()
	if cfg.Server.Tracing {
		trc = tracer.New(nil)
	}

	credMetrics := credmetrics.New()
	var profiles credservice.IssuerProfiles = issuerstore.NewStoreProfiles(repos.issuers)
	var profileCache seeder.ProfileInvalidator
	rc, err := redisclient.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close() //nolint:errcheck // shutdown
		cache := issuerstore.NewRedisProfileCache(rc.Client, cfg.Redis.CacheTTL, repos.issuers, credMetrics, log)
		profiles = cache
		profileCache = cache
		healthHandler.RegisterCheck("redis", rc.Health)
		prometheus.MustRegister(redisclient.NewPoolCollector(rc.Client))
	}

	auditPublisher := publisher.New(repos.audit,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(prometheus.DefaultRegisterer)),
	)
	defer auditPublisher.Close()
	auditor := audit.NewLogger(log, auditPublisher, audit.WithIPMasker(privacy.AnonymizeIP))

	eventMetrics := eventmetrics.New(prometheus.DefaultRegisterer)
	sink, closeSink, err := newSink(cfg.Kafka, log, healthHandler, eventMetrics)
	if err != nil {
		return err
	}
	defer closeSink()
	queue := events.NewQueue(sink, cfg.Events.BufferSize,
		events.WithQueueLogger(log),
		events.WithQueueMetrics(eventMetrics),
	)
	bus := events.NewBus(log)
	bus.SubscribeAll(queue.Handle)

	issuer := credservice.NewIssuer(credservice.IssuerDeps{
		Templates:   repos.templates,
		Issuers:     repos.issuers,
		Recipients:  repos.recipients,
		Credentials: repos.credentials,
		Keys:        km,
	}, cfg.Server.BaseURL,
		credservice.WithLogger(log),
		credservice.WithAuditor(auditor),
		credservice.WithTracer(trc),
		credservice.WithMetrics(credMetrics),
		credservice.WithDispatcher(bus),
	)
	registry := revservice.New(repos.revocations, repos.credentials,
		revservice.WithLogger(log),
		revservice.WithAuditor(auditor),
		revservice.WithTracer(trc),
		revservice.WithMetrics(revmetrics.New()),
		revservice.WithDispatcher(bus),
	)
	verifier := credservice.NewVerifier(credservice.VerifierDeps{
		Credentials: repos.credentials,
		Templates:   repos.templates,
		Issuers:     profiles,
		Revocations: registry,
		Keys:        km,
	},
		credservice.WithLogger(log),
		credservice.WithAuditor(auditor),
		credservice.WithTracer(trc),
		credservice.WithMetrics(credMetrics),
		credservice.WithDispatcher(bus),
	)
	evaluator := stackservice.NewEvaluator(repos.stacks, issuer, repos.credentials,
		stackservice.WithLogger(log),
		stackservice.WithAuditor(auditor),
		stackservice.WithTracer(trc),
		stackservice.WithMetrics(stackmetrics.New()),
		stackservice.WithDispatcher(bus),
	)
	bus.Subscribe(events.CredentialIssued, evaluator.HandleCredentialIssued)

	if cfg.SeedFile != "" {
		seed := seeder.New(seeder.Stores{
			Issuers:    repos.issuers,
			Templates:  repos.templates,
			Stacks:     repos.stacks,
			Recipients: repos.recipients,
			Profiles:   profileCache,
		}, km, log)
		if _, err := seed.SeedFile(ctx, cfg.SeedFile); err != nil {
			return fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
		}
	}

	var limiter func(http.Handler) http.Handler
	if cfg.RateLimit.VerifyLimit > 0 {
		var buckets ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
		if rc != nil {
			buckets = bucket.NewRedisBucketStore(rc.Client)
		}
		limiter = ratelimit.New(buckets, log, ratelimit.WithMetrics(ratelimitmetrics.New())).
			ByClientIP("public", ratelimitmodels.Policy{Limit: cfg.RateLimit.VerifyLimit, Window: cfg.RateLimit.VerifyWindow})
	}

	credentials := credhandler.New(issuer, verifier, registry, log)
	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.BaseURL, tokenAudience, cfg.Server.TokenTTL)
	router := httptransport.NewRouter(httptransport.Deps{
		Public: []httptransport.PublicRoutes{healthHandler},
		Limited: []httptransport.PublicRoutes{
			credentials,
			stackhandler.New(evaluator, log),
		},
		RateLimit: limiter,
		Admin: []httptransport.AdminRoutes{
			credentials,
			admin.New(admin.NewService(repos.audit, repos.credentials, repos.recipients), log),
		},
		Validator:      jwttoken.NewValidator(jwtService),
		TrustedProxies: cfg.Server.TrustedProxies,
		Metrics:        request.NewMetrics(prometheus.DefaultRegisterer),
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Run(gctx)
	})
	if cfg.Expiry.SweepInterval > 0 {
		sweeper, err := expiry.New(repos.credentials, verifier,
			expiry.WithInterval(cfg.Expiry.SweepInterval),
			expiry.WithBatchSize(cfg.Expiry.BatchSize),
			expiry.WithLogger(log),
		)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := sweeper.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newSink publishes events to Kafka when brokers are configured and to the
// log otherwise.
func newSink(cfg config.KafkaConfig, log *slog.Logger, h *health.Handler, m *eventmetrics.Metrics) (events.Sink, func(), error) {
	if cfg.Brokers == "" {
		return events.NewLogSink(log), func() {}, nil
	}
	p, err := producer.New(producer.Config{
		Brokers:         cfg.Brokers,
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	h.RegisterCheck("kafka", p.Health)
	breaker := circuit.New("kafka",
		circuit.WithFailureThreshold(5),
		circuit.WithCooldown(30*time.Second),
		circuit.WithStateChange(func(name string, from, to circuit.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			m.ObserveBreaker(name, from, to)
		}),
	)
	closeFn := func() {
		if err := p.Close(); err != nil {
			log.Error("close kafka producer", "error", err)
		}
	}
	return events.NewKafkaSink(p, cfg.Topic, breaker), closeFn, nil
}

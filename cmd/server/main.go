package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cddflow/internal/audit"
	"cddflow/internal/channels/slack"
	"cddflow/internal/channels/zendesk"
	"cddflow/internal/dispatch"
	"cddflow/internal/dispatch/adapters"
	dispatchmetrics "cddflow/internal/dispatch/metrics"
	"cddflow/internal/ledger"
	"cddflow/internal/platform/config"
	"cddflow/internal/platform/httpserver"
	"cddflow/internal/platform/logger"
	"cddflow/internal/platform/postgres"
	platformredis "cddflow/internal/platform/redis"
	"cddflow/internal/review"
	reviewhandler "cddflow/internal/review/handler"
	reviewmetrics "cddflow/internal/review/metrics"
	httptransport "cddflow/internal/transport/http"
	"cddflow/pkg/platform/middleware/auth"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := postgres.Open(bootCtx, cfg.Postgres.URL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(bootCtx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	healthChecks := map[string]func(ctx context.Context) error{}

	// Backend selection: Postgres when configured, then Redis, then memory
	// for local development. Idempotency only survives restarts with a
	// durable backend.
	var ledgerStore ledger.Store
	var auditStore audit.Store
	switch {
	case db != nil:
		pgLedger := ledger.NewPostgresStore(db)
		if err := pgLedger.EnsureSchema(bootCtx); err != nil {
			log.Error("ledger schema setup failed", "error", err)
			os.Exit(1)
		}
		pgAudit := audit.NewPostgresStore(db)
		if err := pgAudit.EnsureSchema(bootCtx); err != nil {
			log.Error("audit schema setup failed", "error", err)
			os.Exit(1)
		}
		ledgerStore = pgLedger
		auditStore = pgAudit
		healthChecks["postgres"] = db.PingContext
	case redisClient != nil:
		ledgerStore = ledger.NewRedisStore(redisClient.Client)
		auditStore = audit.NewMemoryStore()
		healthChecks["redis"] = redisClient.Health
		log.Warn("no postgres configured; audit trail is in-memory only")
	default:
		ledgerStore = ledger.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
		log.Warn("no durable backend configured; idempotency will not survive restarts")
	}

	serviceOpts := []review.Option{}
	if len(cfg.Kafka.Brokers) > 0 {
		stream, err := audit.NewKafkaPublisher(bootCtx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer stream.Close()
		serviceOpts = append(serviceOpts, review.WithStreamer(stream))
	}

	evidenceChannel := slack.New(cfg.Slack.WebhookURL)
	caseChannel := adapters.NewZendeskCaseCreator(
		zendesk.New(cfg.Zendesk.Subdomain, cfg.Zendesk.Email, cfg.Zendesk.APIToken))

	coordinator := dispatch.New(evidenceChannel, caseChannel, ledgerStore, log, dispatchmetrics.New())
	service := review.NewService(coordinator, ledgerStore, audit.NewPublisher(auditStore),
		log, reviewmetrics.New(), serviceOpts...)

	var validator auth.Validator
	if cfg.Auth.JWTSigningKey != "" {
		validator = auth.NewHMACValidator(cfg.Auth.JWTSigningKey)
	} else {
		log.Warn("CDDFLOW_JWT_SIGNING_KEY not set; review API is unauthenticated")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Review:        reviewhandler.New(service, log),
		AuthValidator: validator,
		HealthChecks:  healthChecks,
		Logger:        log,
	})

	sweeper := ledger.NewSweeper(ledgerStore, cfg.Sweeper.PendingTimeout, cfg.Sweeper.Interval, log)
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("ledger sweeper stopped", "error", err)
		}
	}()

	srv := httpserver.New(cfg.Server, router)

	log.Info("starting cddflow", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

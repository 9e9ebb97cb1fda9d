// Package main is the entry point for the jobrelay worker service.
// One process hosts both sides of the relay: the operator API that
// enqueues jobs with the push-delivery provider, and the worker
// endpoints the provider delivers those jobs back to.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobrelay/internal/billing"
	"jobrelay/internal/config"
	"jobrelay/internal/idempotency"
	"jobrelay/internal/jobs"
	"jobrelay/internal/logger"
	"jobrelay/internal/notify"
	"jobrelay/internal/observability"
	"jobrelay/internal/provider"
	"jobrelay/internal/reports"
	"jobrelay/internal/server"
	"jobrelay/internal/server/handlers"
	"jobrelay/internal/signature"
	"jobrelay/internal/store"
	"jobrelay/internal/store/postgres"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: env vars only)")
	flag.Parse()

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.NewAt(cfg.LogLevel)

	// Setup Database
	ctx := context.Background()
	st, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer st.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(st.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "jobrelay", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Use an Observable Gauge (Async) that queries the DB only when scraped.
	meter := otel.Meter("jobrelay")
	_, err = meter.Int64ObservableGauge("jobrelay.executions.pending",
		metric.WithDescription("Executions accepted by the provider but not yet delivered"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := st.CountByStatus(ctx, store.StatusPending)
			if err != nil {
				log.Printf("Failed to count pending executions: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register pending executions metric: %v", err)
	}

	// Signing keys. Fingerprints let operators confirm which keys this
	// instance holds without logging the keys themselves.
	verifier, err := signature.NewVerifier(cfg.SigningKeyCurrent, cfg.SigningKeyNext)
	if err != nil {
		log.Fatalf("Failed to build signature verifier: %v", err)
	}
	log.Printf("Verifying deliveries with key %s", signature.Fingerprint(cfg.SigningKeyCurrent))
	if cfg.SigningKeyNext != "" {
		log.Printf("Also accepting rotation key %s", signature.Fingerprint(cfg.SigningKeyNext))
	}

	// Job registry and the enqueue path
	registry, err := jobs.NewRegistry(jobs.DefaultConfigs()...)
	if err != nil {
		log.Fatalf("Failed to build job registry: %v", err)
	}
	client := provider.NewHTTPClient(cfg.ProviderURL, cfg.ProviderToken,
		provider.WithTimeout(cfg.ProviderTimeout),
	)
	dispatcher := jobs.NewDispatcher(registry, st, client, cfg.WorkerBaseURL, appLogger)

	// Idempotency guard. Redis when configured, otherwise in-process.
	var guard idempotency.Guard
	if cfg.RedisURL != "" {
		rdb, err := idempotency.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		guard = idempotency.NewRedis(rdb)
		log.Println("Using Redis idempotency guard")
	} else {
		guard = idempotency.NewMemory()
		log.Println("Using in-memory idempotency guard (single instance only)")
	}

	// Domain services behind the worker endpoints. The log-backed mailer,
	// processor, and generator are stand-ins a deployment swaps for real
	// integrations.
	notifySvc := notify.NewService(dispatcher, notify.NewLogMailer(appLogger), guard, appLogger)
	billingSvc := billing.NewService(dispatcher, billing.NewLogProcessor(appLogger), guard, appLogger)
	reportsSvc := reports.NewService(dispatcher, reports.NewLogGenerator(appLogger), guard, appLogger)

	deps := jobs.WorkerDeps{
		Store:    st,
		Verifier: verifier,
		Registry: registry,
		Logger:   appLogger,
	}

	emailWorker, err := jobs.NewWorkerHandler(deps, notifySvc.Handler())
	if err != nil {
		log.Fatalf("Failed to build email worker: %v", err)
	}
	webhookWorker, err := jobs.NewWorkerHandler(deps, billingSvc.Handler())
	if err != nil {
		log.Fatalf("Failed to build webhook worker: %v", err)
	}
	reportWorker, err := jobs.NewWorkerHandler(deps, reportsSvc.Handler())
	if err != nil {
		log.Fatalf("Failed to build report worker: %v", err)
	}

	endpointFor := func(t jobs.JobType) string {
		jobCfg, err := registry.Config(t)
		if err != nil {
			log.Fatalf("Job type %s not registered: %v", t, err)
		}
		return jobCfg.Endpoint
	}
	workers := map[string]http.Handler{
		endpointFor(jobs.TypeSendEmail):      emailWorker,
		endpointFor(jobs.TypeProcessWebhook): webhookWorker,
		endpointFor(jobs.TypeGenerateReport): reportWorker,
	}

	// Start Server
	h := handlers.New(st, dispatcher, registry, appLogger)
	srv := server.New(cfg.Addr(), server.Deps{
		Handlers:     h,
		Workers:      workers,
		Metrics:      metricsHandler,
		OpsToken:     cfg.OpsToken,
		OpsRateLimit: cfg.OpsRateLimit,
		OpsRateBurst: cfg.OpsRateBurst,
		Logger:       appLogger,
	})

	go func() {
		log.Printf("JobRelay worker starting on %s", cfg.Addr())
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"shc-verifier/internal/audit"
	"shc-verifier/internal/directory"
	"shc-verifier/internal/notify"
	"shc-verifier/internal/platform/config"
	"shc-verifier/internal/platform/database"
	"shc-verifier/internal/platform/httpserver"
	"shc-verifier/internal/platform/kafka"
	"shc-verifier/internal/platform/kafka/producer"
	"shc-verifier/internal/platform/logger"
	platformredis "shc-verifier/internal/platform/redis"
	"shc-verifier/internal/shc"
	httptransport "shc-verifier/internal/transport/http"
	"shc-verifier/internal/verification"
	"shc-verifier/internal/verification/handler"
	vmetrics "shc-verifier/internal/verification/metrics"
	"shc-verifier/internal/verification/tracer"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing shc-verifier",
		"addr", cfg.Addr,
		"directory_url", cfg.Directory.URL,
	)

	pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close() //nolint:errcheck // shutdown path

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	var providerOpts []directory.ProviderOption
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
		providerOpts = append(providerOpts,
			directory.WithCache(directory.NewRedisCache(redisClient, cfg.Directory.CacheTTL)))
	}
	provider := directory.NewProvider(cfg.Directory, log, providerOpts...)

	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.Directory.FetchTimeout+5*time.Second)
	if err := provider.Refresh(startCtx); err != nil {
		// The server still starts; requests fail closed until a snapshot lands.
		log.Warn("initial trust directory refresh failed", "error", err)
	}
	startCancel()

	var auditStore audit.Store
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err := producer.New(kafka.DefaultProducerConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		auditStore = audit.NewKafkaStore(kafkaProducer, cfg.Kafka.AuditTopic)
	} else {
		log.Warn("kafka not configured, audit events stay in memory")
		auditStore = audit.NewInMemoryStore()
	}
	auditor := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	mailer, err := notify.NewMailer(cfg.Mail)
	if err != nil {
		log.Error("mailer init failed", "error", err)
		os.Exit(1)
	}

	service := verification.New(
		&verification.DirectoryVerifier{Provider: provider, Verifier: shc.NewVerifier()},
		verification.NewPostgres(pool.DB()),
		mailer,
		auditor,
		verification.WithMetrics(vmetrics.New()),
		verification.WithTracer(tracer.NewOTel()),
		verification.WithLogger(log),
	)

	checks := map[string]httptransport.HealthChecker{
		"database":  pool,
		"directory": provider,
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	router := httptransport.NewRouter(handler.New(service, log), checks, log)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return provider.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if redisClient != nil {
		g.Go(func() error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	// Let queued review notifications drain before the process exits.
	service.Wait()
	log.Info("server stopped")
}

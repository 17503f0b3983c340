// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cleanmatch-workers/internal/common/aws"
	"cleanmatch-workers/internal/common/camunda"
	"cleanmatch-workers/internal/common/config"
	"cleanmatch-workers/internal/common/database"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/observability"
	"cleanmatch-workers/internal/directory"
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/pkg/registry"

	cpa "cleanmatch-workers/internal/workers/matching/check-provider-availability"
	fcp "cleanmatch-workers/internal/workers/matching/fetch-candidate-pool"
	nnm "cleanmatch-workers/internal/workers/matching/notify-no-match"
	rc "cleanmatch-workers/internal/workers/matching/rank-candidates"
	rps "cleanmatch-workers/internal/workers/matching/reserve-provider-slot"
	vbr "cleanmatch-workers/internal/workers/matching/validate-booking-request"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName)
	defer obs.Shutdown()
	if cfg.Observability.Tracing.Enabled {
		if err := obs.EnableTracing(cfg.Observability.Tracing.JaegerEndpoint, cfg.Observability.Tracing.SampleRatio); err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		}
	}

	ctx := context.Background()

	// --- Zeebe ---
	camundaClient, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch (optional) ---
	var search *elasticsearch.Client
	if cfg.Database.Elasticsearch.Enabled() {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, candidate pools will come from postgres", zap.Error(err))
		} else {
			search = esClient.Client
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Matching engine and registry ---
	engine, err := matching.NewEngine(cfg.Matching)
	if err != nil {
		zapLog.Fatal("invalid matching configuration", zap.Error(err))
	}

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.String("path", cfg.Registry.Path), zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	bookingSchema, err := reg.InputSchema(vbr.TaskType)
	if err != nil {
		zapLog.Fatal("booking request schema unavailable", zap.Error(err))
	}

	dir := directory.New(pg.DB, search, redis.Client, directory.ConfigFrom(cfg), log)

	// --- AWS notification channels ---
	var (
		emailer   nnm.Emailer
		publisher nnm.Publisher
	)
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SNS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("AWS config unavailable, no-match notifications disabled", zap.Error(err))
		} else {
			if cfg.Notifications.Email.Enabled {
				emailer = aws.NewSESClient(awsCfg)
			}
			if cfg.Notifications.SNS.Enabled {
				publisher = aws.NewSNSClient(awsCfg)
			}
		}
	}

	// --- Workers ---
	group := camunda.NewWorkerGroup(camundaClient.Zeebe(), zapLog)
	start := func(taskType string, handle worker.JobHandler) {
		group.Start(taskType, config.GetWorkerConfig(cfg, taskType), instrument(obs, taskType, handle))
	}

	start(vbr.TaskType, vbr.NewHandler(vbr.LoadConfig(cfg), bookingSchema, engine.Validator(), log).Handle)
	start(fcp.TaskType, fcp.NewHandler(fcp.LoadConfig(cfg), dir, log).Handle)
	start(rc.TaskType, rc.NewHandler(rc.LoadConfig(cfg), engine, log).Handle)
	start(cpa.TaskType, cpa.NewHandler(cpa.LoadConfig(cfg), dir, log).Handle)
	start(rps.TaskType, rps.NewHandler(rps.LoadConfig(cfg), dir, redis.Client, log).Handle)
	start(nnm.TaskType, nnm.NewHandler(nnm.LoadConfig(cfg), emailer, publisher, log).Handle)

	zapLog.Info("workers registered", zap.Strings("taskTypes", group.TaskTypes()))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"zeebe": "ok", "postgres": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := camundaClient.HealthCheck(checkCtx); err != nil {
			checks["zeebe"], status = err.Error(), http.StatusServiceUnavailable
		}
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"], status = err.Error(), http.StatusServiceUnavailable
		}
		if err := redis.Ping(checkCtx); err != nil {
			checks["redis"], status = err.Error(), http.StatusServiceUnavailable
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		writeStatus(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	group.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// instrument records every handled job on the OpenTelemetry meter. Outcome
// counters live in the handlers themselves.
func instrument(obs *observability.Observability, taskType string, handle worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		started := time.Now()
		handle(client, job)
		obs.RecordJobProcessed(context.Background(), taskType, "handled")
		obs.RecordJobDuration(context.Background(), taskType, time.Since(started), "handled")
	}
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

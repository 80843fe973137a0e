package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/verdantis/fulfillment/internal/fulfillment"
	healthcheck "github.com/verdantis/fulfillment/internal/health"
	"github.com/verdantis/fulfillment/internal/messaging/kafka"
	"github.com/verdantis/fulfillment/internal/metrics"
	"github.com/verdantis/fulfillment/internal/service/directory"
	idemworker "github.com/verdantis/fulfillment/internal/service/idempotency"
	"github.com/verdantis/fulfillment/internal/service/inventory"
	outboxworker "github.com/verdantis/fulfillment/internal/service/outbox"
	"github.com/verdantis/fulfillment/internal/service/payment"
	transporthttp "github.com/verdantis/fulfillment/internal/transport/http"
	"github.com/verdantis/fulfillment/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает зависимости и держит сервис до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close storage")
		}
	}()

	// Kafka опционален: без брокеров события остаются в outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	// NOTE: Using mock services for development/demo purposes
	// In production, replace with real inventory and payment service clients
	inventorySvc := inventory.NewMockService()
	paymentSvc := payment.NewMockService()
	orgDirectory := directory.NewStaticDirectory(nil)

	fulfillmentMetrics := metrics.NewFulfillmentMetrics()
	dispatcher := fulfillment.NewDispatcher(inventorySvc, paymentSvc, logger)
	engine := fulfillment.NewEngine(storage.Orders, dispatcher, storage.Outbox, orgDirectory, fulfillmentMetrics, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", storage.Ping))

	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outboxworker.NewWorker(
			storage.Outbox,
			publisher,
			outboxworker.WithLogger(logger.WithField("component", "outbox_worker")),
			outboxworker.WithDLQPublisher(dlqPublisher),
			outboxworker.WithPollInterval(cfg.OutboxPollInterval),
			outboxworker.WithBatchSize(cfg.OutboxBatchSize),
			outboxworker.WithMaxAttempts(cfg.OutboxMaxAttempts),
		)
		go worker.Run(workersCtx)
	} else {
		logger.Info("Kafka brokers are not configured, outbox publishing is disabled")
	}

	cleanupWorker := idemworker.NewCleanupWorker(
		storage.Idempotency,
		idemworker.WithLogger(logger.WithField("component", "idempotency_cleanup_worker")),
		idemworker.WithInterval(cfg.IdempotencyCleanupInterval),
	)
	go cleanupWorker.Run(workersCtx)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiServer := transporthttp.NewServer(
		cfg.HTTPAddr,
		engine,
		storage.Idempotency,
		healthHandler,
		logger.WithField("component", "http_server"),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		stopWorkers()
		shutdownServer(apiServer, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		stopWorkers()
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func shutdownServer(srv *transporthttp.Server, logger *log.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("HTTP server shutdown with error")
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("metrics are available at %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("Metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("Metrics shutdown with error")
	}
}

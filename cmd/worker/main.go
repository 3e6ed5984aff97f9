package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/sunabot/internal/bootstrap"
	"github.com/kirillkom/sunabot/internal/config"
	"github.com/kirillkom/sunabot/internal/core/domain"
	"github.com/kirillkom/sunabot/internal/observability/logging"
	"github.com/kirillkom/sunabot/internal/observability/metrics"
)

// The worker consumes consultation analytics events and turns them into
// metrics and structured log lines.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := bootstrap.NewEventBus(cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = bus.SubscribeConsultations(ctx, func(handlerCtx context.Context, event domain.ConsultationEvent) error {
		started := time.Now()
		workerMetrics.StartEvent()
		workerMetrics.ObserveEventLag(started.Sub(event.OccurredAt))

		logger.InfoContext(handlerCtx, "consultation_recorded",
			"event_id", event.ID,
			"category", event.Category,
			"processing_type", event.ProcessingType,
			"backend", event.Backend,
			"ai_generated", event.IsAIGenerated,
			"degraded", event.Degraded,
			"latency_ms", event.LatencyMillis,
		)
		workerMetrics.FinishEvent(event, time.Since(started), nil)
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

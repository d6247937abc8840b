package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PoolCast/internal/usecase"
	pkgch "PoolCast/pkg/clickhouse"
	"PoolCast/pkg/config"
	xhttp "PoolCast/pkg/http"
	pkgkafka "PoolCast/pkg/kafka"
	applogger "PoolCast/pkg/logger"
	"PoolCast/pkg/queue"
)

// App encapsulates the application lifecycle: HTTP server, Kafka
// ingest, queue workers and the background tickers.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Handler
	consumer   *pkgkafka.Consumer
	jobs       *queue.RedisQueue
	producer   *pkgkafka.Producer
	validator  *usecase.ValidationTracker
	scheduler  *usecase.RetrainingScheduler
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates the App with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	jobs *queue.RedisQueue,
	producer *pkgkafka.Producer,
	validator *usecase.ValidationTracker,
	scheduler *usecase.RetrainingScheduler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		handler:   handler,
		consumer:  consumer,
		jobs:      jobs,
		producer:  producer,
		validator: validator,
		scheduler: scheduler,
		chClient:  chClient,
	}
}

// Run starts every component and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ship deduplicated error logs to Kafka when a producer exists.
	if a.producer != nil {
		a.l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "poolcast.logs.errors",
			Publisher:      a.producer,
		})
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.jobs != nil && a.cfg.Queue.Enabled {
		if err := a.jobs.Start(); err != nil {
			a.l.Error("job queue start error", applogger.Error(err))
			return err
		}
		a.l.Info("job queue started", applogger.Int("workers", a.cfg.Queue.Workers))
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started",
			applogger.String("topic", usecase.TopicObservations),
			applogger.String("group", a.cfg.Kafka.Consumer.GroupID))
	}

	go a.validationLoop(ctx)
	go a.retrainingLoop(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// validationLoop matches due predictions with realized prices on a
// fixed interval.
func (a *App) validationLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Validation.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, a.cfg.Validation.Interval)
			result, err := a.validator.ValidatePredictions(runCtx)
			cancel()
			if err != nil {
				a.l.Error("scheduled validation error", applogger.Error(err))
				continue
			}
			if result.Validated > 0 {
				a.l.Info("scheduled validation pass",
					applogger.Int("validated", result.Validated),
					applogger.Int("deferred", result.Deferred))
			}
		}
	}
}

// retrainingLoop checks the retraining triggers on a fixed interval.
func (a *App) retrainingLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Retraining.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Hour)
			result, err := a.scheduler.CheckAndRetrain(runCtx)
			cancel()
			if err != nil {
				a.l.Error("scheduled retraining check error", applogger.Error(err))
				continue
			}
			a.l.Info("scheduled retraining check",
				applogger.Bool("retrained", result.RetrainingCompleted),
				applogger.String("reason", result.Reason))
		}
	}
}

// shutdown stops components in reverse dependency order.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.producer != nil {
		a.l.RemoveCollector()
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}

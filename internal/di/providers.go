package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"PoolCast/internal/domain/repository"
	"PoolCast/internal/domain/service"
	"PoolCast/internal/handler/api"
	internalrepo "PoolCast/internal/repository"
	"PoolCast/internal/service/fuel"
	"PoolCast/internal/services/inference"
	"PoolCast/internal/services/quality"
	"PoolCast/internal/usecase"
	"PoolCast/pkg/cache"
	pkgch "PoolCast/pkg/clickhouse"
	"PoolCast/pkg/config"
	pkgkafka "PoolCast/pkg/kafka"
	applogger "PoolCast/pkg/logger"
	"PoolCast/pkg/metrics"
	"PoolCast/pkg/queue"
	"PoolCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client and initializes
// the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, schemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// schemaStatements returns the DDL for every pipeline table.
// observations and features are ReplacingMergeTree so replayed writes
// converge; everything else is append-only.
func schemaStatements(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.observations (
            ts DateTime,
            price Nullable(Float64),
            demand_mw Nullable(Float64),
            gas_mw Nullable(Float64),
            wind_mw Nullable(Float64),
            solar_mw Nullable(Float64),
            hydro_mw Nullable(Float64),
            coal_mw Nullable(Float64),
            temp_c Nullable(Float64),
            wind_kmh Nullable(Float64),
            is_valid UInt8
        ) ENGINE = ReplacingMergeTree ORDER BY ts`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.features (
            ts DateTime,
            price Nullable(Float64),
            lag_1h Nullable(Float64),
            lag_24h Nullable(Float64),
            lag_168h Nullable(Float64),
            roll_mean_3h Nullable(Float64),
            roll_std_3h Nullable(Float64),
            roll_mean_24h Nullable(Float64),
            roll_std_24h Nullable(Float64),
            volatility_24h Nullable(Float64),
            momentum_3h Nullable(Float64),
            gas_lag_1d Nullable(Float64),
            gas_lag_7d Nullable(Float64),
            gas_lag_30d Nullable(Float64),
            curtailment_mw Nullable(Float64),
            computed_at DateTime
        ) ENGINE = ReplacingMergeTree(computed_at) ORDER BY ts`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.predictions (
            prediction_id String,
            created_at DateTime,
            target_ts DateTime,
            horizon_hours Int32,
            predicted_price Float64,
            confidence_lower Float64,
            confidence_upper Float64,
            confidence_score Float64,
            model_version String,
            features_used Array(String)
        ) ENGINE = MergeTree ORDER BY (target_ts, created_at)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.prediction_validations (
            prediction_id String,
            validated_at DateTime
        ) ENGINE = ReplacingMergeTree ORDER BY prediction_id`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.accuracy_records (
            prediction_id String,
            target_ts DateTime,
            predicted_price Float64,
            actual_price Float64,
            absolute_error Float64,
            percent_error Float64,
            symmetric_percent_error Float64,
            horizon_hours Int32,
            within_interval UInt8,
            actual_regime LowCardinality(String),
            created_at DateTime
        ) ENGINE = MergeTree ORDER BY (target_ts, created_at)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.model_versions (
            version_id String,
            trained_at DateTime,
            hyperparameters String,
            feature_names Array(String),
            weights Array(Float64),
            intercept Float64,
            residual_std Float64,
            mae Float64,
            rmse Float64,
            smape Float64,
            r_squared Float64,
            training_records Int32
        ) ENGINE = MergeTree ORDER BY trained_at`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.cv_folds (
            run_id String,
            fold Int32,
            train_start DateTime,
            train_end DateTime,
            validation_start DateTime,
            validation_end DateTime,
            train_rows Int32,
            validation_rows Int32,
            mae Float64,
            rmse Float64,
            smape Float64,
            mape Float64
        ) ENGINE = MergeTree ORDER BY (run_id, fold)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.retraining_events (
            created_at DateTime,
            triggered UInt8,
            reason String,
            performance_before String,
            performance_after String,
            improvement Float64,
            duration_ms Int64
        ) ENGINE = MergeTree ORDER BY created_at`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.forecast_telemetry (
            created_at DateTime,
            horizon_hours Int32,
            duration_ms Int64,
            cache_hits Int32,
            cache_misses Int32,
            hit_rate_pct Float64,
            batch_count Int32,
            generated Int32
        ) ENGINE = MergeTree ORDER BY created_at`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.quality_reports (
            created_at DateTime,
            overall_score Float64,
            records Int32,
            report String
        ) ENGINE = MergeTree ORDER BY created_at`, db),
	}
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache backend named in config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
	}
	return cache.NewMemoryCache(), nil
}

// ProvideRedisClient creates the shared Redis connection for the job
// queue.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Cache.Redis.Host, cfg.Cache.Redis.Port),
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher adapts the producer; a nil producer means
// events are dropped.
func ProvideEventPublisher(producer *pkgkafka.Producer) usecase.EventPublisher {
	if producer == nil {
		return nil
	}
	return producer
}

// ProvideKafkaConsumer creates the observation ingest consumer, or nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// Store providers.

func ProvideObservationStore(ch *pkgch.Client, l *applogger.Logger) repository.ObservationStore {
	return internalrepo.NewCHObservationStore(ch, l)
}

func ProvideFeatureStore(ch *pkgch.Client, l *applogger.Logger) repository.FeatureStore {
	return internalrepo.NewCHFeatureStore(ch, l)
}

func ProvidePredictionStore(ch *pkgch.Client, l *applogger.Logger) repository.PredictionStore {
	return internalrepo.NewCHPredictionStore(ch, l)
}

func ProvideModelStore(ch *pkgch.Client, l *applogger.Logger) repository.ModelStore {
	return internalrepo.NewCHModelStore(ch, l)
}

func ProvideAccuracyStore(ch *pkgch.Client) repository.AccuracyStore {
	return internalrepo.NewCHAccuracyStore(ch)
}

func ProvideCVStore(ch *pkgch.Client) repository.CVStore {
	return internalrepo.NewCHCVStore(ch)
}

func ProvideRetrainingStore(ch *pkgch.Client) repository.RetrainingStore {
	return internalrepo.NewCHRetrainingStore(ch)
}

func ProvideTelemetryStore(ch *pkgch.Client) repository.TelemetryStore {
	return internalrepo.NewCHTelemetryStore(ch)
}

func ProvideQualityStore(ch *pkgch.Client) repository.QualityStore {
	return internalrepo.NewCHQualityStore(ch)
}

// Domain service providers.

func ProvideFuelSource(cfg *config.Config, l *applogger.Logger) fuel.PriceSource {
	return fuel.NewClient(fuel.Config{
		APIURL:   cfg.Fuel.APIURL,
		APIKey:   cfg.Fuel.APIKey,
		Timeout:  cfg.Fuel.Timeout,
		TokenTTL: cfg.Fuel.TokenTTL,
	}, l)
}

func ProvidePredictor() service.Predictor {
	return inference.NewRidgePredictor()
}

func ProvideQualityAnalyzer() *quality.Analyzer {
	return quality.NewAnalyzer()
}

// Usecase providers.

func ProvideFeatureCalculator(
	cfg *config.Config,
	obs repository.ObservationStore,
	feats repository.FeatureStore,
	fuelSource fuel.PriceSource,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.FeatureCalculator {
	return usecase.NewFeatureCalculator(obs, feats, fuelSource, m, l).
		Tune(cfg.Features.PageSize)
}

func ProvideForecaster(
	cfg *config.Config,
	preds repository.PredictionStore,
	feats repository.FeatureStore,
	modelStore repository.ModelStore,
	telemetry repository.TelemetryStore,
	predictor service.Predictor,
	cacheSvc cache.Service,
	events usecase.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Forecaster {
	return usecase.NewForecaster(preds, feats, modelStore, telemetry, predictor, cacheSvc, events, m, l).
		Tune(cfg.Forecast.CacheTTL, cfg.Forecast.BatchSize, cfg.Forecast.MaxHorizonHours)
}

func ProvideTrainer(
	cfg *config.Config,
	feats repository.FeatureStore,
	modelStore repository.ModelStore,
	predictor service.Predictor,
	cacheSvc cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Trainer {
	return usecase.NewTrainer(feats, modelStore, predictor, cacheSvc, m, l).
		Tune(cfg.Retraining.MinTrainingRows)
}

func ProvideCrossValidator(
	feats repository.FeatureStore,
	cv repository.CVStore,
	predictor service.Predictor,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CrossValidator {
	return usecase.NewCrossValidator(feats, cv, predictor, m, l)
}

func ProvideValidationTracker(
	cfg *config.Config,
	preds repository.PredictionStore,
	obs repository.ObservationStore,
	accuracy repository.AccuracyStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ValidationTracker {
	return usecase.NewValidationTracker(preds, obs, accuracy, m, l).
		Tune(cfg.Validation.MatchTolerance, cfg.Validation.BatchLimit,
			cfg.Validation.SpikeThreshold, cfg.Validation.ElevatedThreshold)
}

func ProvideQualityAuditor(
	obs repository.ObservationStore,
	feats repository.FeatureStore,
	reports repository.QualityStore,
	analyzer *quality.Analyzer,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.QualityAuditor {
	return usecase.NewQualityAuditor(obs, feats, reports, analyzer, m, l)
}

func ProvideRetrainingScheduler(
	cfg *config.Config,
	trainer *usecase.Trainer,
	modelStore repository.ModelStore,
	accuracy repository.AccuracyStore,
	qualityStore repository.QualityStore,
	retraining repository.RetrainingStore,
	events usecase.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.RetrainingScheduler {
	return usecase.NewRetrainingScheduler(trainer, modelStore, accuracy, qualityStore, retraining, events, m, l).
		Tune(cfg.Retraining.SMAPEThreshold, cfg.Retraining.QualityThreshold,
			cfg.Retraining.MaxModelAge, cfg.Retraining.AccuracyWindow)
}

func ProvideIngestHandler(
	obs repository.ObservationStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ObservationIngestHandler {
	return usecase.NewObservationIngestHandler(obs, m, l)
}

// ProvideJobQueue creates the Redis-backed job queue with the
// background jobs registered. Workers start in App.Run.
func ProvideJobQueue(
	cfg *config.Config,
	client *redis.Client,
	scheduler *usecase.RetrainingScheduler,
	l *applogger.Logger,
) *queue.RedisQueue {
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, client, queue.ModeProducerConsumer)
	q.RegisterJobs([]queue.Job{
		usecase.NewHyperparameterSearchJob(scheduler, l),
		usecase.NewRetrainingCheckJob(scheduler, l),
	})
	return q
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	forecaster *usecase.Forecaster,
	trainer *usecase.Trainer,
	cv *usecase.CrossValidator,
	validator *usecase.ValidationTracker,
	auditor *usecase.QualityAuditor,
	features *usecase.FeatureCalculator,
	scheduler *usecase.RetrainingScheduler,
	obs repository.ObservationStore,
	jobs *queue.RedisQueue,
	ch *pkgch.Client,
) *api.PipelineEchoHandler {
	return api.NewPipelineEchoHandler(l, forecaster, trainer, cv, validator, auditor,
		features, scheduler, obs, jobs, ch)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.PipelineEchoHandler,
	consumer *pkgkafka.Consumer,
	ingest *usecase.ObservationIngestHandler,
	jobs *queue.RedisQueue,
	producer *pkgkafka.Producer,
	validator *usecase.ValidationTracker,
	scheduler *usecase.RetrainingScheduler,
	ch *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
		consumer.RegisterHandler(ingest)
	}
	return server.New(cfg, l, handler, consumer, jobs, producer, validator, scheduler, ch)
}

package api

import (
	"context"
	"time"

	"PoolCast/internal/domain/models"
	"PoolCast/internal/domain/repository"
	"PoolCast/internal/services/inference"
	"PoolCast/internal/usecase"
	xhttp "PoolCast/pkg/http"
	xlogger "PoolCast/pkg/logger"
	"PoolCast/pkg/queue"
	"PoolCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports dependency liveness for /healthz.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// PipelineEchoHandler exposes the forecasting pipeline over HTTP.
type PipelineEchoHandler struct {
	logger     *xlogger.Logger
	forecaster *usecase.Forecaster
	trainer    *usecase.Trainer
	cv         *usecase.CrossValidator
	validator  *usecase.ValidationTracker
	quality    *usecase.QualityAuditor
	features   *usecase.FeatureCalculator
	scheduler  *usecase.RetrainingScheduler
	obs        repository.ObservationStore
	jobs       queue.QueueService
	health     HealthChecker
}

func NewPipelineEchoHandler(
	logger *xlogger.Logger,
	forecaster *usecase.Forecaster,
	trainer *usecase.Trainer,
	cv *usecase.CrossValidator,
	validator *usecase.ValidationTracker,
	quality *usecase.QualityAuditor,
	features *usecase.FeatureCalculator,
	scheduler *usecase.RetrainingScheduler,
	obs repository.ObservationStore,
	jobs queue.QueueService,
	health HealthChecker,
) *PipelineEchoHandler {
	return &PipelineEchoHandler{
		logger:     logger,
		forecaster: forecaster,
		trainer:    trainer,
		cv:         cv,
		validator:  validator,
		quality:    quality,
		features:   features,
		scheduler:  scheduler,
		obs:        obs,
		jobs:       jobs,
		health:     health,
	}
}

func (h *PipelineEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/observations", h.Observations)
	g.POST("/train", h.Train)
	g.POST("/cv", h.CrossValidate)
	g.POST("/validate", h.Validate)
	g.POST("/quality", h.Quality)
	g.POST("/features", h.Features)
	g.POST("/retraining/check", h.RetrainingCheck)
	g.POST("/retraining/search", h.RetrainingSearch)
}

func (h *PipelineEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	horizon, err := util.ParseHorizon(req.Horizon)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("horizon").WithError(err))
	}

	res, err := h.forecaster.GetForecast(c.Request().Context(), horizon, req.ForceRefresh)
	if err != nil {
		h.logger.Error("forecast usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Observations(c echo.Context) error {
	req := &models.ObservationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, ok := util.ParseTime(req.From)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from"))
	}
	to, ok := util.ParseTime(req.To)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to"))
	}
	if !from.Before(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("range").
			WithParam("hint", "from must be before to"))
	}

	rows, err := h.obs.ListRange(c.Request().Context(), from, to)
	if err != nil {
		h.logger.Error("observations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *PipelineEchoHandler) Train(c echo.Context) error {
	res, err := h.trainer.TrainModel(c.Request().Context(),
		map[string]float64{"lambda": inference.DefaultLambda})
	if err != nil {
		h.logger.Error("training usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) CrossValidate(c echo.Context) error {
	req := &models.CVRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.cv.RunCV(c.Request().Context(), req.NumFolds, req.ValidationWindowHours,
		map[string]float64{"lambda": inference.DefaultLambda})
	if err != nil {
		h.logger.Error("cv usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Validate(c echo.Context) error {
	res, err := h.validator.ValidatePredictions(c.Request().Context())
	if err != nil {
		h.logger.Error("validation usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Quality(c echo.Context) error {
	res, err := h.quality.AnalyzeQuality(c.Request().Context())
	if err != nil {
		h.logger.Error("quality usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineEchoHandler) Features(c echo.Context) error {
	n, err := h.features.CalculateFeatures(c.Request().Context())
	if err != nil {
		h.logger.Error("feature usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{"features_calculated": n})
}

func (h *PipelineEchoHandler) RetrainingCheck(c echo.Context) error {
	res, err := h.scheduler.CheckAndRetrain(c.Request().Context())
	if err != nil {
		h.logger.Error("retraining usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// RetrainingSearch enqueues the search; each trial is a full training
// run, too slow for the request path.
func (h *PipelineEchoHandler) RetrainingSearch(c echo.Context) error {
	req := &models.SearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	payload := usecase.SearchJobPayload{Lambdas: req.Lambdas}
	if err := h.jobs.PublishMessage(c.Request().Context(),
		usecase.MsgTypeHyperparameterSearch, payload); err != nil {
		h.logger.Error("search enqueue error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.AcceptedResponse(c, map[string]string{"status": "queued"})
}

func (h *PipelineEchoHandler) Healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if h.health != nil {
		if err := h.health.Health(ctx); err != nil {
			h.logger.Error("health check failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("storage").WithError(err))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

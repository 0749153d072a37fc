// Package handlers contains the HTTP handler implementations for the soilcast API.
//
// This file implements the Forecast handler. It covers:
//   - Combined forecast runs (GET /v1/forecasts/predict)
//   - Historical series retrieval (GET /v1/forecasts/historical/{parameter})
//   - Store statistics (GET /v1/forecasts/data-info)
//   - Model registry status (GET /v1/forecasts/model-status)
//   - Model and scaler refresh (POST /v1/forecasts/sync)
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"soilcast/internal/core"
	"soilcast/internal/metrics"
	"soilcast/internal/types"
)

// ForecastServiceInterface defines the service contract for the forecast
// handler. Matches the forecasts.Service methods but is defined locally to
// avoid tight coupling per the handler injection pattern.
type ForecastServiceInterface interface {
	RunAll(ctx context.Context) (*types.CombinedReport, error)
	HistoricalSeries(ctx context.Context, p types.Parameter, limit int) (*types.HistoricalSeries, error)
	SummaryStatistics(ctx context.Context) (map[types.Parameter]types.ParameterSummary, error)
	RefreshScalers(ctx context.Context) (int, error)
}

// ModelRegistryInterface is the registry surface the handler needs for status
// reporting and reloads.
type ModelRegistryInterface interface {
	Handles() map[types.Parameter]types.ModelHandle
	LoadedCount() int
	LoadAll() int
}

// ForecastHandler maps HTTP requests to the forecast service.
type ForecastHandler struct {
	service   ForecastServiceInterface
	registry  ModelRegistryInterface
	validator *core.Validator
	metrics   metrics.Collector
	logger    *slog.Logger

	// defaultHistoricalLimit is the tail size used when the limit query
	// parameter is absent.
	defaultHistoricalLimit int
}

// NewForecastHandler creates a new ForecastHandler with the provided
// dependencies.
func NewForecastHandler(
	svc ForecastServiceInterface,
	registry ModelRegistryInterface,
	val *core.Validator,
	collector metrics.Collector,
	logger *slog.Logger,
	defaultHistoricalLimit int,
) *ForecastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	if defaultHistoricalLimit <= 0 {
		defaultHistoricalLimit = 100
	}
	return &ForecastHandler{
		service:                svc,
		registry:               registry,
		validator:              val,
		metrics:                collector,
		logger:                 logger,
		defaultHistoricalLimit: defaultHistoricalLimit,
	}
}

// RegisterRoutes mounts the forecast endpoints onto the mux.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/predict", h.HandlePredict)
	r.Get("/historical/{parameter}", h.HandleHistorical)
	r.Get("/data-info", h.HandleDataInfo)
	r.Get("/model-status", h.HandleModelStatus)
	r.Post("/sync", h.HandleSync)
}

// HandlePredict handles GET /v1/forecasts/predict.
//
//  1. Run the full per-parameter forecast pipeline.
//  2. Record run latency and per-parameter outcome metrics.
//  3. Return the combined report; individual parameter failures stay inside
//     their slots and never fail the request.
func (h *ForecastHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	report, err := h.service.RunAll(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.metrics.RecordForecastRun(r.Context(), time.Since(start))
	for p, outcome := range report.Predictions {
		result := metrics.ResultSuccess
		if outcome.Err != nil {
			result = metrics.ResultError
		}
		h.metrics.RecordParameterOutcome(r.Context(), p, result)
	}

	core.JSON(w, r, http.StatusOK, report)
}

// HandleHistorical handles GET /v1/forecasts/historical/{parameter}.
// Query params: limit (optional positive integer, defaults to the configured
// historical tail size).
func (h *ForecastHandler) HandleHistorical(w http.ResponseWriter, r *http.Request) {
	param, ok := types.ParseParameter(chi.URLParam(r, "parameter"))
	if !ok {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeNotFoundParameter,
			"unknown parameter: "+chi.URLParam(r, "parameter"),
			nil,
		))
		return
	}

	limit := h.defaultHistoricalLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidLimit,
				"limit must be a positive integer",
				nil,
			))
			return
		}
		limit = parsed
	}

	series, err := h.service.HistoricalSeries(r.Context(), param, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, series)
}

// dataInfoResponse is the body for GET /v1/forecasts/data-info.
type dataInfoResponse struct {
	Success       bool                                      `json:"success"`
	InputSteps    int                                       `json:"input_steps"`
	ForecastSteps int                                       `json:"forecast_steps"`
	Parameters    map[types.Parameter]types.ParameterSummary `json:"parameters"`
}

// HandleDataInfo handles GET /v1/forecasts/data-info. Returns per-parameter
// descriptive statistics over the reference sample.
func (h *ForecastHandler) HandleDataInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.SummaryStatistics(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, dataInfoResponse{
		Success:       true,
		InputSteps:    types.InputSteps,
		ForecastSteps: types.ForecastSteps,
		Parameters:    stats,
	})
}

// modelStatusResponse is the body for GET /v1/forecasts/model-status.
type modelStatusResponse struct {
	Success     bool                                  `json:"success"`
	LoadedCount int                                   `json:"loaded_count"`
	TotalCount  int                                   `json:"total_count"`
	Models      map[types.Parameter]types.ModelHandle `json:"models"`
}

// HandleModelStatus handles GET /v1/forecasts/model-status. Reports the
// lifecycle state of every parameter's model slot.
func (h *ForecastHandler) HandleModelStatus(w http.ResponseWriter, r *http.Request) {
	handles := h.registry.Handles()
	core.JSON(w, r, http.StatusOK, modelStatusResponse{
		Success:     true,
		LoadedCount: h.registry.LoadedCount(),
		TotalCount:  len(types.AllParameters()),
		Models:      handles,
	})
}

// syncResponse is the body for POST /v1/forecasts/sync.
type syncResponse struct {
	Success       bool `json:"success"`
	ModelsLoaded  int  `json:"models_loaded"`
	ScalersFitted int  `json:"scalers_fitted"`
}

// HandleSync handles POST /v1/forecasts/sync. Reloads model artifacts from
// disk and refits scalers from a fresh reference sample. Model reload runs
// first so refitted scalers pair with the artifacts that will serve them.
func (h *ForecastHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	loaded := h.registry.LoadAll()
	h.metrics.RecordModelsLoaded(r.Context(), loaded)

	fitted, err := h.service.RefreshScalers(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("sync completed", "models_loaded", loaded, "scalers_fitted", fitted)

	core.JSON(w, r, http.StatusOK, syncResponse{
		Success:       true,
		ModelsLoaded:  loaded,
		ScalersFitted: fitted,
	})
}

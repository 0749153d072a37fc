package forecasts

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"soilcast/internal/types"
)

// parameterConcurrency bounds the errgroup fan-out. The parameter set is
// fixed at four; the limit exists so a future parameter addition cannot
// silently unbound the worker count.
const parameterConcurrency = 4

// RegistryReader is the registry surface the orchestrator needs beyond model
// resolution.
type RegistryReader interface {
	ModelProvider
	IsReady() bool
}

// Service is the forecast orchestrator. It borrows the scaler store and
// model registry (owned by the process, injected at construction) and runs
// the per-parameter pipeline with strict fault isolation.
type Service struct {
	source   types.SensorSource
	scalers  *ScalerStore
	registry RegistryReader
	logger   *slog.Logger
	clock    types.Clock

	fetchLimit     int
	referenceLimit int
}

// NewService creates the orchestrator. fetchLimit is the per-request row
// budget (window + horizon + slack); referenceLimit is the larger sample used
// for scaler fitting and summary statistics.
func NewService(
	source types.SensorSource,
	scalers *ScalerStore,
	registry RegistryReader,
	logger *slog.Logger,
	clock types.Clock,
	fetchLimit, referenceLimit int,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Service{
		source:         source,
		scalers:        scalers,
		registry:       registry,
		logger:         logger,
		clock:          clock,
		fetchLimit:     fetchLimit,
		referenceLimit: referenceLimit,
	}
}

// RunAll fetches the latest readings once and runs every parameter's
// predictor over them. One parameter's failure never prevents the others
// from completing: each slot in the report holds either a result or that
// parameter's error. Only total absence of upstream data, an unreachable
// source, or an empty model registry fail the whole call.
func (s *Service) RunAll(ctx context.Context) (*types.CombinedReport, error) {
	if !s.registry.IsReady() {
		return nil, types.NewAppError(types.ErrCodeNoModelsLoaded,
			"no models loaded; check model artifacts", nil)
	}

	readings, err := s.source.FetchReadings(ctx, s.fetchLimit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamData,
			"sensor store unreachable", err)
	}
	if len(readings) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamNoRows,
			"sensor store returned no rows", nil)
	}

	var (
		mu       sync.Mutex
		outcomes = make(map[types.Parameter]types.ParameterOutcome, len(types.AllParameters()))
	)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(parameterConcurrency)

	for _, p := range types.AllParameters() {
		spec, _ := types.SpecFor(p)

		g.Go(func() error {
			predictor := NewParameterPredictor(spec, s.scalers, s.registry, s.logger)
			result, perr := predictor.Predict(types.SeriesFor(readings, spec))

			mu.Lock()
			if perr != nil {
				outcomes[p] = types.ParameterOutcome{Err: perr}
			} else {
				outcomes[p] = types.ParameterOutcome{Result: result}
			}
			mu.Unlock()

			// Never propagate per-parameter failures into the errgroup;
			// sibling parameters must complete.
			return nil
		})
	}

	// Goroutines only return nil; Wait is for synchronization.
	_ = g.Wait()

	return &types.CombinedReport{
		Success:       true,
		ReportID:      uuid.NewString(),
		GeneratedAt:   s.clock.Now(),
		DataPoints:    len(readings),
		InputSteps:    types.InputSteps,
		ForecastSteps: types.ForecastSteps,
		DataSource:    s.source.Name(),
		Predictions:   outcomes,
	}, nil
}

// HistoricalSeries returns the most recent limit raw values for one
// parameter, oldest first, with sequential indices. This is a read-only
// passthrough over the store: no normalization, no windowing.
func (s *Service) HistoricalSeries(ctx context.Context, p types.Parameter, limit int) (*types.HistoricalSeries, error) {
	spec, ok := types.SpecFor(p)
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundParameter,
			"unknown parameter: "+string(p), nil)
	}
	if limit <= 0 {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidLimit,
			"limit must be positive", nil)
	}

	// Fetch extra to report total_rows meaningfully; the store caps at its
	// own row count.
	readings, err := s.source.FetchReadings(ctx, limit*2)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamData,
			"sensor store unreachable", err)
	}
	if len(readings) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamNoRows,
			"sensor store returned no rows", nil)
	}

	values := types.SeriesFor(readings, spec)
	if len(values) > limit {
		values = values[len(values)-limit:]
	}
	indices := make([]int, len(values))
	for i := range indices {
		indices[i] = i
	}

	return &types.HistoricalSeries{
		Parameter:    p,
		DisplayName:  spec.DisplayName,
		Limit:        limit,
		TotalRows:    len(readings),
		ReturnedRows: len(values),
		Values:       values,
		Indices:      indices,
	}, nil
}

// SummaryStatistics computes per-parameter descriptive statistics over a
// large reference sample, independent of any model.
func (s *Service) SummaryStatistics(ctx context.Context) (map[types.Parameter]types.ParameterSummary, error) {
	readings, err := s.source.FetchReadings(ctx, s.referenceLimit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamData,
			"sensor store unreachable", err)
	}
	if len(readings) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamNoRows,
			"sensor store returned no rows", nil)
	}

	out := make(map[types.Parameter]types.ParameterSummary, len(types.AllParameters()))
	for _, p := range types.AllParameters() {
		spec, _ := types.SpecFor(p)
		values := types.SeriesFor(readings, spec)

		mean := 0.0
		lo, hi := values[0], values[0]
		for _, v := range values {
			mean += v
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		mean /= float64(len(values))

		variance := 0.0
		for _, v := range values {
			d := v - mean
			variance += d * d
		}
		variance /= float64(len(values))

		out[p] = types.ParameterSummary{
			DisplayName: spec.DisplayName,
			Column:      spec.SourceColumn,
			Count:       len(values),
			Mean:        round3(mean),
			Std:         round3(math.Sqrt(variance)),
			Min:         round3(lo),
			Max:         round3(hi),
			Current:     round3(values[len(values)-1]),
		}
	}

	return out, nil
}

// RefreshScalers refetches the reference sample and refits every parameter's
// scaler. Per-parameter fit failures are logged and skipped; the return value
// is the number of scalers now fitted.
func (s *Service) RefreshScalers(ctx context.Context) (int, error) {
	readings, err := s.source.FetchReadings(ctx, s.referenceLimit)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeUpstreamData,
			"sensor store unreachable", err)
	}
	if len(readings) == 0 {
		return 0, types.NewAppError(types.ErrCodeUpstreamNoRows,
			"sensor store returned no rows", nil)
	}

	fitted := s.scalers.FitAll(readings)
	s.logger.Info("scalers refitted",
		"fitted", fitted,
		"reference_rows", len(readings),
	)
	return fitted, nil
}

package forecasts

import (
	"fmt"
	"log/slog"

	"soilcast/internal/types"
)

// ModelProvider resolves a parameter to its loaded model. Satisfied by
// *model.Registry; defined locally so the pipeline depends only on what it
// uses.
type ModelProvider interface {
	Model(p types.Parameter) (types.Model, bool)
}

// ParameterPredictor runs the forecast pipeline for a single parameter:
// normalize, window, invoke the bound model, denormalize, derive statistics.
// Every failure mode is scoped to the parameter; Predict never returns a
// request-level error.
type ParameterPredictor struct {
	spec    types.ParameterSpec
	scalers *ScalerStore
	models  ModelProvider
	logger  *slog.Logger
}

// NewParameterPredictor wires a predictor for one parameter.
func NewParameterPredictor(
	spec types.ParameterSpec,
	scalers *ScalerStore,
	models ModelProvider,
	logger *slog.Logger,
) *ParameterPredictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParameterPredictor{
		spec:    spec,
		scalers: scalers,
		models:  models,
		logger:  logger,
	}
}

// Predict produces either a ForecastResult or a parameter-scoped error for
// the given raw series. The skip path (short series) and every failure path
// are returned as *types.ParameterError, never as a Go error, so the
// orchestrator can record them under the parameter's report key.
func (pp *ParameterPredictor) Predict(rawSeries []float64) (*types.ForecastResult, *types.ParameterError) {
	// A model that never loaded is reported without attempting the pipeline.
	m, ok := pp.models.Model(pp.spec.Parameter)
	if !ok {
		return nil, pp.fail(types.ErrCodeModelNotLoaded,
			fmt.Sprintf("no model loaded for %s", pp.spec.Parameter))
	}

	normalized, err := pp.scalers.Normalize(pp.spec.Parameter, rawSeries)
	if err != nil {
		pp.logger.Warn("normalization failed",
			"parameter", string(pp.spec.Parameter),
			"error", err,
		)
		return nil, pp.fail(types.ErrCodeNormalizationFailed, err.Error())
	}

	window, ok := BuildWindow(normalized, pp.spec.InputSteps)
	if !ok {
		return nil, pp.fail(types.ErrCodeInsufficientData,
			fmt.Sprintf("need at least %d points, got %d", pp.spec.InputSteps, len(rawSeries)))
	}

	forecastNorm, err := pp.invoke(m, window)
	if err != nil {
		pp.logger.Warn("model invocation failed",
			"parameter", string(pp.spec.Parameter),
			"error", err,
		)
		return nil, pp.fail(types.ErrCodeModelInvocationFailed, err.Error())
	}
	if len(forecastNorm) != pp.spec.ForecastSteps {
		return nil, pp.fail(types.ErrCodeModelInvocationFailed,
			fmt.Sprintf("model emitted %d steps, want %d", len(forecastNorm), pp.spec.ForecastSteps))
	}

	forecast := pp.scalers.Denormalize(pp.spec.Parameter, forecastNorm)

	current := rawSeries[len(rawSeries)-1]
	stats := statistics(forecast, current)

	rounded := make([]float64, len(forecast))
	for i, v := range forecast {
		rounded[i] = round3(v)
	}

	return &types.ForecastResult{
		Status:       "success",
		DisplayName:  pp.spec.DisplayName,
		CurrentValue: round3(current),
		Forecast:     rounded,
		Statistics:   stats,
	}, nil
}

// invoke calls the opaque model, converting a panic inside the model into an
// error so a misbehaving artifact cannot take down sibling parameters.
func (pp *ParameterPredictor) invoke(m types.Model, window []float64) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	return m.Predict(window)
}

func (pp *ParameterPredictor) fail(code types.ErrorCode, msg string) *types.ParameterError {
	return &types.ParameterError{
		Status:      "error",
		DisplayName: pp.spec.DisplayName,
		Code:        code,
		Error:       msg,
	}
}

package forecasts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"soilcast/internal/types"
)

// mockSource is a testify mock over types.SensorSource.
type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchReadings(ctx context.Context, limit int) ([]types.SensorReading, error) {
	args := m.Called(ctx, limit)
	if readings, ok := args.Get(0).([]types.SensorReading); ok {
		return readings, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) Name() string { return "mock" }

// fixedClock implements types.Clock with a constant time.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// syntheticReadings builds n ascending rows where every column at row i holds
// float64(i+1).
func syntheticReadings(n int) []types.SensorReading {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.SensorReading, n)
	for i := range out {
		v := float64(i + 1)
		out[i] = types.SensorReading{
			ID:         int64(i + 1),
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
			Nitrogen:   v,
			Phosphorus: v,
			Potassium:  v,
			PH:         v,
		}
	}
	return out
}

// allModels returns a provider serving the given model for every parameter.
func allModels(m types.Model) *stubProvider {
	models := make(map[types.Parameter]types.Model)
	for _, p := range types.AllParameters() {
		models[p] = m
	}
	return &stubProvider{models: models}
}

func newTestService(source types.SensorSource, provider RegistryReader) (*Service, *ScalerStore) {
	scalers := NewScalerStore(discardLogger())
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	svc := NewService(source, scalers, provider, discardLogger(), fixedClock{now}, 500, 5000)
	return svc, scalers
}

func TestRunAll_AllParametersSucceed(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 500).Return(syntheticReadings(60), nil)

	svc, scalers := newTestService(source, allModels(constantForecast(0.5)))
	scalers.FitAll(syntheticReadings(60))

	report, err := svc.RunAll(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, 60, report.DataPoints)
	assert.Equal(t, 30, report.InputSteps)
	assert.Equal(t, 10, report.ForecastSteps)
	assert.Equal(t, "mock", report.DataSource)
	require.Len(t, report.Predictions, 4)

	for _, p := range types.AllParameters() {
		outcome := report.Predictions[p]
		require.NotNil(t, outcome.Result, "parameter %s", p)
		assert.Nil(t, outcome.Err)
		assert.Len(t, outcome.Result.Forecast, 10)
	}

	source.AssertExpectations(t)
}

func TestRunAll_OneFailingModelIsIsolated(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 500).Return(syntheticReadings(60), nil)

	// pH always raises; the other three succeed.
	models := map[types.Parameter]types.Model{
		types.ParameterNitrogen:   constantForecast(0.5),
		types.ParameterPhosphorus: constantForecast(0.5),
		types.ParameterMoisture:   constantForecast(0.5),
		types.ParameterPH:         &stubModel{err: errors.New("inference backend down")},
	}
	svc, _ := newTestService(source, &stubProvider{models: models})

	report, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)

	for _, p := range []types.Parameter{types.ParameterNitrogen, types.ParameterPhosphorus, types.ParameterMoisture} {
		require.NotNil(t, report.Predictions[p].Result, "parameter %s", p)
	}

	phOutcome := report.Predictions[types.ParameterPH]
	require.NotNil(t, phOutcome.Err)
	assert.Equal(t, types.ErrCodeModelInvocationFailed, phOutcome.Err.Code)
	assert.Contains(t, phOutcome.Err.Error, "inference backend down")
}

func TestRunAll_MissingModelReportedNotAttempted(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 500).Return(syntheticReadings(60), nil)

	models := map[types.Parameter]types.Model{
		types.ParameterNitrogen: constantForecast(0.5),
	}
	svc, _ := newTestService(source, &stubProvider{models: models})

	report, err := svc.RunAll(context.Background())
	require.NoError(t, err)

	require.NotNil(t, report.Predictions[types.ParameterNitrogen].Result)
	for _, p := range []types.Parameter{types.ParameterPhosphorus, types.ParameterMoisture, types.ParameterPH} {
		outcome := report.Predictions[p]
		require.NotNil(t, outcome.Err, "parameter %s", p)
		assert.Equal(t, types.ErrCodeModelNotLoaded, outcome.Err.Code)
	}
}

func TestRunAll_ShortSeriesSkipsParameter(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 500).Return(syntheticReadings(20), nil)

	svc, _ := newTestService(source, allModels(constantForecast(0.5)))

	report, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)

	for _, p := range types.AllParameters() {
		outcome := report.Predictions[p]
		require.NotNil(t, outcome.Err, "parameter %s", p)
		assert.Equal(t, types.ErrCodeInsufficientData, outcome.Err.Code)
	}
}

func TestRunAll_RegistryNotReady(t *testing.T) {
	source := new(mockSource)
	svc, _ := newTestService(source, &stubProvider{})

	_, err := svc.RunAll(context.Background())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNoModelsLoaded, appErr.Code)

	source.AssertNotCalled(t, "FetchReadings")
}

func TestRunAll_UpstreamUnreachable(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 500).Return(nil, errors.New("dial tcp: refused"))

	svc, _ := newTestService(source, allModels(constantForecast(0.5)))

	_, err := svc.RunAll(context.Background())
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamData, appErr.Code)
}

func TestRunAll_UpstreamEmpty(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 500).Return([]types.SensorReading{}, nil)

	svc, _ := newTestService(source, allModels(constantForecast(0.5)))

	_, err := svc.RunAll(context.Background())
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamNoRows, appErr.Code)
}

func TestHistoricalSeries_TailInOrder(t *testing.T) {
	source := new(mockSource)
	// Store holds 250 rows; fetch asks for limit*2 and the store caps at 250.
	source.On("FetchReadings", mock.Anything, 200).Return(syntheticReadings(250)[50:], nil)

	svc, _ := newTestService(source, allModels(constantForecast(0.5)))

	series, err := svc.HistoricalSeries(context.Background(), types.ParameterNitrogen, 100)
	require.NoError(t, err)

	assert.Equal(t, 100, series.ReturnedRows)
	require.Len(t, series.Values, 100)
	require.Len(t, series.Indices, 100)

	// Last 100 values of a 250-row store in chronological order: 151..250.
	assert.Equal(t, 151.0, series.Values[0])
	assert.Equal(t, 250.0, series.Values[99])
	assert.Equal(t, 0, series.Indices[0])
	assert.Equal(t, 99, series.Indices[99])
}

func TestHistoricalSeries_UnknownParameter(t *testing.T) {
	svc, _ := newTestService(new(mockSource), allModels(constantForecast(0.5)))

	_, err := svc.HistoricalSeries(context.Background(), types.Parameter("humidity"), 10)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundParameter, appErr.Code)
}

func TestHistoricalSeries_InvalidLimit(t *testing.T) {
	svc, _ := newTestService(new(mockSource), allModels(constantForecast(0.5)))

	_, err := svc.HistoricalSeries(context.Background(), types.ParameterPH, 0)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationInvalidLimit, appErr.Code)
}

func TestSummaryStatistics(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 5000).Return(syntheticReadings(100), nil)

	svc, _ := newTestService(source, allModels(constantForecast(0.5)))

	stats, err := svc.SummaryStatistics(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 4)

	n := stats[types.ParameterNitrogen]
	assert.Equal(t, 100, n.Count)
	assert.Equal(t, 50.5, n.Mean)
	assert.Equal(t, 1.0, n.Min)
	assert.Equal(t, 100.0, n.Max)
	assert.Equal(t, 100.0, n.Current)
	assert.Equal(t, "nitrogen", n.Column)

	m := stats[types.ParameterMoisture]
	assert.Equal(t, "potassium", m.Column)
}

func TestRefreshScalers(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 5000).Return(syntheticReadings(100), nil)

	svc, scalers := newTestService(source, allModels(constantForecast(0.5)))
	require.Equal(t, 0, scalers.FittedCount())

	fitted, err := svc.RefreshScalers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, fitted)
	assert.Equal(t, 4, scalers.FittedCount())
}

func TestRefreshScalers_UpstreamEmpty(t *testing.T) {
	source := new(mockSource)
	source.On("FetchReadings", mock.Anything, 5000).Return([]types.SensorReading{}, nil)

	svc, _ := newTestService(source, allModels(constantForecast(0.5)))

	_, err := svc.RefreshScalers(context.Background())
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamNoRows, appErr.Code)
}

package types

import (
	"encoding/json"
	"time"
)

// SensorReading is one row of the raw_sensor_readings store. Rows are ordered
// ascending by Timestamp; gap handling is the store's concern, not ours.
type SensorReading struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"datetime"`
	Nitrogen    float64   `json:"nitrogen"`
	Phosphorus  float64   `json:"phosphorus"`
	Potassium   float64   `json:"potassium"`
	PH          float64   `json:"ph"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
}

// Value extracts the column that feeds the given parameter.
func (r SensorReading) Value(spec ParameterSpec) float64 {
	switch spec.SourceColumn {
	case "nitrogen":
		return r.Nitrogen
	case "phosphorus":
		return r.Phosphorus
	case "potassium":
		return r.Potassium
	case "ph":
		return r.PH
	case "temperature":
		return r.Temperature
	case "humidity":
		return r.Humidity
	default:
		return 0
	}
}

// SeriesFor projects the readings onto a single parameter's column,
// preserving chronological order.
func SeriesFor(readings []SensorReading, spec ParameterSpec) []float64 {
	out := make([]float64, 0, len(readings))
	for _, r := range readings {
		out = append(out, r.Value(spec))
	}
	return out
}

// TrendDirection classifies the forecasted movement relative to the current
// reading.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
)

// ForecastStatistics are descriptive statistics derived from a denormalized
// forecast vector. Std is the population standard deviation.
type ForecastStatistics struct {
	Mean          float64        `json:"mean"`
	Min           float64        `json:"min"`
	Max           float64        `json:"max"`
	Std           float64        `json:"std"`
	Range         float64        `json:"range"`
	Trend         TrendDirection `json:"trend"`
	TrendStrength float64        `json:"trend_strength"`
}

// ForecastResult is the per-parameter success payload: the last observed raw
// value, the denormalized forecast vector (length == ForecastSteps), and the
// derived statistics. Computed once per request and discarded.
type ForecastResult struct {
	Status       string             `json:"status"`
	DisplayName  string             `json:"display_name"`
	CurrentValue float64            `json:"current_value"`
	Forecast     []float64          `json:"forecast"`
	Statistics   ForecastStatistics `json:"statistics"`
}

// ParameterError is the per-parameter failure payload. One parameter failing
// never fails the enclosing report.
type ParameterError struct {
	Status      string    `json:"status"`
	DisplayName string    `json:"display_name"`
	Code        ErrorCode `json:"code"`
	Error       string    `json:"error"`
}

// ParameterOutcome holds exactly one of Result or Err for a parameter slot in
// a combined report.
type ParameterOutcome struct {
	Result *ForecastResult `json:"-"`
	Err    *ParameterError `json:"-"`
}

// MarshalJSON flattens the outcome to whichever side is populated.
func (o ParameterOutcome) MarshalJSON() ([]byte, error) {
	if o.Result != nil {
		return json.Marshal(o.Result)
	}
	return json.Marshal(o.Err)
}

// CombinedReport is the envelope produced by one forecast run. Success is true
// whenever upstream data was available and at least the run itself completed;
// individual parameter failures live inside Predictions.
type CombinedReport struct {
	Success       bool                           `json:"success"`
	ReportID      string                         `json:"report_id"`
	GeneratedAt   time.Time                      `json:"timestamp"`
	DataPoints    int                            `json:"data_points"`
	InputSteps    int                            `json:"input_steps"`
	ForecastSteps int                            `json:"forecast_steps"`
	DataSource    string                         `json:"data_source"`
	Predictions   map[Parameter]ParameterOutcome `json:"predictions"`
}

// ParameterSummary is one parameter's descriptive statistics over a reference
// sample, independent of any model.
type ParameterSummary struct {
	DisplayName string  `json:"display_name"`
	Column      string  `json:"column"`
	Count       int     `json:"count"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Current     float64 `json:"current"`
}

// HistoricalSeries is the raw tail slice returned for charting. Indices are
// sequential positions within the returned slice, oldest first.
type HistoricalSeries struct {
	Parameter    Parameter `json:"parameter"`
	DisplayName  string    `json:"display_name"`
	Limit        int       `json:"limit"`
	TotalRows    int       `json:"total_rows"`
	ReturnedRows int       `json:"returned_rows"`
	Values       []float64 `json:"values"`
	Indices      []int     `json:"indices"`
}

// ModelState is the lifecycle state of one parameter's model slot.
type ModelState string

const (
	ModelUnloaded ModelState = "unloaded"
	ModelLoaded   ModelState = "loaded"
	ModelNotFound ModelState = "not_found"
	ModelError    ModelState = "error"
)

// ModelHandle is the metadata for one loaded (or failed) model artifact.
// Created during LoadAll; immutable between loads.
type ModelHandle struct {
	State       ModelState `json:"status"`
	DisplayName string     `json:"display_name"`
	ModelFile   string     `json:"model_file,omitempty"`
	SizeBytes   int64      `json:"file_size_bytes,omitempty"`
	LoadedAt    time.Time  `json:"loaded_at,omitzero"`
	Error       string     `json:"error,omitempty"`
}

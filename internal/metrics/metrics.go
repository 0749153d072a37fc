// Package metrics emits operational telemetry for the forecast pipeline.
// The Collector interface keeps handlers backend-agnostic; deployments choose
// the no-op collector or the CloudWatch implementation via configuration.
package metrics

import (
	"context"
	"time"

	"soilcast/internal/types"
)

// Metric and dimension names published to the telemetry backend.
const (
	MetricForecastRun      = "ForecastRun"
	MetricForecastLatency  = "ForecastLatency"
	MetricParameterOutcome = "ParameterOutcome"
	MetricModelsLoaded     = "ModelsLoaded"
	MetricAPIRequestCount  = "APIRequestCount"
	MetricAPILatency       = "APILatency"

	DimParameter = "Parameter"
	DimResult    = "Result"
	DimMethod    = "Method"
	DimEndpoint  = "Endpoint"
	DimStatus    = "Status"
)

// Result values for the ParameterOutcome dimension.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Collector records pipeline telemetry. Implementations must be safe for
// concurrent use and must never fail a request on emission errors.
type Collector interface {
	// RecordForecastRun emits one count per combined forecast run plus its
	// wall-clock latency.
	RecordForecastRun(ctx context.Context, duration time.Duration)

	// RecordParameterOutcome emits one count per parameter slot in a
	// combined report, dimensioned by parameter and result.
	RecordParameterOutcome(ctx context.Context, p types.Parameter, result string)

	// RecordModelsLoaded emits the current loaded-model gauge, typically
	// after startup or a reload.
	RecordModelsLoaded(ctx context.Context, loaded int)

	// RecordRequest records API request metrics including latency and
	// count. Satisfies the chassis middleware's collector interface.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// NoopCollector discards all telemetry. Used when METRICS_BACKEND is "none".
type NoopCollector struct{}

var _ Collector = NoopCollector{}

func (NoopCollector) RecordForecastRun(context.Context, time.Duration)                {}
func (NoopCollector) RecordParameterOutcome(context.Context, types.Parameter, string) {}
func (NoopCollector) RecordModelsLoaded(context.Context, int)                         {}
func (NoopCollector) RecordRequest(string, string, string, time.Duration)             {}

package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"soilcast/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchCollector implements Collector by publishing to AWS CloudWatch.
// Emission failures are logged and swallowed; telemetry never fails a request.
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

var _ Collector = (*CloudWatchCollector)(nil)

// NewCloudWatchCollector creates a collector publishing to the given
// namespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchCollector{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (m *CloudWatchCollector) put(ctx context.Context, data []cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to put metric data", "error", err)
	}
}

// RecordForecastRun emits the run count and its latency in milliseconds.
func (m *CloudWatchCollector) RecordForecastRun(ctx context.Context, duration time.Duration) {
	m.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricForecastRun),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
		},
		{
			MetricName: aws.String(MetricForecastLatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
		},
	})
}

// RecordParameterOutcome emits one count dimensioned by parameter and result.
func (m *CloudWatchCollector) RecordParameterOutcome(ctx context.Context, p types.Parameter, result string) {
	m.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricParameterOutcome),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String(DimParameter), Value: aws.String(string(p))},
				{Name: aws.String(DimResult), Value: aws.String(result)},
			},
		},
	})
}

// RecordRequest emits one request count plus its latency, dimensioned by
// method, endpoint, and status. Emission runs on a background context so a
// cancelled request cannot drop its own telemetry.
func (m *CloudWatchCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		{Name: aws.String(DimMethod), Value: aws.String(method)},
		{Name: aws.String(DimEndpoint), Value: aws.String(endpoint)},
		{Name: aws.String(DimStatus), Value: aws.String(status)},
	}
	m.put(context.Background(), []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
		{
			MetricName: aws.String(MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
	})
}

// RecordModelsLoaded emits the loaded-model gauge.
func (m *CloudWatchCollector) RecordModelsLoaded(ctx context.Context, loaded int) {
	m.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricModelsLoaded),
			Value:      aws.Float64(float64(loaded)),
			Unit:       cwtypes.StandardUnitCount,
		},
	})
}

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soilcast/internal/types"
)

// fakeCloudWatch captures PutMetricData inputs.
type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func testCollector(fake *fakeCloudWatch) *CloudWatchCollector {
	return NewCloudWatchCollector(fake, "Soilcast", slog.New(slog.DiscardHandler))
}

func dimValue(d []cwtypes.Dimension, name string) string {
	for _, dim := range d {
		if *dim.Name == name {
			return *dim.Value
		}
	}
	return ""
}

func TestCloudWatchCollector_RecordForecastRun(t *testing.T) {
	fake := &fakeCloudWatch{}
	c := testCollector(fake)

	c.RecordForecastRun(context.Background(), 1500*time.Millisecond)

	require.Len(t, fake.inputs, 1)
	input := fake.inputs[0]
	assert.Equal(t, "Soilcast", *input.Namespace)
	require.Len(t, input.MetricData, 2)

	assert.Equal(t, MetricForecastRun, *input.MetricData[0].MetricName)
	assert.Equal(t, 1.0, *input.MetricData[0].Value)
	assert.Equal(t, MetricForecastLatency, *input.MetricData[1].MetricName)
	assert.Equal(t, 1500.0, *input.MetricData[1].Value)
	assert.Equal(t, cwtypes.StandardUnitMilliseconds, input.MetricData[1].Unit)
}

func TestCloudWatchCollector_RecordParameterOutcome(t *testing.T) {
	fake := &fakeCloudWatch{}
	c := testCollector(fake)

	c.RecordParameterOutcome(context.Background(), types.ParameterNitrogen, ResultError)

	require.Len(t, fake.inputs, 1)
	datum := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricParameterOutcome, *datum.MetricName)
	assert.Equal(t, "nitrogen", dimValue(datum.Dimensions, DimParameter))
	assert.Equal(t, ResultError, dimValue(datum.Dimensions, DimResult))
}

func TestCloudWatchCollector_RecordModelsLoaded(t *testing.T) {
	fake := &fakeCloudWatch{}
	c := testCollector(fake)

	c.RecordModelsLoaded(context.Background(), 3)

	require.Len(t, fake.inputs, 1)
	datum := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricModelsLoaded, *datum.MetricName)
	assert.Equal(t, 3.0, *datum.Value)
}

func TestCloudWatchCollector_EmissionErrorSwallowed(t *testing.T) {
	fake := &fakeCloudWatch{err: errors.New("throttled")}
	c := testCollector(fake)

	// Must not panic or propagate.
	c.RecordForecastRun(context.Background(), time.Second)
	c.RecordModelsLoaded(context.Background(), 1)
	assert.Len(t, fake.inputs, 2)
}

func TestCloudWatchCollector_RecordRequest(t *testing.T) {
	fake := &fakeCloudWatch{}
	c := testCollector(fake)

	c.RecordRequest("GET", "/v1/forecasts/predict", "200", 120*time.Millisecond)

	require.Len(t, fake.inputs, 1)
	require.Len(t, fake.inputs[0].MetricData, 2)

	count := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricAPIRequestCount, *count.MetricName)
	assert.Equal(t, "GET", dimValue(count.Dimensions, DimMethod))
	assert.Equal(t, "/v1/forecasts/predict", dimValue(count.Dimensions, DimEndpoint))
	assert.Equal(t, "200", dimValue(count.Dimensions, DimStatus))

	latency := fake.inputs[0].MetricData[1]
	assert.Equal(t, MetricAPILatency, *latency.MetricName)
	assert.Equal(t, 120.0, *latency.Value)
}

func TestNoopCollector(t *testing.T) {
	var c Collector = NoopCollector{}
	c.RecordForecastRun(context.Background(), time.Second)
	c.RecordParameterOutcome(context.Background(), types.ParameterPH, ResultSuccess)
	c.RecordModelsLoaded(context.Background(), 0)
	c.RecordRequest("GET", "/health", "200", time.Millisecond)
}

package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"soilcast/internal/types"
)

// readingsTable is the PostgREST resource holding raw sensor rows.
const readingsTable = "raw_sensor_readings"

// maxReadingsBody caps the decoded response size.
const maxReadingsBody = 16 << 20

// SupabaseClientConfig configures a SupabaseClient.
type SupabaseClientConfig struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co.
	BaseURL string
	// APIKey is the anon or service-role key, sent as both apikey and
	// bearer token per the PostgREST convention.
	APIKey types.SecretString
}

// SupabaseClient reads sensor rows through the Supabase REST API. It is the
// secondary types.SensorSource, used for deployments without direct database
// access. All calls go through the shared BaseClient resilience wrapper.
type SupabaseClient struct {
	base *BaseClient
	cfg  SupabaseClientConfig
}

// NewSupabaseClient creates a SupabaseClient with its own circuit breaker.
func NewSupabaseClient(httpClient *http.Client, cfg SupabaseClientConfig, opts ...BaseClientOption) *SupabaseClient {
	return &SupabaseClient{
		base: NewBaseClient(httpClient, "supabase", DefaultRetryPolicy(), "Soilcast/1.0", opts...),
		cfg:  cfg,
	}
}

// Name identifies the source in combined reports.
func (c *SupabaseClient) Name() string {
	return "supabase"
}

// wireReading is the PostgREST row shape. Timestamps come back without a zone
// for timestamp columns, so datetime is decoded as a string and parsed with
// fallback layouts.
type wireReading struct {
	ID          int64   `json:"id"`
	Datetime    string  `json:"datetime"`
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	PH          float64 `json:"ph"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// FetchReadings returns the most recent limit rows in ascending datetime
// order. PostgREST serves the newest rows descending; the result is re-sorted
// chronologically before returning.
func (c *SupabaseClient) FetchReadings(ctx context.Context, limit int) ([]types.SensorReading, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamData, "invalid supabase base url", err)
	}
	endpoint = endpoint.JoinPath("rest", "v1", readingsTable)

	q := endpoint.Query()
	q.Set("select", "id,datetime,nitrogen,phosphorus,potassium,ph,temperature,humidity")
	q.Set("order", "datetime.desc")
	q.Set("limit", fmt.Sprintf("%d", limit))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build supabase request", err)
	}
	req.Header.Set("apikey", c.cfg.APIKey.Unmask())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey.Unmask())
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, types.NewAppError(types.ErrCodeUpstreamData,
			fmt.Sprintf("supabase returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var wire []wireReading
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReadingsBody)).Decode(&wire); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamData, "failed to decode supabase response", err)
	}

	readings := make([]types.SensorReading, 0, len(wire))
	for _, w := range wire {
		ts, err := parseTimestamp(w.Datetime)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamData, "bad row timestamp", err)
		}
		readings = append(readings, types.SensorReading{
			ID:          w.ID,
			Timestamp:   ts,
			Nitrogen:    w.Nitrogen,
			Phosphorus:  w.Phosphorus,
			Potassium:   w.Potassium,
			PH:          w.PH,
			Temperature: w.Temperature,
			Humidity:    w.Humidity,
		})
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	return readings, nil
}

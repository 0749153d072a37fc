package types

import (
	"context"
	"time"
)

// SensorSource abstracts the external time-ordered record store. FetchReadings
// returns the most recent limit rows in ascending chronological order; an
// empty slice means the store holds no data (not an error).
type SensorSource interface {
	FetchReadings(ctx context.Context, limit int) ([]SensorReading, error)
	// Name identifies the backing store ("postgres", "supabase") for report
	// metadata and logs.
	Name() string
}

// Model is an opaque forecasting function: a window of InputSteps normalized
// values in, a vector of ForecastSteps normalized values out. The pipeline
// never inspects model internals.
type Model interface {
	Predict(window []float64) ([]float64, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Package forecasts implements the soilcast forecast pipeline: per-parameter
// normalization state, fixed-window sequence construction, model invocation,
// denormalization, and derived statistics.
//
// The central correctness property of the package is per-parameter fault
// isolation: one parameter's failure (missing model, short series, model
// error) is captured as data in that parameter's report slot and never
// prevents sibling parameters from completing.
package forecasts

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"soilcast/internal/types"
)

// minMaxState is one parameter's fitted normalization transform:
// (x - min) / (max - min), with the degenerate max == min case clamping the
// normalized value to 0.
type minMaxState struct {
	mu     sync.RWMutex
	fitted bool
	min    float64
	max    float64
}

// ScalerStore holds one fitted min-max transform per parameter. Slots are
// independent: concurrent fit/normalize calls for different parameters never
// contend, matching the single-writer-per-slot discipline the pipeline
// assumes.
type ScalerStore struct {
	logger *slog.Logger
	slots  map[types.Parameter]*minMaxState
}

// NewScalerStore creates a ScalerStore with an unfitted slot for every
// parameter in the closed set.
func NewScalerStore(logger *slog.Logger) *ScalerStore {
	if logger == nil {
		logger = slog.Default()
	}
	slots := make(map[types.Parameter]*minMaxState, len(types.AllParameters()))
	for _, p := range types.AllParameters() {
		slots[p] = &minMaxState{}
	}
	return &ScalerStore{logger: logger, slots: slots}
}

// Fit computes min/max over the reference sample and stores the transform,
// replacing any prior state for the parameter. An empty or non-finite sample
// is rejected without touching existing state.
func (s *ScalerStore) Fit(p types.Parameter, reference []float64) error {
	slot, ok := s.slots[p]
	if !ok {
		return fmt.Errorf("unknown parameter %q", p)
	}
	lo, hi, err := sampleBounds(reference)
	if err != nil {
		return err
	}

	slot.mu.Lock()
	slot.fitted = true
	slot.min = lo
	slot.max = hi
	slot.mu.Unlock()
	return nil
}

// FitAll fits every parameter's scaler from the reference readings. Failures
// are logged and skipped so that other parameters' fits proceed
// independently. Returns the number of scalers fitted.
func (s *ScalerStore) FitAll(readings []types.SensorReading) int {
	fitted := 0
	for _, p := range types.AllParameters() {
		spec, _ := types.SpecFor(p)
		if err := s.Fit(p, types.SeriesFor(readings, spec)); err != nil {
			s.logger.Warn("scaler fit failed",
				"parameter", string(p),
				"error", err,
			)
			continue
		}
		fitted++
	}
	return fitted
}

// Normalize applies the stored transform to raw values. When no transform
// exists for the parameter it bootstraps one from the supplied values first;
// repeated calls over the same data distribution are idempotent because the
// bootstrap fit is the same min/max each time.
func (s *ScalerStore) Normalize(p types.Parameter, raw []float64) ([]float64, error) {
	slot, ok := s.slots[p]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", p)
	}

	slot.mu.RLock()
	fitted, lo, hi := slot.fitted, slot.min, slot.max
	slot.mu.RUnlock()

	if !fitted {
		if err := s.Fit(p, raw); err != nil {
			return nil, err
		}
		slot.mu.RLock()
		lo, hi = slot.min, slot.max
		slot.mu.RUnlock()
	}

	span := hi - lo
	out := make([]float64, len(raw))
	for i, v := range raw {
		if !isFinite(v) {
			return nil, fmt.Errorf("non-finite value %v at index %d", v, i)
		}
		if span == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v - lo) / span
	}
	return out, nil
}

// Denormalize applies the inverse transform. When no transform exists the
// input is returned unchanged; this identity fallback never fails.
func (s *ScalerStore) Denormalize(p types.Parameter, normalized []float64) []float64 {
	slot, ok := s.slots[p]
	if !ok {
		return normalized
	}

	slot.mu.RLock()
	fitted, lo, hi := slot.fitted, slot.min, slot.max
	slot.mu.RUnlock()

	if !fitted {
		return normalized
	}

	span := hi - lo
	out := make([]float64, len(normalized))
	for i, v := range normalized {
		out[i] = v*span + lo
	}
	return out
}

// Fitted reports whether a transform exists for the parameter.
func (s *ScalerStore) Fitted(p types.Parameter) bool {
	slot, ok := s.slots[p]
	if !ok {
		return false
	}
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return slot.fitted
}

// FittedCount returns how many parameters currently have a fitted transform.
func (s *ScalerStore) FittedCount() int {
	n := 0
	for _, p := range types.AllParameters() {
		if s.Fitted(p) {
			n++
		}
	}
	return n
}

// sampleBounds returns the min and max of a non-empty, finite sample.
func sampleBounds(sample []float64) (lo, hi float64, err error) {
	if len(sample) == 0 {
		return 0, 0, fmt.Errorf("empty reference sample")
	}
	lo, hi = sample[0], sample[0]
	for i, v := range sample {
		if !isFinite(v) {
			return 0, 0, fmt.Errorf("non-finite value %v at index %d", v, i)
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

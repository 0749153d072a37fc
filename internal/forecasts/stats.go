package forecasts

import (
	"math"

	"soilcast/internal/types"
)

// statistics derives the descriptive statistics over a denormalized forecast
// vector relative to the current (last observed, raw-scale) value.
//
// Two inherited edge-case policies are preserved exactly:
//   - Trend uses a strictly-greater test, so a flat forecast classifies as
//     decreasing.
//   - Trend strength divides by max(current, 1), which avoids division by
//     zero at the cost of under-reporting strength when current is near 0.
func statistics(forecast []float64, current float64) types.ForecastStatistics {
	mean := 0.0
	lo, hi := forecast[0], forecast[0]
	for _, v := range forecast {
		mean += v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	mean /= float64(len(forecast))

	variance := 0.0
	for _, v := range forecast {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(forecast)) // population variance

	last := forecast[len(forecast)-1]
	trend := types.TrendDecreasing
	if last > current {
		trend = types.TrendIncreasing
	}
	strength := math.Abs(last-current) / math.Max(current, 1)

	return types.ForecastStatistics{
		Mean:          round3(mean),
		Min:           round3(lo),
		Max:           round3(hi),
		Std:           round3(math.Sqrt(variance)),
		Range:         round3(hi - lo),
		Trend:         trend,
		TrendStrength: round3(strength),
	}
}

// round3 rounds to 3 decimal places for presentation stability. Applied only
// at the report boundary, never to intermediate computation.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

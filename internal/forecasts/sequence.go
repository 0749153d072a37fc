package forecasts

// BuildWindow returns the trailing windowLen values of series as a fresh
// slice. The second return is false when the series is too short -- an
// insufficient-data signal, not an error: callers skip the parameter rather
// than failing the request.
//
// This is the single insufficient-data gate for the whole pipeline. Pure
// function, no state.
func BuildWindow(series []float64, windowLen int) ([]float64, bool) {
	if windowLen <= 0 || len(series) < windowLen {
		return nil, false
	}
	window := make([]float64, windowLen)
	copy(window, series[len(series)-windowLen:])
	return window, true
}

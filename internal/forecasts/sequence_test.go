package forecasts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWindow_InsufficientData(t *testing.T) {
	tests := []struct {
		name      string
		seriesLen int
		windowLen int
		wantOK    bool
	}{
		{"empty series", 0, 30, false},
		{"one short", 29, 30, false},
		{"exact", 30, 30, true},
		{"longer", 100, 30, true},
		{"zero window", 10, 0, false},
		{"negative window", 10, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := make([]float64, tt.seriesLen)
			for i := range series {
				series[i] = float64(i)
			}

			window, ok := BuildWindow(series, tt.windowLen)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Len(t, window, tt.windowLen)
			} else {
				assert.Nil(t, window)
			}
		})
	}
}

func TestBuildWindow_TakesTail(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6, 7}

	window, ok := BuildWindow(series, 3)
	require.True(t, ok)
	assert.Equal(t, []float64{5, 6, 7}, window)

	// The window's last element equals the series' last element.
	assert.Equal(t, series[len(series)-1], window[len(window)-1])
}

func TestBuildWindow_ReturnsCopy(t *testing.T) {
	series := []float64{1, 2, 3}
	window, ok := BuildWindow(series, 3)
	require.True(t, ok)

	window[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, series)
}

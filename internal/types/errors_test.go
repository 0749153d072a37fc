package types

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidParameter, http.StatusBadRequest},
		{ErrCodeValidationInvalidLimit, http.StatusBadRequest},
		{ErrCodeNotFoundParameter, http.StatusNotFound},
		{ErrCodeConflictModelReload, http.StatusConflict},
		{ErrCodeNoModelsLoaded, http.StatusServiceUnavailable},
		{ErrCodeUpstreamData, http.StatusBadGateway},
		{ErrCodeUpstreamNoRows, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.HTTPStatus(), "code %s", tt.code)
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewAppError(ErrCodeUpstreamData, "sensor store unreachable", inner)

	assert.Equal(t, "upstream_data_unavailable: sensor store unreachable", err.Error())
	assert.Equal(t, inner, errors.Unwrap(err))
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
}

func TestAppError_ErrorsAsThroughWrap(t *testing.T) {
	appErr := NewAppError(ErrCodeInsufficientData, "need at least 30 points", nil)
	wrapped := errors.Join(errors.New("outer"), appErr)

	var target *AppError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, ErrCodeInsufficientData, target.Code)
}

func TestParameterOutcome_MarshalsExactlyOneSide(t *testing.T) {
	ok := ParameterOutcome{Result: &ForecastResult{
		Status:       "success",
		DisplayName:  "Nitrogen (N)",
		CurrentValue: 30,
		Forecast:     []float64{15.5},
	}}
	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"success"`)
	assert.NotContains(t, string(data), `"error"`)

	failed := ParameterOutcome{Err: &ParameterError{
		Status:      "error",
		DisplayName: "Soil pH",
		Code:        ErrCodeModelNotLoaded,
		Error:       "model never loaded",
	}}
	data, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"code":"model_not_loaded"`)
	assert.NotContains(t, string(data), `"forecast"`)
}

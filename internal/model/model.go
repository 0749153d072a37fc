// Package model implements loading and invocation of the pre-trained
// per-parameter forecasting models.
//
// A model artifact is the exported form of an offline-trained network: a JSON
// document holding the weight matrix that maps a normalized input window to a
// normalized forecast vector, optionally zstd-compressed on disk. The rest of
// the pipeline treats a loaded model as an opaque function (types.Model) and
// never inspects its internals.
package model

import (
	"fmt"
)

// artifactSchema is the artifact format identifier this build understands.
const artifactSchema = "soilcast/dense-v1"

// Artifact is the on-disk representation of an exported model.
type Artifact struct {
	Schema        string      `json:"schema"`
	Parameter     string      `json:"parameter"`
	InputSteps    int         `json:"input_steps"`
	ForecastSteps int         `json:"forecast_steps"`
	Weights       [][]float64 `json:"weights"` // [forecast_steps][input_steps]
	Bias          []float64   `json:"bias"`    // [forecast_steps]
}

// Validate checks the artifact's internal consistency before it is promoted
// to a usable model.
func (a *Artifact) Validate() error {
	if a.Schema != artifactSchema {
		return fmt.Errorf("unsupported artifact schema %q (want %q)", a.Schema, artifactSchema)
	}
	if a.InputSteps <= 0 || a.ForecastSteps <= 0 {
		return fmt.Errorf("invalid geometry: input_steps=%d forecast_steps=%d", a.InputSteps, a.ForecastSteps)
	}
	if len(a.Weights) != a.ForecastSteps {
		return fmt.Errorf("weight rows %d do not match forecast_steps %d", len(a.Weights), a.ForecastSteps)
	}
	for i, row := range a.Weights {
		if len(row) != a.InputSteps {
			return fmt.Errorf("weight row %d has %d columns, want %d", i, len(row), a.InputSteps)
		}
	}
	if len(a.Bias) != a.ForecastSteps {
		return fmt.Errorf("bias length %d does not match forecast_steps %d", len(a.Bias), a.ForecastSteps)
	}
	return nil
}

// DenseModel is a single dense layer mapping an input window directly to the
// multi-step forecast vector. It is the serving form of the offline-trained
// sequence models: the exporter collapses the recurrent stack into one
// window-to-horizon affine map.
type DenseModel struct {
	inputSteps    int
	forecastSteps int
	weights       [][]float64
	bias          []float64
}

// NewDenseModel builds a DenseModel from a validated artifact.
func NewDenseModel(a *Artifact) (*DenseModel, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &DenseModel{
		inputSteps:    a.InputSteps,
		forecastSteps: a.ForecastSteps,
		weights:       a.Weights,
		bias:          a.Bias,
	}, nil
}

// Predict maps a normalized window of length InputSteps to a normalized
// forecast vector of length ForecastSteps.
func (m *DenseModel) Predict(window []float64) ([]float64, error) {
	if len(window) != m.inputSteps {
		return nil, fmt.Errorf("window length %d does not match model input steps %d", len(window), m.inputSteps)
	}

	out := make([]float64, m.forecastSteps)
	for i := 0; i < m.forecastSteps; i++ {
		sum := m.bias[i]
		row := m.weights[i]
		for j, x := range window {
			sum += row[j] * x
		}
		out[i] = sum
	}
	return out, nil
}

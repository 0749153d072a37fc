package types

// Parameter identifies one of the four tracked soil measurements. The set is
// closed: adding or removing a parameter is a compile-time change to this
// file, never a runtime registration.
type Parameter string

const (
	ParameterNitrogen   Parameter = "nitrogen"
	ParameterPhosphorus Parameter = "phosphorus"
	ParameterMoisture   Parameter = "moisture"
	ParameterPH         Parameter = "pH"
)

// Forecast geometry shared by all parameters. Conceptually per-parameter
// (ParameterSpec carries its own copies) but every deployed model was trained
// with the same shape.
const (
	// InputSteps is the number of trailing readings a model consumes.
	InputSteps = 30
	// ForecastSteps is the number of future readings a model emits.
	ForecastSteps = 10
)

// ParameterSpec describes how a Parameter maps onto the sensor store and the
// model artifact directory.
type ParameterSpec struct {
	Parameter   Parameter
	DisplayName string
	// SourceColumn is the column in raw_sensor_readings that feeds this
	// parameter. Note: moisture reads the column named "potassium" -- the
	// deployed sensor fleet reports moisture on the potassium channel. This
	// mapping is a domain fact inherited from the field installation; do not
	// "correct" it.
	SourceColumn string
	// ModelFile is the artifact filename (relative to the models directory).
	ModelFile string
	// InputSteps and ForecastSteps pin the window geometry the artifact was
	// trained with.
	InputSteps    int
	ForecastSteps int
}

// parameterSpecs is the exhaustive mapping table. Order here is the canonical
// iteration order used in reports.
var parameterSpecs = []ParameterSpec{
	{
		Parameter:     ParameterNitrogen,
		DisplayName:   "Nitrogen (N)",
		SourceColumn:  "nitrogen",
		ModelFile:     "soil_nitrogen_model.json.zst",
		InputSteps:    InputSteps,
		ForecastSteps: ForecastSteps,
	},
	{
		Parameter:     ParameterPhosphorus,
		DisplayName:   "Phosphorus (P)",
		SourceColumn:  "phosphorus",
		ModelFile:     "soil_phosphorus_model.json.zst",
		InputSteps:    InputSteps,
		ForecastSteps: ForecastSteps,
	},
	{
		Parameter:     ParameterMoisture,
		DisplayName:   "Soil Moisture (K)",
		SourceColumn:  "potassium",
		ModelFile:     "soil_moisture_model.json.zst",
		InputSteps:    InputSteps,
		ForecastSteps: ForecastSteps,
	},
	{
		Parameter:     ParameterPH,
		DisplayName:   "Soil pH",
		SourceColumn:  "ph",
		ModelFile:     "soil_ph_model.json.zst",
		InputSteps:    InputSteps,
		ForecastSteps: ForecastSteps,
	},
}

// AllParameters returns the canonical ordered parameter list.
func AllParameters() []Parameter {
	out := make([]Parameter, 0, len(parameterSpecs))
	for _, spec := range parameterSpecs {
		out = append(out, spec.Parameter)
	}
	return out
}

// SpecFor returns the mapping entry for p. The second return is false for
// unknown parameter names (e.g. unvalidated query input).
func SpecFor(p Parameter) (ParameterSpec, bool) {
	for _, spec := range parameterSpecs {
		if spec.Parameter == p {
			return spec, true
		}
	}
	return ParameterSpec{}, false
}

// ParseParameter resolves user-facing aliases ("N", "ph", "potassium") to the
// canonical Parameter. Returns false for unknown names.
func ParseParameter(s string) (Parameter, bool) {
	switch s {
	case "nitrogen", "N":
		return ParameterNitrogen, true
	case "phosphorus", "P":
		return ParameterPhosphorus, true
	case "moisture", "potassium", "K":
		return ParameterMoisture, true
	case "pH", "ph":
		return ParameterPH, true
	default:
		return "", false
	}
}

// IsValid reports whether p is a member of the closed parameter set.
func (p Parameter) IsValid() bool {
	_, ok := SpecFor(p)
	return ok
}

package telemetry

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
)

// #region rules
// Required sensor ranges. Values outside these reject the reading.
var (
	FlowRange      = Range{Min: 0.1, Max: 100, Unit: "m3/s"}
	HeadRange      = Range{Min: 1, Max: 500, Unit: "m"}
	GeneratedRange = Range{Min: 0.01, Max: 50000, Unit: "kWh"}
)

// Optional sensor ranges. Missing values only warn.
var (
	PHRange          = Range{Min: 4.0, Max: 10.0, Unit: "pH"}
	TurbidityRange   = Range{Min: 0, Max: 1000, Unit: "NTU"}
	TemperatureRange = Range{Min: 0, Max: 40, Unit: "C"}
	EfficiencyRange  = Range{Min: 0.1, Max: 1.0, Unit: "ratio"}
)
// #endregion rules

// #region validation-error
// ValidationError reports readings that failed validation.
type ValidationError struct {
	Results []ValidationResult
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Results))
	for _, r := range e.Results {
		parts = append(parts, fmt.Sprintf("%s: %s", r.ReadingID, strings.Join(r.Errors, ", ")))
	}
	return "telemetry validation failed: " + strings.Join(parts, "; ")
}

// Is makes ValidationError match fault.ErrData.
func (e *ValidationError) Is(target error) bool { return target == fault.ErrData }
// #endregion validation-error

// #region validate
// Validate checks one reading. No field is ever filled with a default.
func Validate(r Reading) ValidationResult {
	res := ValidationResult{ReadingID: r.ID}

	if r.DeviceID == "" {
		res.Errors = append(res.Errors, "missing required field: device_id")
	}
	if r.Timestamp.IsZero() {
		res.Errors = append(res.Errors, "missing required field: timestamp")
	}
	res.Errors = append(res.Errors, checkRange("flow_rate", r.FlowRate, FlowRange)...)
	res.Errors = append(res.Errors, checkRange("head_height", r.HeadHeight, HeadRange)...)
	res.Errors = append(res.Errors, checkRange("generated_kwh", r.GeneratedKwh, GeneratedRange)...)

	optional := []struct {
		name string
		v    *float64
		rng  Range
	}{
		{"ph", r.PH, PHRange},
		{"turbidity", r.Turbidity, TurbidityRange},
		{"temperature", r.Temperature, TemperatureRange},
		{"efficiency", r.Efficiency, EfficiencyRange},
	}
	for _, o := range optional {
		if o.v == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("optional field missing: %s", o.name))
			continue
		}
		res.Warnings = append(res.Warnings, checkRange(o.name, *o.v, o.rng)...)
	}
	return res
}

// ValidateBatch validates every reading and returns a *ValidationError
// listing the rejected ones. Warnings never fail the batch.
func ValidateBatch(readings []Reading) ([]ValidationResult, error) {
	results := make([]ValidationResult, len(readings))
	var failed []ValidationResult
	for i, r := range readings {
		results[i] = Validate(r)
		if !results[i].Valid() {
			failed = append(failed, results[i])
		}
	}
	if len(failed) > 0 {
		return results, &ValidationError{Results: failed}
	}
	return results, nil
}
// #endregion validate

// #region helpers
func checkRange(name string, v float64, rng Range) []string {
	if v < rng.Min {
		return []string{fmt.Sprintf("%s below minimum: %g < %g %s", name, v, rng.Min, rng.Unit)}
	}
	if v > rng.Max {
		return []string{fmt.Sprintf("%s above maximum: %g > %g %s", name, v, rng.Max, rng.Unit)}
	}
	return nil
}
// #endregion helpers

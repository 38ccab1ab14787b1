package telemetry

import "time"

// #region reading
// Reading is one sensor sample reported by a hydropower device.
// Optional sensors are nil when the device did not report them.
type Reading struct {
	ID           string    `json:"id"`
	DeviceID     string    `json:"device_id"`
	Timestamp    time.Time `json:"timestamp"`
	FlowRate     float64   `json:"flow_rate_m3_per_s"`
	HeadHeight   float64   `json:"head_height_m"`
	GeneratedKwh float64   `json:"generated_kwh"`
	PH           *float64  `json:"ph,omitempty"`
	Turbidity    *float64  `json:"turbidity_ntu,omitempty"`
	Temperature  *float64  `json:"temperature_celsius,omitempty"`
	Efficiency   *float64  `json:"efficiency,omitempty"`
}
// #endregion reading

// #region context
// Device carries the metadata the decision engine needs about a device.
type Device struct {
	ID              string `json:"id"`
	OperationalDays int    `json:"operational_days"`
}

// Stats is a precomputed statistical summary over recent readings.
type Stats struct {
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"std_dev"`
	Outliers int       `json:"outliers"`
	ZScores  []float64 `json:"z_scores"`
}

// Baseline holds historical averages for a device or the fleet.
type Baseline struct {
	AvgGeneration float64 `json:"avg_generation"`
	AvgFlow       float64 `json:"avg_flow"`
}

// Context is the read-only per-batch context shared by every reading.
// A nil Device means the device is unknown and is treated as new.
type Context struct {
	Device          *Device   `json:"device,omitempty"`
	RecentAnomalies int       `json:"recent_anomalies"`
	RecentReadings  []Reading `json:"recent_readings,omitempty"`
	Stats           *Stats    `json:"stats,omitempty"`
	DeviceBaseline  *Baseline `json:"device_baseline,omitempty"`
	FleetBaseline   *Baseline `json:"fleet_baseline,omitempty"`
}
// #endregion context

// #region validation-types
// Range is an inclusive numeric bound with a display unit.
type Range struct {
	Min  float64
	Max  float64
	Unit string
}

// ValidationResult is the outcome of checking one reading.
// Errors make the reading unusable; warnings mark it partial.
type ValidationResult struct {
	ReadingID string
	Errors    []string
	Warnings  []string
}

// Valid reports whether no errors were recorded.
func (r ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Partial reports whether the reading passed with warnings.
func (r ValidationResult) Partial() bool { return len(r.Warnings) > 0 }
// #endregion validation-types

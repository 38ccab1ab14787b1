package evidence

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// MaxSampleReadings bounds the recent readings copied into a bundle.
const MaxSampleReadings = 5

// #region bundle
// Operands are the five sub-check scores entering the trust formula.
type Operands struct {
	P float64 `json:"P"`
	T float64 `json:"T"`
	E float64 `json:"E"`
	S float64 `json:"S"`
	C float64 `json:"C"`
}

// TrustCalculation records how the trust score was derived.
type TrustCalculation struct {
	Formula  string   `json:"formula"`
	Operands Operands `json:"operands"`
	Result   float64  `json:"result"`
}

// Deviation is the relative distance of a reading from the device baseline.
type Deviation struct {
	Generation float64 `json:"generation"`
	Flow       float64 `json:"flow"`
}

// BaselineComparison places a reading against device and fleet baselines.
// Deviation is nil when no device baseline is known.
type BaselineComparison struct {
	DeviceBaseline *telemetry.Baseline `json:"device_baseline"`
	FleetBaseline  *telemetry.Baseline `json:"fleet_baseline"`
	Deviation      *Deviation          `json:"deviation"`
}

// Bundle is the self-contained record attached to an evidence-rich
// auto-approval so an auditor can reconstruct the decision.
type Bundle struct {
	ID                 string              `json:"id"`
	Timestamp          time.Time           `json:"timestamp"`
	ReadingID          string              `json:"reading_id"`
	DeviceID           string              `json:"device_id"`
	DerivationLog      checks.Checks       `json:"derivation_log"`
	TrustCalculation   TrustCalculation    `json:"trust_score_calculation"`
	SampleReadings     []telemetry.Reading `json:"sample_readings"`
	StatisticalSummary *telemetry.Stats    `json:"statistical_summary"`
	BaselineComparison BaselineComparison  `json:"baseline_comparison"`
	Digest             string              `json:"digest"`
}
// #endregion bundle

// #region errors
// DivisionByZeroError reports a baseline average of zero.
type DivisionByZeroError struct {
	Field string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero: device baseline %s average is 0", e.Field)
}

// Is makes DivisionByZeroError match fault.ErrArithmetic.
func (e *DivisionByZeroError) Is(target error) bool { return target == fault.ErrArithmetic }
// #endregion errors

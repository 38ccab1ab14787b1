package checks

// #region check-result
// CheckResult is the outcome of one graded sub-check.
type CheckResult struct {
	Score   float64            `json:"score"`
	Status  string             `json:"status"`
	Reason  string             `json:"reason,omitempty"`
	Details map[string]float64 `json:"details,omitempty"`
}

// Checks holds the five sub-check outcomes feeding the trust score.
type Checks struct {
	Physics       CheckResult `json:"physics"`
	Temporal      CheckResult `json:"temporal"`
	Environmental CheckResult `json:"environmental"`
	Statistical   CheckResult `json:"statistical"`
	Consistency   CheckResult `json:"consistency"`
}

// Result is the base verification output for one reading.
type Result struct {
	ReadingID  string  `json:"reading_id"`
	DeviceID   string  `json:"device_id"`
	Generation float64 `json:"generation"`
	Flow       float64 `json:"flow"`
	TrustScore float64 `json:"trust_score"`
	Checks     Checks  `json:"checks"`
}
// #endregion check-result

// #region weights
// Weights of each sub-check in the trust score. They sum to 1.
const (
	WeightPhysics       = 0.30
	WeightTemporal      = 0.25
	WeightEnvironmental = 0.20
	WeightStatistical   = 0.15
	WeightConsistency   = 0.10
)

// Formula is the human-readable trust score expression.
const Formula = "0.30*P + 0.25*T + 0.20*E + 0.15*S + 0.10*C"
// #endregion weights

// #region config
// DeviceProfile bounds the nameplate limits used by the consistency check.
type DeviceProfile struct {
	CapacityKwh   float64
	MaxFlow       float64
	MaxHead       float64
	MinEfficiency float64
	MaxEfficiency float64
}

// VerifierConfig holds the base verifier parameters.
type VerifierConfig struct {
	Profile DeviceProfile
	// DefaultEfficiency is used when a reading carries no efficiency.
	DefaultEfficiency float64
	// HistoryLimit caps the per-device history kept in memory.
	HistoryLimit int
}

// DefaultVerifierConfig returns the reference turbine profile.
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		Profile: DeviceProfile{
			CapacityKwh:   1000,
			MaxFlow:       10,
			MaxHead:       500,
			MinEfficiency: 0.70,
			MaxEfficiency: 0.95,
		},
		DefaultEfficiency: 0.85,
		HistoryLimit:      500,
	}
}
// #endregion config

package sampler

// #region config
// Config tunes the reference audit sampler.
type Config struct {
	// IncludeFlagged queues every flagged reading for review.
	IncludeFlagged bool `yaml:"include_flagged"`
	// MinSamples is the minimum number of auto-approved readings drawn
	// when any are eligible.
	MinSamples int `yaml:"min_samples"`
}

// DefaultConfig returns the sampler defaults.
func DefaultConfig() Config {
	return Config{IncludeFlagged: true, MinSamples: 1}
}
// #endregion config

// #region plan
// Sample reasons.
const (
	ReasonFlagged  = "flagged_for_review"
	ReasonRandom   = "random_audit"
	ReasonCoverage = "minimum_coverage"
)

// Sample is one reading selected for human audit.
type Sample struct {
	Index     int     `json:"index"`
	ReadingID string  `json:"reading_id"`
	DeviceID  string  `json:"device_id"`
	Reason    string  `json:"reason"`
	Rate      float64 `json:"rate"`
}

// Plan is the audit selection for one batch.
type Plan struct {
	Samples          []Sample `json:"samples"`
	Flagged          int      `json:"flagged"`
	ApprovedEligible int      `json:"approved_eligible"`
	ApprovedSampled  int      `json:"approved_sampled"`
	RealizedRate     float64  `json:"realized_rate"`
}
// #endregion plan

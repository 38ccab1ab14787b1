package graduation

// #region criteria
// Criteria are the thresholds a device must meet to leave strict mode.
type Criteria struct {
	MinOperationalDays    int     `json:"min_operational_days" yaml:"min_operational_days"`
	MaxAnomalyRatePercent float64 `json:"max_anomaly_rate_percent" yaml:"max_anomaly_rate_percent"`
	MinDataQualityPercent float64 `json:"min_data_quality_percent" yaml:"min_data_quality_percent"`
	VVBApprovalRequired   bool    `json:"vvb_approval_required" yaml:"vvb_approval_required"`
}

// StabilityDays is the fixed maintenance quiet period; it is not configurable.
const StabilityDays = 30

// DefaultCriteria returns the standard graduation thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinOperationalDays:    180,
		MaxAnomalyRatePercent: 2.0,
		MinDataQualityPercent: 95.0,
		VVBApprovalRequired:   false,
	}
}
// #endregion criteria

// #region history
// VVBApproved is the validation body status that satisfies the VVB check.
const VVBApproved = "APPROVED"

// History is a device's track record. AnomalyRate is a fraction in
// [0,1]; DataQuality is a percentage.
type History struct {
	DeviceID                 string  `json:"device_id"`
	OperationalDays          int     `json:"operational_days"`
	AnomalyRate              float64 `json:"anomaly_rate"`
	DataQuality              float64 `json:"data_quality"`
	VVBApprovalStatus        string  `json:"vvb_approval_status"`
	DaysSinceLastMaintenance int     `json:"days_since_last_maintenance"`
}
// #endregion history

// #region report
// Check names in evaluation order.
const (
	CheckOperationalTime = "operationalTime"
	CheckAnomalyRate     = "anomalyRate"
	CheckDataQuality     = "dataQuality"
	CheckVVBApproval     = "vvbApproval"
	CheckStability       = "stability"
)

// Check is one named graduation requirement.
type Check struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail"`
}

// Report is the outcome of a graduation evaluation.
type Report struct {
	DeviceID            string   `json:"device_id,omitempty"`
	Eligible            bool     `json:"eligible"`
	Checks              []Check  `json:"checks"`
	Recommendation      string   `json:"recommendation"`
	MissingRequirements []string `json:"missing_requirements"`
}

// Passed reports the outcome of the named check. Unknown names are false.
func (r Report) Passed(name string) bool {
	for _, c := range r.Checks {
		if c.Name == name {
			return c.Pass
		}
	}
	return false
}
// #endregion report

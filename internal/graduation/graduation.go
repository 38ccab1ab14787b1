package graduation

import "fmt"

// Recommendations returned in Report.Recommendation.
const (
	RecommendGraduate = "Device eligible for Mode B graduation"
	RecommendRemain   = "Device must remain in Mode A"
)

// #region evaluate
// Evaluate runs the five graduation checks in fixed order. The device is
// eligible only when every check passes.
func Evaluate(h History, c Criteria) Report {
	checks := []Check{
		{
			Name:   CheckOperationalTime,
			Pass:   h.OperationalDays >= c.MinOperationalDays,
			Detail: fmt.Sprintf("operational %d days, need %d", h.OperationalDays, c.MinOperationalDays),
		},
		{
			Name:   CheckAnomalyRate,
			Pass:   h.AnomalyRate <= c.MaxAnomalyRatePercent/100,
			Detail: fmt.Sprintf("anomaly rate %.2f%%, max %.2f%%", h.AnomalyRate*100, c.MaxAnomalyRatePercent),
		},
		{
			Name:   CheckDataQuality,
			Pass:   h.DataQuality >= c.MinDataQualityPercent,
			Detail: fmt.Sprintf("data quality %.1f%%, need %.1f%%", h.DataQuality, c.MinDataQualityPercent),
		},
		{
			Name:   CheckVVBApproval,
			Pass:   !c.VVBApprovalRequired || h.VVBApprovalStatus == VVBApproved,
			Detail: vvbDetail(h, c),
		},
		{
			Name:   CheckStability,
			Pass:   h.DaysSinceLastMaintenance >= StabilityDays,
			Detail: fmt.Sprintf("%d days since maintenance, need %d", h.DaysSinceLastMaintenance, StabilityDays),
		},
	}

	report := Report{
		DeviceID:            h.DeviceID,
		Eligible:            true,
		Checks:              checks,
		MissingRequirements: []string{},
	}
	for _, ch := range checks {
		if !ch.Pass {
			report.Eligible = false
			report.MissingRequirements = append(report.MissingRequirements, ch.Name)
		}
	}
	report.Recommendation = RecommendRemain
	if report.Eligible {
		report.Recommendation = RecommendGraduate
	}
	return report
}
// #endregion evaluate

// #region helpers
func vvbDetail(h History, c Criteria) string {
	if !c.VVBApprovalRequired {
		return "VVB approval not required"
	}
	status := h.VVBApprovalStatus
	if status == "" {
		status = "none"
	}
	return fmt.Sprintf("VVB status %s, need %s", status, VVBApproved)
}
// #endregion helpers

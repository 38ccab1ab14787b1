package decision

import (
	"fmt"
	"math"
)

// #region summarize
// Summarize counts decisions per outcome. ApprovalRate is the approved
// percentage with one decimal, "0.0%" for an empty batch.
func Summarize(decisions []Decision) BatchStats {
	s := BatchStats{Total: len(decisions)}
	var trust float64
	for _, d := range decisions {
		switch d.Outcome {
		case AutoApproved:
			s.Approved++
		case FlaggedForReview:
			s.Flagged++
		case Rejected:
			s.Rejected++
		}
		trust += d.TrustScore
	}
	if s.Total == 0 {
		s.ApprovalRate = "0.0%"
		return s
	}
	// Round half up: 1 of 16 is 6.3%.
	pct := float64(s.Approved) / float64(s.Total) * 100
	s.ApprovalRate = fmt.Sprintf("%.1f%%", math.Round(pct*10)/10)
	s.AverageTrust = math.Round(trust/float64(s.Total)*1e4) / 1e4
	return s
}
// #endregion summarize

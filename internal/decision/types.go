package decision

import (
	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/evidence"
)

// #region kind
// Kind is the outcome of classifying one reading.
type Kind string

const (
	AutoApproved     Kind = "AUTO_APPROVED"
	FlaggedForReview Kind = "FLAGGED_FOR_REVIEW"
	Rejected         Kind = "REJECTED"
)
// #endregion kind

// #region decision
// Decision is a base verification result plus its classification.
// SamplingRate is nil unless the reading was auto-approved. EvidenceBundle
// is set only for evidence-rich auto-approvals.
type Decision struct {
	checks.Result
	Outcome           Kind             `json:"decision"`
	Reasoning         string           `json:"reasoning"`
	RequiresSampling  bool             `json:"requires_sampling"`
	SamplingRate      *float64         `json:"sampling_rate"`
	EvidenceGenerated bool             `json:"evidence_generated"`
	EvidenceBundle    *evidence.Bundle `json:"evidence_bundle,omitempty"`
}
// #endregion decision

// #region batch-stats
// BatchStats summarizes the outcomes of one batch.
type BatchStats struct {
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Flagged      int     `json:"flagged"`
	Rejected     int     `json:"rejected"`
	ApprovalRate string  `json:"approval_rate"`
	AverageTrust float64 `json:"average_trust"`
}
// #endregion batch-stats

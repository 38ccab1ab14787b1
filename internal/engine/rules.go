package engine

import (
	"fmt"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/sampling"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// rule classifies one result under a preset. Rules never attach evidence;
// they only mark EvidenceGenerated.
type rule func(p policy.Preset, r checks.Result, tctx telemetry.Context) decision.Decision

// #region rule-table
var rules = map[policy.Mode]rule{
	policy.ModeStrict:       strictRule,
	policy.ModeEvidenceRich: evidenceRichRule,
}
// #endregion rule-table

// #region strict
// strictRule is Mode A: high bar, fixed sampling, no evidence bundle.
func strictRule(p policy.Preset, r checks.Result, _ telemetry.Context) decision.Decision {
	d := decision.Decision{Result: r}
	t := r.TrustScore
	switch {
	case t >= p.AutoApprove:
		rate := sampling.StrictRate
		d.Outcome = decision.AutoApproved
		d.RequiresSampling = true
		d.SamplingRate = &rate
		d.Reasoning = fmt.Sprintf("Mode A (strict): trust %.3f >= %.2f, auto-approved with %.0f%% sampling", t, p.AutoApprove, rate*100)
	case t >= p.Flag:
		d.Outcome = decision.FlaggedForReview
		d.Reasoning = fmt.Sprintf("Mode A (strict): trust %.3f below %.2f, flagged for human review", t, p.AutoApprove)
	default:
		d.Outcome = decision.Rejected
		d.Reasoning = fmt.Sprintf("Mode A (strict): trust %.3f < %.2f, rejected", t, p.Reject)
	}
	return d
}
// #endregion strict

// #region evidence-rich
// evidenceRichRule is Mode B: lower bar, adaptive sampling, evidence
// bundle on auto-approval.
func evidenceRichRule(p policy.Preset, r checks.Result, tctx telemetry.Context) decision.Decision {
	d := decision.Decision{Result: r}
	t := r.TrustScore
	switch {
	case t >= p.AutoApprove:
		rate := sampling.AdaptiveRate(r, tctx)
		d.Outcome = decision.AutoApproved
		d.RequiresSampling = true
		d.SamplingRate = &rate
		d.EvidenceGenerated = true
		d.Reasoning = fmt.Sprintf("Mode B (evidence-rich): trust %.3f >= %.2f, auto-approved with %.1f%% adaptive sampling", t, p.AutoApprove, rate*100)
	case t >= p.Flag:
		d.Outcome = decision.FlaggedForReview
		d.Reasoning = fmt.Sprintf("Mode B (evidence-rich): trust %.3f in %.2f-%.2f, targeted review", t, p.Flag, p.AutoApprove)
	default:
		d.Outcome = decision.Rejected
		d.Reasoning = fmt.Sprintf("Mode B (evidence-rich): trust %.3f < %.2f, rejected", t, p.Reject)
	}
	return d
}
// #endregion evidence-rich

package engine

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
	"github.com/danielpatrickdp/mrv-verifier/internal/evidence"
	"github.com/danielpatrickdp/mrv-verifier/internal/graduation"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region engine
// Engine classifies base verification results under one verification mode.
// The mode, preset and rule are fixed at construction.
type Engine struct {
	base     BaseVerifier
	sampler  Sampler
	evidence *evidence.Builder

	mode     policy.Mode
	preset   policy.Preset
	rule     rule
	criteria graduation.Criteria
	workers  int
	log      zerolog.Logger
}

// New resolves the mode and builds an engine around base and smp. An
// unknown mode fails here, before any reading is verified.
func New(opts Options, base BaseVerifier, smp Sampler) (*Engine, error) {
	mode := policy.Normalize(opts.Mode)
	preset, err := policy.Resolve(mode)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	r, ok := rules[mode]
	if !ok {
		return nil, fmt.Errorf("new engine: %w", &policy.UnknownModeError{Mode: mode})
	}
	if base == nil {
		return nil, &MissingDependencyError{Name: "base verifier"}
	}
	if smp == nil {
		return nil, &MissingDependencyError{Name: "sampler"}
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	criteria := graduation.DefaultCriteria()
	if opts.Criteria != nil {
		criteria = *opts.Criteria
	}
	logger := log.With().Str("component", "engine").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Engine{
		base:     base,
		sampler:  smp,
		evidence: evidence.NewBuilder(rng),
		mode:     mode,
		preset:   preset,
		rule:     r,
		criteria: criteria,
		workers:  workers,
		log:      logger,
	}, nil
}

// Mode returns the resolved verification mode.
func (e *Engine) Mode() policy.Mode { return e.mode }

// Thresholds returns the resolved preset.
func (e *Engine) Thresholds() policy.Preset { return e.preset }

// Criteria returns the graduation criteria in effect.
func (e *Engine) Criteria() graduation.Criteria { return e.criteria }
// #endregion engine

// #region classify
// Classify decides one result and attaches its evidence bundle when the
// mode calls for one.
func (e *Engine) Classify(r checks.Result, tctx telemetry.Context) (decision.Decision, error) {
	d := e.rule(e.preset, r, tctx)
	if err := e.attachEvidence(&d, tctx); err != nil {
		return decision.Decision{}, err
	}
	return d, nil
}

func (e *Engine) attachEvidence(d *decision.Decision, tctx telemetry.Context) error {
	if !d.EvidenceGenerated {
		return nil
	}
	b, err := e.evidence.Build(d.Result, tctx)
	if err != nil {
		return fmt.Errorf("evidence for reading %s: %w", d.ReadingID, err)
	}
	d.EvidenceBundle = b
	return nil
}
// #endregion classify

// #region verify-batch
// VerifyBatch runs the base verifier once, classifies every result in
// parallel, attaches evidence in input order, asks the sampler for an
// audit plan and summarizes the batch. Decisions keep input order.
func (e *Engine) VerifyBatch(ctx context.Context, readings []telemetry.Reading, tctx telemetry.Context) (*BatchResult, error) {
	start := time.Now()
	e.log.Debug().Int("readings", len(readings)).Str("mode", string(e.mode)).Msg("verify batch")

	results, err := e.base.VerifyBatch(ctx, readings, tctx)
	if err != nil {
		return nil, fmt.Errorf("base verify: %w", err)
	}
	if len(results) != len(readings) {
		return nil, &ResultCountError{Readings: len(readings), Results: len(results)}
	}

	decisions := make([]decision.Decision, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range results {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decisions[i] = e.rule(e.preset, results[i], tctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	// Sequential so the evidence random source is consumed in input order.
	for i := range decisions {
		if err := e.attachEvidence(&decisions[i], tctx); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan, err := e.sampler.SelectSamples(decisions, tctx)
	if err != nil {
		return nil, fmt.Errorf("select samples: %w", err)
	}

	stats := decision.Summarize(decisions)
	e.log.Info().
		Str("mode", string(e.mode)).
		Int("total", stats.Total).
		Int("approved", stats.Approved).
		Int("flagged", stats.Flagged).
		Int("rejected", stats.Rejected).
		Str("approval_rate", stats.ApprovalRate).
		Int("samples", len(plan.Samples)).
		Dur("elapsed", time.Since(start)).
		Msg("batch verified")

	return &BatchResult{
		Decisions:    decisions,
		SamplingPlan: plan,
		Mode:         e.mode,
		Thresholds:   e.preset,
		Stats:        stats,
	}, nil
}
// #endregion verify-batch

// #region graduation
// CheckGraduationEligibility evaluates a device history against the
// engine's graduation criteria.
func (e *Engine) CheckGraduationEligibility(h graduation.History) graduation.Report {
	report := graduation.Evaluate(h, e.criteria)
	e.log.Info().
		Str("device", h.DeviceID).
		Bool("eligible", report.Eligible).
		Strs("missing", report.MissingRequirements).
		Msg("graduation check")
	return report
}
// #endregion graduation

package replay

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
	"github.com/danielpatrickdp/mrv-verifier/internal/engine"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/sampler"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region types
// ReplayConfig selects the mode and seeds for a replay run.
type ReplayConfig struct {
	Mode    policy.Mode
	Seed    int64
	Sampler sampler.Config
}

// DefaultReplayConfig returns strict mode with a fixed seed.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Mode:    policy.DefaultMode,
		Seed:    1,
		Sampler: sampler.DefaultConfig(),
	}
}

// ReplayResult captures the decision replayed for one stored result.
type ReplayResult struct {
	ReadingID    string
	Decision     decision.Kind
	Reason       string
	TrustScore   float64
	SamplingRate *float64
	Sampled      bool
	EvidenceID   string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalReadings int
	Approved      int
	Flagged       int
	Rejected      int
	Sampled       int
	Evidence      int
}

// #endregion types

// #region static-verifier
// StaticVerifier serves stored results instead of re-running the checks.
type StaticVerifier struct {
	byID map[string]checks.Result
}

// NewStaticVerifier indexes results by reading ID.
func NewStaticVerifier(results []checks.Result) *StaticVerifier {
	byID := make(map[string]checks.Result, len(results))
	for _, r := range results {
		byID[r.ReadingID] = r
	}
	return &StaticVerifier{byID: byID}
}

// VerifyBatch returns the stored result for each reading in input order.
func (s *StaticVerifier) VerifyBatch(_ context.Context, readings []telemetry.Reading, _ telemetry.Context) ([]checks.Result, error) {
	out := make([]checks.Result, 0, len(readings))
	for _, r := range readings {
		res, ok := s.byID[r.ID]
		if !ok {
			return nil, fmt.Errorf("no stored result for reading %s", r.ID)
		}
		out = append(out, res)
	}
	return out, nil
}

// ReadingsFor rebuilds minimal readings carrying the IDs of results.
func ReadingsFor(results []checks.Result) []telemetry.Reading {
	out := make([]telemetry.Reading, len(results))
	for i, r := range results {
		out[i] = telemetry.Reading{
			ID:           r.ReadingID,
			DeviceID:     r.DeviceID,
			FlowRate:     r.Flow,
			GeneratedKwh: r.Generation,
		}
	}
	return out
}
// #endregion static-verifier

// #region replay
// Replay reclassifies stored results through the decision engine under
// config. Runs are reproducible for a fixed seed.
func Replay(ctx context.Context, results []checks.Result, tctx telemetry.Context, config ReplayConfig) ([]ReplayResult, error) {
	quiet := zerolog.Nop()
	eng, err := engine.New(engine.Options{
		Mode:   config.Mode,
		Rand:   rand.New(rand.NewSource(config.Seed)),
		Logger: &quiet,
	}, NewStaticVerifier(results), sampler.NewSeeded(config.Sampler, config.Seed))
	if err != nil {
		return nil, err
	}

	batch, err := eng.VerifyBatch(ctx, ReadingsFor(results), tctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	sampled := make(map[int]bool, len(batch.SamplingPlan.Samples))
	for _, s := range batch.SamplingPlan.Samples {
		sampled[s.Index] = true
	}

	out := make([]ReplayResult, len(batch.Decisions))
	for i, d := range batch.Decisions {
		out[i] = ReplayResult{
			ReadingID:    d.ReadingID,
			Decision:     d.Outcome,
			Reason:       d.Reasoning,
			TrustScore:   d.TrustScore,
			SamplingRate: d.SamplingRate,
			Sampled:      sampled[i],
		}
		if d.EvidenceBundle != nil {
			out[i].EvidenceID = d.EvidenceBundle.ID
		}
	}
	return out, nil
}

// ReplayFixture runs Replay with the fixture's own results, context and config.
func ReplayFixture(ctx context.Context, f *Fixture) ([]ReplayResult, error) {
	return Replay(ctx, f.Results, f.Context, f.Config.ToReplayConfig())
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalReadings: len(results)}
	for _, r := range results {
		switch r.Decision {
		case decision.AutoApproved:
			s.Approved++
		case decision.FlaggedForReview:
			s.Flagged++
		case decision.Rejected:
			s.Rejected++
		}
		if r.Sampled {
			s.Sampled++
		}
		if r.EvidenceID != "" {
			s.Evidence++
		}
	}
	return s
}

// #endregion replay

package sampler

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region sampler
// Sampler draws audit samples from a batch of decisions.
type Sampler struct {
	config Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a sampler drawing from rng.
func New(config Config, rng *rand.Rand) *Sampler {
	return &Sampler{config: config, rng: rng}
}

// NewSeeded creates a sampler with a deterministic source.
func NewSeeded(config Config, seed int64) *Sampler {
	return New(config, rand.New(rand.NewSource(seed)))
}

// SelectSamples builds the audit plan. Auto-approved readings that require
// sampling are drawn with their own sampling rate; flagged readings are
// queued when configured. Samples are returned in batch order.
func (s *Sampler) SelectSamples(decisions []decision.Decision, _ telemetry.Context) (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var plan Plan
	var skipped []int
	for i, d := range decisions {
		switch d.Outcome {
		case decision.FlaggedForReview:
			plan.Flagged++
			if s.config.IncludeFlagged {
				plan.Samples = append(plan.Samples, sampleOf(i, d, ReasonFlagged, 1))
			}
		case decision.AutoApproved:
			if !d.RequiresSampling || d.SamplingRate == nil {
				continue
			}
			rate := *d.SamplingRate
			if rate < 0 || rate > 1 {
				return Plan{}, fmt.Errorf("reading %s: sampling rate %v outside [0,1]: %w", d.ReadingID, rate, fault.ErrData)
			}
			plan.ApprovedEligible++
			if s.rng.Float64() < rate {
				plan.Samples = append(plan.Samples, sampleOf(i, d, ReasonRandom, rate))
				plan.ApprovedSampled++
			} else {
				skipped = append(skipped, i)
			}
		}
	}

	if short := s.config.MinSamples - plan.ApprovedSampled; short > 0 && len(skipped) > 0 {
		for _, p := range s.rng.Perm(len(skipped)) {
			if short == 0 {
				break
			}
			i := skipped[p]
			plan.Samples = append(plan.Samples, sampleOf(i, decisions[i], ReasonCoverage, *decisions[i].SamplingRate))
			plan.ApprovedSampled++
			short--
		}
	}

	sort.Slice(plan.Samples, func(a, b int) bool { return plan.Samples[a].Index < plan.Samples[b].Index })
	if plan.ApprovedEligible > 0 {
		plan.RealizedRate = float64(plan.ApprovedSampled) / float64(plan.ApprovedEligible)
	}
	return plan, nil
}
// #endregion sampler

// #region helpers
func sampleOf(i int, d decision.Decision, reason string, rate float64) Sample {
	return Sample{Index: i, ReadingID: d.ReadingID, DeviceID: d.DeviceID, Reason: reason, Rate: rate}
}
// #endregion helpers

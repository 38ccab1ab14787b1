package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region builder
// Builder assembles evidence bundles. Sample selection draws from the
// injected random source, so a seeded source gives reproducible bundles
// when Build is called in a fixed order.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewBuilder creates a builder drawing samples from rng.
func NewBuilder(rng *rand.Rand) *Builder {
	return &Builder{rng: rng, now: func() time.Time { return time.Now().UTC() }}
}

// NewSeededBuilder creates a builder with a deterministic source.
func NewSeededBuilder(seed int64) *Builder {
	return NewBuilder(rand.New(rand.NewSource(seed)))
}

// WithClock replaces the timestamp source and returns the builder.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build creates the bundle for one auto-approved result.
func (b *Builder) Build(result checks.Result, tctx telemetry.Context) (*Bundle, error) {
	cmp, err := compareBaseline(result, tctx)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{
		ID:            uuid.New().String(),
		Timestamp:     b.now(),
		ReadingID:     result.ReadingID,
		DeviceID:      result.DeviceID,
		DerivationLog: result.Checks,
		TrustCalculation: TrustCalculation{
			Formula: checks.Formula,
			Operands: Operands{
				P: result.Checks.Physics.Score,
				T: result.Checks.Temporal.Score,
				E: result.Checks.Environmental.Score,
				S: result.Checks.Statistical.Score,
				C: result.Checks.Consistency.Score,
			},
			Result: result.TrustScore,
		},
		SampleReadings:     b.sample(tctx.RecentReadings),
		StatisticalSummary: summary(tctx),
		BaselineComparison: cmp,
	}

	digest, err := Digest(bundle)
	if err != nil {
		return nil, err
	}
	bundle.Digest = digest
	return bundle, nil
}

// sample draws up to MaxSampleReadings readings without replacement.
func (b *Builder) sample(recent []telemetry.Reading) []telemetry.Reading {
	n := len(recent)
	if n > MaxSampleReadings {
		n = MaxSampleReadings
	}
	out := make([]telemetry.Reading, 0, n)
	if n == 0 {
		return out
	}
	b.mu.Lock()
	perm := b.rng.Perm(len(recent))
	b.mu.Unlock()
	for _, i := range perm[:n] {
		out = append(out, recent[i])
	}
	return out
}
// #endregion builder

// #region baseline
func compareBaseline(result checks.Result, tctx telemetry.Context) (BaselineComparison, error) {
	cmp := BaselineComparison{DeviceBaseline: tctx.DeviceBaseline, FleetBaseline: tctx.FleetBaseline}
	base := tctx.DeviceBaseline
	if base == nil {
		return cmp, nil
	}
	if base.AvgGeneration == 0 {
		return cmp, &DivisionByZeroError{Field: "generation"}
	}
	if base.AvgFlow == 0 {
		return cmp, &DivisionByZeroError{Field: "flow"}
	}
	cmp.Deviation = &Deviation{
		Generation: math.Abs(result.Generation-base.AvgGeneration) / base.AvgGeneration,
		Flow:       math.Abs(result.Flow-base.AvgFlow) / base.AvgFlow,
	}
	return cmp, nil
}

// summary prefers precomputed context stats and otherwise derives them
// from the recent readings.
func summary(tctx telemetry.Context) *telemetry.Stats {
	if tctx.Stats != nil {
		return tctx.Stats
	}
	return telemetry.ComputeStats(tctx.RecentReadings)
}
// #endregion baseline

// #region digest
// Digest is the hex SHA-256 of the bundle's JSON with the digest field
// cleared.
func Digest(b *Bundle) (string, error) {
	c := *b
	c.Digest = ""
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyDigest reports whether the bundle's stored digest matches its content.
func VerifyDigest(b *Bundle) (bool, error) {
	d, err := Digest(b)
	if err != nil {
		return false, err
	}
	return d == b.Digest, nil
}
// #endregion digest

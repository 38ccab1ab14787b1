package checks

import (
	"context"
	"fmt"
	"sync"

	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region verifier
// Verifier is the reference base verification engine. It runs the five
// graded checks per reading and keeps a bounded per-device history for
// the temporal and statistical checks.
type Verifier struct {
	config VerifierConfig

	mu      sync.Mutex
	history map[string][]telemetry.Reading
}

// NewVerifier creates a verifier with the given configuration.
func NewVerifier(config VerifierConfig) *Verifier {
	return &Verifier{config: config, history: make(map[string][]telemetry.Reading)}
}

// VerifyBatch validates and scores readings in order. Readings of the same
// device see each other as history, so the batch is processed sequentially.
func (v *Verifier) VerifyBatch(ctx context.Context, readings []telemetry.Reading, tctx telemetry.Context) ([]Result, error) {
	if _, err := telemetry.ValidateBatch(readings); err != nil {
		return nil, fmt.Errorf("base verify: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	results := make([]Result, 0, len(readings))
	for _, r := range readings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, v.verifyOne(r, tctx))
	}
	return results, nil
}

// verifyOne scores r and appends it to its device history. Caller holds mu.
func (v *Verifier) verifyOne(r telemetry.Reading, tctx telemetry.Context) Result {
	hist := v.deviceHistory(r.DeviceID, tctx)
	var prev *telemetry.Reading
	if len(hist) > 0 {
		prev = &hist[len(hist)-1]
	}

	c := Checks{
		Physics:       Physics(r, v.config.DefaultEfficiency),
		Temporal:      Temporal(r, prev),
		Environmental: Environmental(r),
		Statistical:   Statistical(r, hist),
		Consistency:   Consistency(r, v.config.Profile, v.config.DefaultEfficiency),
	}

	hist = append(hist, r)
	if lim := v.config.HistoryLimit; lim > 0 && len(hist) > lim {
		hist = hist[len(hist)-lim:]
	}
	v.history[r.DeviceID] = hist

	return Result{
		ReadingID:  r.ID,
		DeviceID:   r.DeviceID,
		Generation: r.GeneratedKwh,
		Flow:       r.FlowRate,
		TrustScore: TrustScore(c),
		Checks:     c,
	}
}

// deviceHistory returns the history for a device, seeding it from the
// batch context's recent readings the first time the device is seen.
func (v *Verifier) deviceHistory(deviceID string, tctx telemetry.Context) []telemetry.Reading {
	if h, ok := v.history[deviceID]; ok {
		return h
	}
	var seed []telemetry.Reading
	for _, r := range tctx.RecentReadings {
		if r.DeviceID == deviceID {
			seed = append(seed, r)
		}
	}
	v.history[deviceID] = seed
	return seed
}

// Reset drops all per-device history.
func (v *Verifier) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = make(map[string][]telemetry.Reading)
}
// #endregion verifier

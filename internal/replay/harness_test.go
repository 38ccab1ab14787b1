package replay

import (
	"context"
	"errors"
	"testing"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// helper: stored results with the given trust scores.
func stored(trusts ...float64) []checks.Result {
	out := make([]checks.Result, len(trusts))
	for i, t := range trusts {
		out[i] = checks.Result{
			ReadingID:  string(rune('a' + i)),
			DeviceID:   "TURBINE-1",
			Generation: 900,
			Flow:       2.5,
			TrustScore: t,
		}
	}
	return out
}

func matureContext() telemetry.Context {
	return telemetry.Context{
		Device:         &telemetry.Device{ID: "TURBINE-1", OperationalDays: 365},
		DeviceBaseline: &telemetry.Baseline{AvgGeneration: 900, AvgFlow: 2.5},
	}
}

// 1. Reclassification follows the mode thresholds.
func TestReplay_ModesDiffer(t *testing.T) {
	results := stored(0.95)

	strict, err := Replay(context.Background(), results, matureContext(), DefaultReplayConfig())
	if err != nil {
		t.Fatalf("strict replay: %v", err)
	}
	if strict[0].Decision != decision.FlaggedForReview {
		t.Errorf("expected strict to flag 0.95, got %s", strict[0].Decision)
	}

	config := DefaultReplayConfig()
	config.Mode = policy.ModeEvidenceRich
	rich, err := Replay(context.Background(), results, matureContext(), config)
	if err != nil {
		t.Fatalf("evidence-rich replay: %v", err)
	}
	if rich[0].Decision != decision.AutoApproved {
		t.Errorf("expected evidence-rich to approve 0.95, got %s", rich[0].Decision)
	}
}

// 2. Same seed gives the same sampling plan.
func TestReplay_Reproducible(t *testing.T) {
	results := stored(0.99, 0.98, 0.985, 0.975, 0.99, 0.991, 0.972, 0.999)
	a, err := Replay(context.Background(), results, matureContext(), DefaultReplayConfig())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	b, err := Replay(context.Background(), results, matureContext(), DefaultReplayConfig())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for i := range a {
		if a[i].Sampled != b[i].Sampled {
			t.Fatalf("reading %s: sampling differs between runs", a[i].ReadingID)
		}
	}
}

// 3. Unknown mode is a configuration error.
func TestReplay_UnknownMode(t *testing.T) {
	config := DefaultReplayConfig()
	config.Mode = "lenient"
	_, err := Replay(context.Background(), stored(0.9), telemetry.Context{}, config)
	if !errors.Is(err, fault.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

// 4. Empty input yields no results.
func TestReplay_Empty(t *testing.T) {
	results, err := Replay(context.Background(), nil, telemetry.Context{}, DefaultReplayConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestStaticVerifier_MissingResult(t *testing.T) {
	v := NewStaticVerifier(stored(0.9))
	_, err := v.VerifyBatch(context.Background(), []telemetry.Reading{{ID: "zz"}}, telemetry.Context{})
	if err == nil {
		t.Fatal("expected error for reading without stored result")
	}
}

func TestStaticVerifier_InputOrder(t *testing.T) {
	v := NewStaticVerifier(stored(0.1, 0.2, 0.3))
	got, err := v.VerifyBatch(context.Background(), []telemetry.Reading{{ID: "c"}, {ID: "a"}}, telemetry.Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].TrustScore != 0.3 || got[1].TrustScore != 0.1 {
		t.Fatalf("expected results in reading order, got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]ReplayResult{
		{Decision: decision.AutoApproved, Sampled: true, EvidenceID: "e1"},
		{Decision: decision.FlaggedForReview, Sampled: true},
		{Decision: decision.Rejected},
	})
	if s.TotalReadings != 3 || s.Approved != 1 || s.Flagged != 1 || s.Rejected != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.Sampled != 2 || s.Evidence != 1 {
		t.Errorf("unexpected sampled/evidence %+v", s)
	}
}

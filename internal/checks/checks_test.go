package checks

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region helpers
func fp(v float64) *float64 { return &v }

// reading returns a sample whose generation matches hydraulic power
// (2.5 m3/s * 45 m * 0.85 gives 938.08 kW).
func reading(id string, gen float64) telemetry.Reading {
	return telemetry.Reading{
		ID:           id,
		DeviceID:     "TURBINE-1",
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		FlowRate:     2.5,
		HeadHeight:   45,
		GeneratedKwh: gen,
		PH:           fp(7.2),
		Turbidity:    fp(12),
		Temperature:  fp(18),
		Efficiency:   fp(0.85),
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// #endregion helpers

// #region graded-tests
func TestPhysics_Bands(t *testing.T) {
	const expected = 938.08125
	cases := []struct {
		dev    float64
		score  float64
		status string
	}{
		{0.0, 1.0, "PERFECT"},
		{0.07, 0.95, "EXCELLENT"},
		{0.12, 0.85, "GOOD"},
		{0.17, 0.70, "ACCEPTABLE"},
		{0.25, 0.50, "QUESTIONABLE"},
		{0.40, 0.0, "FAIL"},
	}
	for _, c := range cases {
		r := reading("r", expected*(1+c.dev))
		got := Physics(r, 0.85)
		if got.Score != c.score || got.Status != c.status {
			t.Errorf("deviation %.2f: expected %.2f/%s, got %.2f/%s", c.dev, c.score, c.status, got.Score, got.Status)
		}
	}
}

func TestPhysics_FailHasReason(t *testing.T) {
	got := Physics(reading("r", 2000), 0.85)
	if got.Reason == "" {
		t.Fatal("expected reason on failing physics check")
	}
}

func TestPhysics_DefaultEfficiency(t *testing.T) {
	r := reading("r", 938)
	r.Efficiency = nil
	if got := Physics(r, 0.85); got.Status != "PERFECT" {
		t.Fatalf("expected PERFECT with default efficiency, got %s", got.Status)
	}
}

func TestTemporal_FirstReading(t *testing.T) {
	got := Temporal(reading("r", 900), nil)
	if got.Score != 1.0 || got.Status != "FIRST_READING" {
		t.Fatalf("expected FIRST_READING/1.0, got %s/%.2f", got.Status, got.Score)
	}
}

func TestTemporal_MultipliesPenalties(t *testing.T) {
	prev := reading("p", 1000)
	cur := reading("c", 1150) // 15% generation change -> 0.95
	cur.HeadHeight = 48       // 6.7% head change -> 0.95
	got := Temporal(cur, &prev)
	if !near(got.Score, 0.9025) {
		t.Fatalf("expected 0.9025, got %.4f", got.Score)
	}
	if got.Status != "PASS" {
		t.Fatalf("expected PASS, got %s", got.Status)
	}
}

func TestTemporal_ChangeFromZeroIsFinite(t *testing.T) {
	prev := reading("p", 0)
	got := Temporal(reading("c", 834), &prev)
	if d := got.Details["generation_change_pct"]; d != UndefinedChange {
		t.Fatalf("expected generation_change_pct %.0f, got %v", UndefinedChange, d)
	}
	if !near(got.Score, 0.30) {
		t.Fatalf("expected worst generation band 0.30, got %.4f", got.Score)
	}
	if got.Reason == "" {
		t.Fatal("expected a reason for the undefined change")
	}
}

func TestEnvironmental_MissingSensorsSkipped(t *testing.T) {
	r := reading("r", 900)
	r.PH, r.Turbidity, r.Temperature = nil, nil, nil
	got := Environmental(r)
	if got.Score != 1.0 || got.Status != "NO_SENSORS" {
		t.Fatalf("expected NO_SENSORS/1.0, got %s/%.2f", got.Status, got.Score)
	}
}

func TestEnvironmental_Graded(t *testing.T) {
	r := reading("r", 900)
	r.PH = fp(9.2)         // questionable 0.80
	r.Temperature = fp(50) // out of range 0.30
	got := Environmental(r)
	if !near(got.Score, 0.24) {
		t.Fatalf("expected 0.24, got %.4f", got.Score)
	}
	if got.Status != "FAIL" || got.Reason == "" {
		t.Fatalf("expected FAIL with reason, got %s %q", got.Status, got.Reason)
	}
}

func TestStatistical(t *testing.T) {
	if got := Statistical(reading("r", 900), nil); got.Status != "NO_HISTORY" {
		t.Fatalf("expected NO_HISTORY, got %s", got.Status)
	}
	var hist []telemetry.Reading
	for _, g := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		hist = append(hist, reading("h", g))
	}
	// mean 5, std 2
	if got := Statistical(reading("r", 6), hist); got.Status != "NORMAL" {
		t.Fatalf("expected NORMAL, got %s", got.Status)
	}
	if got := Statistical(reading("r", 9.5), hist); got.Status != "QUESTIONABLE" || got.Score != 0.85 {
		t.Fatalf("expected QUESTIONABLE/0.85, got %s/%.2f", got.Status, got.Score)
	}
	if got := Statistical(reading("r", 20), hist); got.Status != "OUTLIER" || got.Reason == "" {
		t.Fatalf("expected OUTLIER with reason, got %s", got.Status)
	}
}

func TestConsistency(t *testing.T) {
	p := DefaultVerifierConfig().Profile
	if got := Consistency(reading("r", 900), p, 0.85); got.Score != 1.0 {
		t.Fatalf("expected 1.0, got %.2f", got.Score)
	}
	r := reading("r", 1200)
	r.FlowRate = 12
	got := Consistency(r, p, 0.85)
	if !near(got.Score, 0.25) || got.Status != "FAIL" {
		t.Fatalf("expected FAIL/0.25, got %s/%.4f", got.Status, got.Score)
	}
}

func TestTrustScore_Weighted(t *testing.T) {
	c := Checks{
		Physics:       CheckResult{Score: 1.0},
		Temporal:      CheckResult{Score: 0.95},
		Environmental: CheckResult{Score: 0.80},
		Statistical:   CheckResult{Score: 0.70},
		Consistency:   CheckResult{Score: 0.50},
	}
	if got := TrustScore(c); !near(got, 0.8525) {
		t.Fatalf("expected 0.8525, got %.4f", got)
	}
}

// #endregion graded-tests

// #region verifier-tests
func TestVerifier_CleanReadingsScoreFull(t *testing.T) {
	v := NewVerifier(DefaultVerifierConfig())
	results, err := v.VerifyBatch(context.Background(),
		[]telemetry.Reading{reading("r1", 938), reading("r2", 940)}, telemetry.Context{})
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ReadingID != "r1" || results[1].ReadingID != "r2" {
		t.Fatalf("expected input order, got %s,%s", results[0].ReadingID, results[1].ReadingID)
	}
	if results[0].TrustScore != 1.0 {
		t.Fatalf("expected trust 1.0, got %.4f", results[0].TrustScore)
	}
	if results[1].Checks.Temporal.Status != "PASS" {
		t.Fatalf("expected second reading to use first as history, got %s", results[1].Checks.Temporal.Status)
	}
	if results[0].Generation != 938 || results[0].Flow != 2.5 {
		t.Fatalf("expected generation/flow carried through, got %.1f/%.1f", results[0].Generation, results[0].Flow)
	}
}

func TestVerifier_SeedsHistoryFromContext(t *testing.T) {
	v := NewVerifier(DefaultVerifierConfig())
	tctx := telemetry.Context{RecentReadings: []telemetry.Reading{reading("old", 930)}}
	results, err := v.VerifyBatch(context.Background(), []telemetry.Reading{reading("r1", 938)}, tctx)
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if results[0].Checks.Temporal.Status == "FIRST_READING" {
		t.Fatal("expected context readings to seed history")
	}
}

func TestVerifier_ZeroGenerationHistoryIsSerializable(t *testing.T) {
	v := NewVerifier(DefaultVerifierConfig())
	shutdown := reading("old", 0)
	shutdown.FlowRate = 0
	tctx := telemetry.Context{RecentReadings: []telemetry.Reading{shutdown}}
	results, err := v.VerifyBatch(context.Background(), []telemetry.Reading{reading("r1", 834)}, tctx)
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if _, err := json.Marshal(results[0]); err != nil {
		t.Fatalf("expected result to marshal, got %v", err)
	}
}

func TestVerifier_InvalidReadingIsDataError(t *testing.T) {
	v := NewVerifier(DefaultVerifierConfig())
	bad := reading("bad", 938)
	bad.HeadHeight = 0
	_, err := v.VerifyBatch(context.Background(), []telemetry.Reading{bad}, telemetry.Context{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, fault.ErrData) {
		t.Fatalf("expected data kind, got %v", err)
	}
}

func TestVerifier_HistoryLimit(t *testing.T) {
	cfg := DefaultVerifierConfig()
	cfg.HistoryLimit = 2
	v := NewVerifier(cfg)
	batch := []telemetry.Reading{reading("a", 938), reading("b", 938), reading("c", 938)}
	if _, err := v.VerifyBatch(context.Background(), batch, telemetry.Context{}); err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if got := len(v.history["TURBINE-1"]); got != 2 {
		t.Fatalf("expected history capped at 2, got %d", got)
	}
	v.Reset()
	if len(v.history) != 0 {
		t.Fatal("expected empty history after reset")
	}
}

func TestVerifier_CancelledContext(t *testing.T) {
	v := NewVerifier(DefaultVerifierConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.VerifyBatch(ctx, []telemetry.Reading{reading("a", 938)}, telemetry.Context{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// #endregion verifier-tests

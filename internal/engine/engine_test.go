package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
	"github.com/danielpatrickdp/mrv-verifier/internal/evidence"
	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/graduation"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/sampler"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region fakes
// fakeBase scores each reading with the trust listed for its ID.
type fakeBase struct {
	trust map[string]float64
	calls atomic.Int32
	err   error
	drop  bool
}

func (f *fakeBase) VerifyBatch(_ context.Context, readings []telemetry.Reading, _ telemetry.Context) ([]checks.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]checks.Result, 0, len(readings))
	for _, r := range readings {
		out = append(out, checks.Result{
			ReadingID:  r.ID,
			DeviceID:   r.DeviceID,
			Generation: 110,
			Flow:       2.0,
			TrustScore: f.trust[r.ID],
		})
	}
	if f.drop && len(out) > 0 {
		out = out[1:]
	}
	return out, nil
}

type fakeSampler struct {
	seen int
	err  error
}

func (f *fakeSampler) SelectSamples(ds []decision.Decision, _ telemetry.Context) (sampler.Plan, error) {
	f.seen = len(ds)
	return sampler.Plan{}, f.err
}

// #endregion fakes

// #region helpers
func quiet() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newEngine(t *testing.T, mode policy.Mode, base BaseVerifier) *Engine {
	t.Helper()
	e, err := New(Options{Mode: mode, Workers: 4, Rand: rand.New(rand.NewSource(1)), Logger: quiet()}, base, &fakeSampler{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func batch(trusts ...float64) ([]telemetry.Reading, *fakeBase) {
	base := &fakeBase{trust: map[string]float64{}}
	readings := make([]telemetry.Reading, len(trusts))
	for i, tr := range trusts {
		id := fmt.Sprintf("r%02d", i)
		readings[i] = telemetry.Reading{ID: id, DeviceID: "TURBINE-1"}
		base.trust[id] = tr
	}
	return readings, base
}

func mature() telemetry.Context {
	return telemetry.Context{Device: &telemetry.Device{ID: "TURBINE-1", OperationalDays: 400}}
}

// #endregion helpers

// #region construction-tests
func TestNew_UnknownModeFailsBeforeVerification(t *testing.T) {
	base := &fakeBase{}
	_, err := New(Options{Mode: "lenient"}, base, &fakeSampler{})
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	var me *policy.UnknownModeError
	if !errors.As(err, &me) {
		t.Fatalf("expected *UnknownModeError, got %T: %v", err, err)
	}
	if fault.KindOf(err) != fault.KindConfiguration {
		t.Fatalf("expected configuration kind, got %s", fault.KindOf(err))
	}
	if base.calls.Load() != 0 {
		t.Fatal("base verifier must not be called")
	}
}

func TestNew_DefaultsToStrict(t *testing.T) {
	e := newEngine(t, "", &fakeBase{})
	if e.Mode() != policy.ModeStrict {
		t.Fatalf("expected strict, got %s", e.Mode())
	}
	if e.Thresholds().AutoApprove != 0.97 {
		t.Fatalf("expected 0.97, got %.2f", e.Thresholds().AutoApprove)
	}
	if e.Criteria() != graduation.DefaultCriteria() {
		t.Fatal("expected default graduation criteria")
	}
}

func TestNew_MissingDependencies(t *testing.T) {
	if _, err := New(Options{}, nil, &fakeSampler{}); !errors.Is(err, fault.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil base, got %v", err)
	}
	if _, err := New(Options{}, &fakeBase{}, nil); !errors.Is(err, fault.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil sampler, got %v", err)
	}
}

func TestRuleTableCoversModes(t *testing.T) {
	for _, m := range policy.Modes() {
		if _, ok := rules[m]; !ok {
			t.Errorf("no rule for mode %s", m)
		}
	}
}

// #endregion construction-tests

// #region strict-tests
func TestStrict_Bands(t *testing.T) {
	cases := []struct {
		trust    float64
		want     decision.Kind
		sampling bool
	}{
		{1.0, decision.AutoApproved, true},
		{0.97, decision.AutoApproved, true},
		{0.9699, decision.FlaggedForReview, false},
		{0.50, decision.FlaggedForReview, false},
		{0.499999, decision.Rejected, false},
		{0.0, decision.Rejected, false},
	}
	e := newEngine(t, policy.ModeStrict, &fakeBase{})
	for _, c := range cases {
		d, err := e.Classify(checks.Result{ReadingID: "r", TrustScore: c.trust}, mature())
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if d.Outcome != c.want {
			t.Errorf("trust %v: expected %s, got %s", c.trust, c.want, d.Outcome)
		}
		if d.RequiresSampling != c.sampling {
			t.Errorf("trust %v: expected requiresSampling=%v", c.trust, c.sampling)
		}
		if d.EvidenceGenerated || d.EvidenceBundle != nil {
			t.Errorf("trust %v: strict mode must not produce evidence", c.trust)
		}
	}
}

func TestStrict_AutoApproveRate(t *testing.T) {
	e := newEngine(t, policy.ModeStrict, &fakeBase{})
	d, _ := e.Classify(checks.Result{TrustScore: 0.97}, telemetry.Context{})
	if d.SamplingRate == nil || *d.SamplingRate != 0.30 {
		t.Fatalf("expected sampling rate 0.30, got %v", d.SamplingRate)
	}
	want := "Mode A (strict): trust 0.970 >= 0.97, auto-approved with 30% sampling"
	if d.Reasoning != want {
		t.Fatalf("expected reasoning %q, got %q", want, d.Reasoning)
	}
}

func TestStrict_NonApprovedHaveNoRate(t *testing.T) {
	e := newEngine(t, policy.ModeStrict, &fakeBase{})
	for _, tr := range []float64{0.6, 0.1} {
		d, _ := e.Classify(checks.Result{TrustScore: tr}, telemetry.Context{})
		if d.SamplingRate != nil {
			t.Fatalf("trust %v: expected nil sampling rate", tr)
		}
	}
}

// #endregion strict-tests

// #region evidence-rich-tests
func TestEvidenceRich_Bands(t *testing.T) {
	cases := []struct {
		trust float64
		want  decision.Kind
	}{
		{0.95, decision.AutoApproved},
		{0.90, decision.AutoApproved},
		{0.8999, decision.FlaggedForReview},
		{0.70, decision.FlaggedForReview},
		{0.6999, decision.Rejected},
	}
	e := newEngine(t, policy.ModeEvidenceRich, &fakeBase{})
	for _, c := range cases {
		d, err := e.Classify(checks.Result{ReadingID: "r", TrustScore: c.trust}, mature())
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if d.Outcome != c.want {
			t.Errorf("trust %v: expected %s, got %s", c.trust, c.want, d.Outcome)
		}
		hasBundle := d.EvidenceBundle != nil
		if hasBundle != (c.want == decision.AutoApproved) || d.EvidenceGenerated != hasBundle {
			t.Errorf("trust %v: evidence bundle present=%v for %s", c.trust, hasBundle, d.Outcome)
		}
		if !strings.Contains(d.Reasoning, "evidence-rich") {
			t.Errorf("trust %v: reasoning missing mode: %q", c.trust, d.Reasoning)
		}
	}
}

func TestEvidenceRich_AdaptiveRateExamples(t *testing.T) {
	e := newEngine(t, policy.ModeEvidenceRich, &fakeBase{})

	young := telemetry.Context{Device: &telemetry.Device{OperationalDays: 100}, RecentAnomalies: 2}
	d, err := e.Classify(checks.Result{TrustScore: 0.95}, young)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.SamplingRate == nil || *d.SamplingRate != 0.20 {
		t.Fatalf("expected 0.20, got %v", d.SamplingRate)
	}
	if !strings.Contains(d.Reasoning, "20.0%") {
		t.Fatalf("expected rate in reasoning, got %q", d.Reasoning)
	}

	d, err = e.Classify(checks.Result{TrustScore: 0.91}, mature())
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if d.SamplingRate == nil || *d.SamplingRate != 0.10 {
		t.Fatalf("expected 0.10, got %v", d.SamplingRate)
	}
}

func TestEvidenceRich_BundleContents(t *testing.T) {
	e := newEngine(t, policy.ModeEvidenceRich, &fakeBase{})
	tctx := mature()
	tctx.DeviceBaseline = &telemetry.Baseline{AvgGeneration: 100, AvgFlow: 2.5}
	d, err := e.Classify(checks.Result{ReadingID: "r7", Generation: 110, Flow: 2.0, TrustScore: 0.93}, tctx)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	b := d.EvidenceBundle
	if b == nil {
		t.Fatal("expected evidence bundle")
	}
	if b.ReadingID != "r7" || b.TrustCalculation.Result != 0.93 {
		t.Fatalf("unexpected bundle header: %+v", b)
	}
	if b.BaselineComparison.Deviation == nil {
		t.Fatal("expected deviation with device baseline")
	}
}

func TestEvidenceRich_ZeroBaselineIsArithmeticError(t *testing.T) {
	readings, base := batch(0.95)
	e := newEngine(t, policy.ModeEvidenceRich, base)
	tctx := mature()
	tctx.DeviceBaseline = &telemetry.Baseline{AvgGeneration: 0, AvgFlow: 2}
	_, err := e.VerifyBatch(context.Background(), readings, tctx)
	var dz *evidence.DivisionByZeroError
	if !errors.As(err, &dz) {
		t.Fatalf("expected DivisionByZeroError, got %v", err)
	}
	if fault.KindOf(err) != fault.KindArithmetic {
		t.Fatalf("expected arithmetic kind, got %s", fault.KindOf(err))
	}
}

func TestClassify_ReasoningPerBranch(t *testing.T) {
	cases := []struct {
		mode  policy.Mode
		trust float64
		want  string
	}{
		{policy.ModeStrict, 0.985, "Mode A (strict): trust 0.985 >= 0.97, auto-approved with 30% sampling"},
		{policy.ModeStrict, 0.6, "Mode A (strict): trust 0.600 below 0.97, flagged for human review"},
		{policy.ModeStrict, 0.499, "Mode A (strict): trust 0.499 < 0.50, rejected"},
		{policy.ModeEvidenceRich, 0.95, "Mode B (evidence-rich): trust 0.950 >= 0.90, auto-approved with 5.0% adaptive sampling"},
		{policy.ModeEvidenceRich, 0.91, "Mode B (evidence-rich): trust 0.910 >= 0.90, auto-approved with 10.0% adaptive sampling"},
		{policy.ModeEvidenceRich, 0.8, "Mode B (evidence-rich): trust 0.800 in 0.70-0.90, targeted review"},
		{policy.ModeEvidenceRich, 0.5, "Mode B (evidence-rich): trust 0.500 < 0.70, rejected"},
	}
	for _, c := range cases {
		e := newEngine(t, c.mode, &fakeBase{})
		d, err := e.Classify(checks.Result{ReadingID: "r", TrustScore: c.trust}, mature())
		if err != nil {
			t.Fatalf("%s trust %v: Classify: %v", c.mode, c.trust, err)
		}
		if d.Reasoning != c.want {
			t.Errorf("%s trust %v: expected reasoning %q, got %q", c.mode, c.trust, c.want, d.Reasoning)
		}
	}
}

// #endregion evidence-rich-tests

// #region batch-tests
func TestVerifyBatch_StatsAndOrder(t *testing.T) {
	readings, base := batch(0.99, 0.6, 0.98, 0.1, 0.97, 0.7, 0.2, 1.0, 0.55, 0.3)
	smp := &fakeSampler{}
	e, err := New(Options{Mode: policy.ModeStrict, Workers: 3, Logger: quiet()}, base, smp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.VerifyBatch(context.Background(), readings, telemetry.Context{})
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}

	got := make([]string, len(res.Decisions))
	want := make([]string, len(readings))
	for i := range readings {
		got[i] = res.Decisions[i].ReadingID
		want[i] = readings[i].ID
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decision order mismatch (-want +got):\n%s", diff)
	}

	s := res.Stats
	if s.Total != 10 || s.Approved != 4 || s.Flagged != 3 || s.Rejected != 3 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.ApprovalRate != "40.0%" {
		t.Fatalf("expected 40.0%%, got %s", s.ApprovalRate)
	}
	if res.Mode != policy.ModeStrict || res.Thresholds.Flag != 0.50 {
		t.Fatalf("unexpected mode/thresholds %s %+v", res.Mode, res.Thresholds)
	}
	if smp.seen != 10 {
		t.Fatalf("expected sampler to see 10 decisions, got %d", smp.seen)
	}
	if base.calls.Load() != 1 {
		t.Fatalf("expected one base call, got %d", base.calls.Load())
	}
}

func TestVerifyBatch_LargeBatchOrder(t *testing.T) {
	trusts := make([]float64, 200)
	for i := range trusts {
		trusts[i] = float64(i%100) / 100
	}
	readings, base := batch(trusts...)
	e := newEngine(t, policy.ModeEvidenceRich, base)
	res, err := e.VerifyBatch(context.Background(), readings, mature())
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	for i, d := range res.Decisions {
		if d.ReadingID != readings[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, readings[i].ID, d.ReadingID)
		}
		if (d.EvidenceBundle != nil) != (d.Outcome == decision.AutoApproved) {
			t.Fatalf("position %d: bundle presence does not match outcome %s", i, d.Outcome)
		}
	}
}

func TestVerifyBatch_Empty(t *testing.T) {
	e := newEngine(t, policy.ModeStrict, &fakeBase{})
	res, err := e.VerifyBatch(context.Background(), nil, telemetry.Context{})
	if err != nil {
		t.Fatalf("VerifyBatch: %v", err)
	}
	if len(res.Decisions) != 0 || res.Stats.Total != 0 || res.Stats.ApprovalRate != "0.0%" {
		t.Fatalf("unexpected empty result %+v", res.Stats)
	}
}

func TestVerifyBatch_BaseErrorPropagates(t *testing.T) {
	sentinel := errors.New("model offline")
	e := newEngine(t, policy.ModeStrict, &fakeBase{err: sentinel})
	_, err := e.VerifyBatch(context.Background(), []telemetry.Reading{{ID: "a"}}, telemetry.Context{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestVerifyBatch_ResultCountMismatch(t *testing.T) {
	readings, base := batch(0.9, 0.8)
	base.drop = true
	e := newEngine(t, policy.ModeStrict, base)
	_, err := e.VerifyBatch(context.Background(), readings, telemetry.Context{})
	var rc *ResultCountError
	if !errors.As(err, &rc) || rc.Readings != 2 || rc.Results != 1 {
		t.Fatalf("expected ResultCountError 2/1, got %v", err)
	}
	if fault.KindOf(err) != fault.KindData {
		t.Fatalf("expected data kind, got %s", fault.KindOf(err))
	}
}

func TestVerifyBatch_SamplerErrorPropagates(t *testing.T) {
	readings, base := batch(0.99)
	sentinel := errors.New("sampler down")
	e, err := New(Options{Logger: quiet()}, base, &fakeSampler{err: sentinel})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.VerifyBatch(context.Background(), readings, telemetry.Context{}); !errors.Is(err, sentinel) {
		t.Fatalf("expected sampler error, got %v", err)
	}
}

func TestVerifyBatch_CancelledContext(t *testing.T) {
	readings, base := batch(0.99, 0.5)
	e := newEngine(t, policy.ModeStrict, base)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.VerifyBatch(ctx, readings, telemetry.Context{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestVerifyBatch_ReproducibleEvidence(t *testing.T) {
	recent := make([]telemetry.Reading, 12)
	for i := range recent {
		recent[i] = telemetry.Reading{ID: fmt.Sprintf("h%d", i), DeviceID: "TURBINE-1", GeneratedKwh: float64(100 + i)}
	}
	tctx := mature()
	tctx.RecentReadings = recent

	run := func() []string {
		readings, base := batch(0.95, 0.96, 0.4, 0.99)
		e := newEngine(t, policy.ModeEvidenceRich, base)
		res, err := e.VerifyBatch(context.Background(), readings, tctx)
		if err != nil {
			t.Fatalf("VerifyBatch: %v", err)
		}
		var ids []string
		for _, d := range res.Decisions {
			if d.EvidenceBundle == nil {
				continue
			}
			for _, s := range d.EvidenceBundle.SampleReadings {
				ids = append(ids, s.ID)
			}
		}
		return ids
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("seeded runs produced different samples:\n%s", diff)
	}
}

// #endregion batch-tests

// #region graduation-tests
func TestCheckGraduationEligibility(t *testing.T) {
	e := newEngine(t, policy.ModeStrict, &fakeBase{})
	r := e.CheckGraduationEligibility(graduation.History{OperationalDays: 200, AnomalyRate: 0.01, DataQuality: 97, DaysSinceLastMaintenance: 10})
	if r.Eligible || len(r.MissingRequirements) != 1 || r.MissingRequirements[0] != "stability" {
		t.Fatalf("unexpected report %+v", r)
	}

	c := graduation.DefaultCriteria()
	c.VVBApprovalRequired = true
	e2, err := New(Options{Criteria: &c, Logger: quiet()}, &fakeBase{}, &fakeSampler{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r = e2.CheckGraduationEligibility(graduation.History{OperationalDays: 365, DataQuality: 99, DaysSinceLastMaintenance: 60})
	if r.Eligible || !strings.Contains(strings.Join(r.MissingRequirements, ","), "vvbApproval") {
		t.Fatalf("expected vvbApproval missing, got %+v", r)
	}
}

func TestNew_ExplicitZeroCriteriaKept(t *testing.T) {
	e, err := New(Options{Criteria: &graduation.Criteria{}, Logger: quiet()}, &fakeBase{}, &fakeSampler{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Criteria() != (graduation.Criteria{}) {
		t.Fatalf("expected zero criteria to be kept, got %+v", e.Criteria())
	}
	r := e.CheckGraduationEligibility(graduation.History{DaysSinceLastMaintenance: graduation.StabilityDays})
	if !r.Eligible {
		t.Fatalf("expected eligible under zero criteria, missing %v", r.MissingRequirements)
	}
}

// #endregion graduation-tests

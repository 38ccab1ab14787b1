package checks

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

const (
	waterDensity = 1000.0
	gravity      = 9.81
)

// #region physics
// Physics compares reported generation against hydraulic power
// rho*g*Q*H*eta converted to kW.
func Physics(r telemetry.Reading, defaultEff float64) CheckResult {
	eff := defaultEff
	if r.Efficiency != nil {
		eff = *r.Efficiency
	}
	expectedKw := waterDensity * gravity * r.FlowRate * r.HeadHeight * eff / 1000
	if expectedKw <= 0 {
		return CheckResult{Score: 0, Status: "FAIL", Reason: "expected power is not positive"}
	}
	dev := math.Abs(r.GeneratedKwh-expectedKw) / expectedKw

	var score float64
	var status string
	switch {
	case dev < 0.05:
		score, status = 1.0, "PERFECT"
	case dev < 0.10:
		score, status = 0.95, "EXCELLENT"
	case dev < 0.15:
		score, status = 0.85, "GOOD"
	case dev < 0.20:
		score, status = 0.70, "ACCEPTABLE"
	case dev < 0.30:
		score, status = 0.50, "QUESTIONABLE"
	default:
		score, status = 0.0, "FAIL"
	}

	res := CheckResult{
		Score:  score,
		Status: status,
		Details: map[string]float64{
			"deviation_pct":     round(dev*100, 2),
			"expected_power_kw": round(expectedKw, 2),
			"measured_power_kw": round(r.GeneratedKwh, 2),
		},
	}
	if status == "FAIL" {
		res.Reason = fmt.Sprintf("physics deviation %.1f%% (>30%%)", dev*100)
	}
	return res
}
// #endregion physics

// #region temporal
// Temporal penalizes abrupt changes from the previous reading of the
// same device. The first reading of a device scores 1.
func Temporal(cur telemetry.Reading, prev *telemetry.Reading) CheckResult {
	if prev == nil {
		return CheckResult{Score: 1.0, Status: "FIRST_READING"}
	}
	gen := relChange(cur.GeneratedKwh, prev.GeneratedKwh)
	flow := relChange(cur.FlowRate, prev.FlowRate)
	head := relChange(cur.HeadHeight, prev.HeadHeight)

	score := 1.0
	score *= step(gen, []float64{0.10, 0.20, 0.30, 0.50}, []float64{1.0, 0.95, 0.85, 0.70, 0.30})
	score *= step(flow, []float64{0.15, 0.30, 0.50}, []float64{1.0, 0.95, 0.80, 0.50})
	score *= step(head, []float64{0.05, 0.10, 0.20}, []float64{1.0, 0.95, 0.80, 0.50})

	res := CheckResult{
		Score:  round(score, 4),
		Status: passStatus(score),
		Details: map[string]float64{
			"generation_change_pct": changePct(gen),
			"flow_change_pct":       changePct(flow),
			"head_change_pct":       changePct(head),
		},
	}
	switch {
	case math.IsInf(gen, 1) || math.IsInf(flow, 1) || math.IsInf(head, 1):
		res.Reason = "previous reading reported zero; change from zero scored as maximal"
	case res.Status == "FAIL":
		res.Reason = "excessive temporal variation"
	}
	return res
}
// #endregion temporal

// #region environmental
type band struct{ min, max float64 }

type envBounds struct {
	name                           string
	ideal, acceptable, questionable band
}

var envTable = []envBounds{
	{"ph", band{6.5, 8.5}, band{6.0, 9.0}, band{5.5, 9.5}},
	{"turbidity", band{0, 50}, band{0, 100}, band{0, 200}},
	{"temperature", band{0, 30}, band{-5, 35}, band{-10, 40}},
}

// Environmental grades water quality sensors. Sensors the device did not
// report are skipped and recorded with a score of 1 in the details.
func Environmental(r telemetry.Reading) CheckResult {
	values := []*float64{r.PH, r.Turbidity, r.Temperature}
	score := 1.0
	details := make(map[string]float64, len(envTable))
	var missing int
	for i, b := range envTable {
		v := values[i]
		if v == nil {
			details[b.name] = 1.0
			missing++
			continue
		}
		var s float64
		switch {
		case inBand(*v, b.ideal):
			s = 1.0
		case inBand(*v, b.acceptable):
			s = 0.95
		case inBand(*v, b.questionable):
			s = 0.80
		default:
			s = 0.30
		}
		details[b.name] = s
		score *= s
	}
	res := CheckResult{Score: round(score, 4), Status: passStatus(score), Details: details}
	if missing == len(envTable) {
		res.Status = "NO_SENSORS"
	}
	if res.Status == "FAIL" {
		res.Reason = "environmental parameters out of acceptable range"
	}
	return res
}
// #endregion environmental

// #region statistical
// Statistical scores the z-score of generation against device history.
func Statistical(cur telemetry.Reading, history []telemetry.Reading) CheckResult {
	if len(history) == 0 {
		return CheckResult{Score: 1.0, Status: "NO_HISTORY"}
	}
	var sum float64
	for _, h := range history {
		sum += h.GeneratedKwh
	}
	mean := sum / float64(len(history))
	var sq float64
	for _, h := range history {
		sq += (h.GeneratedKwh - mean) * (h.GeneratedKwh - mean)
	}
	std := math.Sqrt(sq / float64(len(history)))
	if std == 0 {
		std = 1e-6
	}
	z := math.Abs((cur.GeneratedKwh - mean) / std)

	var score float64
	var status string
	switch {
	case z < 1.0:
		score, status = 1.0, "NORMAL"
	case z < 2.0:
		score, status = 0.95, "ACCEPTABLE"
	case z < 2.5:
		score, status = 0.85, "QUESTIONABLE"
	case z < 3.0:
		score, status = 0.70, "SUSPICIOUS"
	default:
		score, status = 0.30, "OUTLIER"
	}
	res := CheckResult{
		Score:  score,
		Status: status,
		Details: map[string]float64{
			"z_score": round(z, 2),
			"mean":    round(mean, 2),
			"std_dev": round(std, 2),
		},
	}
	if status == "OUTLIER" {
		res.Reason = fmt.Sprintf("statistical outlier: z-score %.2f (>3 sigma)", z)
	}
	return res
}
// #endregion statistical

// #region consistency
// Consistency checks the reading against the device nameplate profile.
func Consistency(r telemetry.Reading, p DeviceProfile, defaultEff float64) CheckResult {
	eff := defaultEff
	if r.Efficiency != nil {
		eff = *r.Efficiency
	}
	score := 1.0
	details := map[string]float64{"capacity": 1, "flow": 1, "head": 1, "efficiency": 1}
	if r.GeneratedKwh > p.CapacityKwh {
		details["capacity"] = 0.50
		score *= 0.50
	}
	if r.FlowRate > p.MaxFlow {
		details["flow"] = 0.50
		score *= 0.50
	}
	if r.HeadHeight > p.MaxHead {
		details["head"] = 0.50
		score *= 0.50
	}
	if eff < p.MinEfficiency || eff > p.MaxEfficiency {
		details["efficiency"] = 0.70
		score *= 0.70
	}
	res := CheckResult{Score: round(score, 4), Status: passStatus(score), Details: details}
	if res.Status == "FAIL" {
		res.Reason = "device consistency check failed"
	}
	return res
}
// #endregion consistency

// #region trust
// TrustScore is the weighted sum of the five checks, rounded to 4 places.
func TrustScore(c Checks) float64 {
	t := c.Physics.Score*WeightPhysics +
		c.Temporal.Score*WeightTemporal +
		c.Environmental.Score*WeightEnvironmental +
		c.Statistical.Score*WeightStatistical +
		c.Consistency.Score*WeightConsistency
	return round(t, 4)
}
// #endregion trust

// #region helpers
func relChange(cur, prev float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(cur-prev) / prev
}

// UndefinedChange is recorded in Details when the previous value was zero.
const UndefinedChange = -1.0

// changePct keeps Details JSON-encodable: +Inf becomes UndefinedChange.
func changePct(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return UndefinedChange
	}
	return round(v*100, 2)
}

// step returns scores[i] for the first cut with v < cuts[i], else the last score.
func step(v float64, cuts, scores []float64) float64 {
	for i, c := range cuts {
		if v < c {
			return scores[i]
		}
	}
	return scores[len(scores)-1]
}

func inBand(v float64, b band) bool { return v >= b.min && v <= b.max }

func passStatus(score float64) string {
	switch {
	case score < 0.50:
		return "FAIL"
	case score < 0.85:
		return "WARN"
	default:
		return "PASS"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
// #endregion helpers

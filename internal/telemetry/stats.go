package telemetry

import "math"

// OutlierZ is the |z| above which a reading counts as an outlier.
const OutlierZ = 3.0

// #region compute-stats
// ComputeStats summarizes generation over the given readings using the
// population standard deviation. Returns nil for an empty slice.
func ComputeStats(readings []Reading) *Stats {
	if len(readings) == 0 {
		return nil
	}
	var sum float64
	for _, r := range readings {
		sum += r.GeneratedKwh
	}
	mean := sum / float64(len(readings))

	var sq float64
	for _, r := range readings {
		d := r.GeneratedKwh - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(readings)))

	s := &Stats{Mean: mean, StdDev: std, ZScores: make([]float64, len(readings))}
	for i, r := range readings {
		if std == 0 {
			continue
		}
		z := (r.GeneratedKwh - mean) / std
		s.ZScores[i] = z
		if math.Abs(z) > OutlierZ {
			s.Outliers++
		}
	}
	return s
}
// #endregion compute-stats

// #region baseline
// BaselineOf averages generation and flow over readings. Returns nil for
// an empty slice.
func BaselineOf(readings []Reading) *Baseline {
	if len(readings) == 0 {
		return nil
	}
	var gen, flow float64
	for _, r := range readings {
		gen += r.GeneratedKwh
		flow += r.FlowRate
	}
	n := float64(len(readings))
	return &Baseline{AvgGeneration: gen / n, AvgFlow: flow / n}
}
// #endregion baseline

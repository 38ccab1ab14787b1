package sampling

import (
	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region constants
// Rates are kept in basis points so every result is an exact decimal.
const (
	baseBps        = 500
	newDeviceBps   = 500
	anomalyBps     = 1000
	lowTrustBps    = 500
	maxBps         = 3000
	bpsPerUnit     = 10000
	NewDeviceDays  = 180
	LowTrustCutoff = 0.92
)

// Fixed rates exposed to callers.
const (
	BaseRate   = float64(baseBps) / bpsPerUnit
	MaxRate    = float64(maxBps) / bpsPerUnit
	StrictRate = MaxRate
)
// #endregion constants

// #region adaptive-rate
// AdaptiveRate returns the audit sampling fraction for an auto-approved
// evidence-rich result. It starts at BaseRate, adds risk adjustments for
// new or unknown devices, recent anomalies, and trust below
// LowTrustCutoff, and never exceeds MaxRate.
func AdaptiveRate(result checks.Result, tctx telemetry.Context) float64 {
	bps := baseBps
	if tctx.Device == nil || tctx.Device.OperationalDays < NewDeviceDays {
		bps += newDeviceBps
	}
	if tctx.RecentAnomalies > 0 {
		bps += anomalyBps
	}
	if result.TrustScore < LowTrustCutoff {
		bps += lowTrustBps
	}
	if bps > maxBps {
		bps = maxBps
	}
	return float64(bps) / bpsPerUnit
}
// #endregion adaptive-rate

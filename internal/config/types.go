package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/graduation"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/sampler"
)

// #region file
// File is the raw configuration as read from YAML and the environment.
// Pointer fields distinguish "unset" from an explicit zero.
type File struct {
	Mode         string         `yaml:"mode"`
	LogLevel     string         `yaml:"log_level"`
	DBPath       string         `yaml:"db_path"`
	Workers      int            `yaml:"workers"`
	EvidenceSeed *int64         `yaml:"evidence_seed"`
	SamplerSeed  *int64         `yaml:"sampler_seed"`
	Graduation   GraduationFile `yaml:"graduation"`
	Sampler      SamplerFile    `yaml:"sampler"`
	Profile      ProfileFile    `yaml:"device_profile"`
	Anomaly      AnomalyFile    `yaml:"anomaly"`
}

// GraduationFile overrides individual graduation criteria.
type GraduationFile struct {
	MinOperationalDays    *int     `yaml:"min_operational_days"`
	MaxAnomalyRatePercent *float64 `yaml:"max_anomaly_rate_percent"`
	MinDataQualityPercent *float64 `yaml:"min_data_quality_percent"`
	VVBApprovalRequired   *bool    `yaml:"vvb_approval_required"`
}

// SamplerFile overrides the reference sampler settings.
type SamplerFile struct {
	IncludeFlagged *bool `yaml:"include_flagged"`
	MinSamples     *int  `yaml:"min_samples"`
}

// ProfileFile overrides the base verifier device profile.
type ProfileFile struct {
	CapacityKwh       *float64 `yaml:"capacity_kwh"`
	MaxFlow           *float64 `yaml:"max_flow"`
	MaxHead           *float64 `yaml:"max_head"`
	MinEfficiency     *float64 `yaml:"min_efficiency"`
	MaxEfficiency     *float64 `yaml:"max_efficiency"`
	DefaultEfficiency *float64 `yaml:"default_efficiency"`
}

// AnomalyFile configures the anomaly model client. An empty Addr
// disables it.
type AnomalyFile struct {
	Addr          string  `yaml:"addr"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	Timeout       string  `yaml:"timeout"`
	MaxElapsed    string  `yaml:"max_elapsed"`
}
// #endregion file

// #region resolved
// Resolved is the fully populated configuration. It is produced once by
// Resolve and passed by value.
type Resolved struct {
	Mode         policy.Mode
	Preset       policy.Preset
	LogLevel     zerolog.Level
	DBPath       string
	Workers      int
	EvidenceSeed int64
	SamplerSeed  int64
	Graduation   graduation.Criteria
	Sampler      sampler.Config
	Verifier     checks.VerifierConfig
	Anomaly      AnomalyConfig
}

// AnomalyConfig is the resolved anomaly client configuration.
type AnomalyConfig struct {
	Addr          string
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
	MaxElapsed    time.Duration
}

// Enabled reports whether an anomaly service address is configured.
func (a AnomalyConfig) Enabled() bool { return a.Addr != "" }
// #endregion resolved

// #region errors
// ValidationError is one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field found by Resolve.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for i := range e {
		msgs = append(msgs, e[i].Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes ValidationErrors match fault.ErrConfiguration.
func (e ValidationErrors) Is(target error) bool { return target == fault.ErrConfiguration }
// #endregion errors

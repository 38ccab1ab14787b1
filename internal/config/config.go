package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/graduation"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/sampler"
)

// Environment variables read by Load.
const (
	EnvMode         = "MRV_MODE"
	EnvLogLevel     = "MRV_LOG_LEVEL"
	EnvDBPath       = "MRV_DB"
	EnvWorkers      = "MRV_WORKERS"
	EnvEvidenceSeed = "MRV_EVIDENCE_SEED"
	EnvSamplerSeed  = "MRV_SAMPLER_SEED"
	EnvAnomalyAddr  = "MRV_ANOMALY_ADDR"
	EnvVVBRequired  = "MRV_VVB_REQUIRED"
)

const (
	defaultDBPath     = "mrv_verifier.db"
	defaultTimeout    = 5 * time.Second
	defaultMaxElapsed = 30 * time.Second
)

// #region load
// Load reads .env if present, then the YAML file at path (optional when
// empty), then applies environment overrides.
func Load(path string) (File, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	var f File
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&f)
	return f, nil
}

func applyEnv(f *File) {
	f.Mode = getEnvWithDefault(EnvMode, f.Mode)
	f.LogLevel = getEnvWithDefault(EnvLogLevel, f.LogLevel)
	f.DBPath = getEnvWithDefault(EnvDBPath, f.DBPath)
	f.Workers = getEnvIntWithDefault(EnvWorkers, f.Workers)
	f.Anomaly.Addr = getEnvWithDefault(EnvAnomalyAddr, f.Anomaly.Addr)
	if v, ok := lookupInt64(EnvEvidenceSeed); ok {
		f.EvidenceSeed = &v
	}
	if v, ok := lookupInt64(EnvSamplerSeed); ok {
		f.SamplerSeed = &v
	}
	if v := os.Getenv(EnvVVBRequired); v != "" {
		b := getEnvBoolWithDefault(EnvVVBRequired, false)
		f.Graduation.VVBApprovalRequired = &b
	}
}
// #endregion load

// #region resolve
// Resolve fills every default and validates the result. An explicitly
// configured unknown mode fails with *policy.UnknownModeError.
func Resolve(f File) (Resolved, error) {
	mode := policy.Normalize(policy.Mode(f.Mode))
	preset, err := policy.Resolve(mode)
	if err != nil {
		return Resolved{}, fmt.Errorf("resolve config: %w", err)
	}

	var errs ValidationErrors
	r := Resolved{
		Mode:       mode,
		Preset:     preset,
		LogLevel:   zerolog.InfoLevel,
		DBPath:     f.DBPath,
		Workers:    f.Workers,
		Graduation: graduation.DefaultCriteria(),
		Sampler:    sampler.DefaultConfig(),
		Verifier:   checks.DefaultVerifierConfig(),
		Anomaly: AnomalyConfig{
			Addr:          f.Anomaly.Addr,
			RatePerSecond: f.Anomaly.RatePerSecond,
			Burst:         f.Anomaly.Burst,
			Timeout:       defaultTimeout,
			MaxElapsed:    defaultMaxElapsed,
		},
	}

	if f.LogLevel != "" {
		lvl, err := zerolog.ParseLevel(f.LogLevel)
		if err != nil {
			errs = append(errs, ValidationError{Field: "log_level", Message: err.Error()})
		} else {
			r.LogLevel = lvl
		}
	}
	if r.DBPath == "" {
		r.DBPath = defaultDBPath
	}
	if r.Workers < 0 {
		errs = append(errs, ValidationError{Field: "workers", Message: "must not be negative"})
	}

	now := time.Now().UnixNano()
	r.EvidenceSeed, r.SamplerSeed = now, now+1
	if f.EvidenceSeed != nil {
		r.EvidenceSeed = *f.EvidenceSeed
	}
	if f.SamplerSeed != nil {
		r.SamplerSeed = *f.SamplerSeed
	}

	errs = append(errs, resolveGraduation(&r.Graduation, f.Graduation)...)
	errs = append(errs, resolveSampler(&r.Sampler, f.Sampler)...)
	errs = append(errs, resolveProfile(&r.Verifier, f.Profile)...)
	errs = append(errs, resolveAnomaly(&r.Anomaly, f.Anomaly)...)

	if len(errs) > 0 {
		return Resolved{}, errs
	}
	return r, nil
}

func resolveGraduation(c *graduation.Criteria, g GraduationFile) ValidationErrors {
	var errs ValidationErrors
	if g.MinOperationalDays != nil {
		c.MinOperationalDays = *g.MinOperationalDays
	}
	if g.MaxAnomalyRatePercent != nil {
		c.MaxAnomalyRatePercent = *g.MaxAnomalyRatePercent
	}
	if g.MinDataQualityPercent != nil {
		c.MinDataQualityPercent = *g.MinDataQualityPercent
	}
	if g.VVBApprovalRequired != nil {
		c.VVBApprovalRequired = *g.VVBApprovalRequired
	}
	if c.MinOperationalDays < 0 {
		errs = append(errs, ValidationError{Field: "graduation.min_operational_days", Message: "must not be negative"})
	}
	if c.MaxAnomalyRatePercent < 0 || c.MaxAnomalyRatePercent > 100 {
		errs = append(errs, ValidationError{Field: "graduation.max_anomaly_rate_percent", Message: "must be within 0-100"})
	}
	if c.MinDataQualityPercent < 0 || c.MinDataQualityPercent > 100 {
		errs = append(errs, ValidationError{Field: "graduation.min_data_quality_percent", Message: "must be within 0-100"})
	}
	return errs
}

func resolveSampler(c *sampler.Config, s SamplerFile) ValidationErrors {
	if s.IncludeFlagged != nil {
		c.IncludeFlagged = *s.IncludeFlagged
	}
	if s.MinSamples != nil {
		c.MinSamples = *s.MinSamples
	}
	if c.MinSamples < 0 {
		return ValidationErrors{{Field: "sampler.min_samples", Message: "must not be negative"}}
	}
	return nil
}

func resolveProfile(v *checks.VerifierConfig, p ProfileFile) ValidationErrors {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&v.Profile.CapacityKwh, p.CapacityKwh)
	set(&v.Profile.MaxFlow, p.MaxFlow)
	set(&v.Profile.MaxHead, p.MaxHead)
	set(&v.Profile.MinEfficiency, p.MinEfficiency)
	set(&v.Profile.MaxEfficiency, p.MaxEfficiency)
	set(&v.DefaultEfficiency, p.DefaultEfficiency)

	var errs ValidationErrors
	if v.Profile.MinEfficiency > v.Profile.MaxEfficiency {
		errs = append(errs, ValidationError{Field: "device_profile", Message: "min_efficiency exceeds max_efficiency"})
	}
	if v.DefaultEfficiency <= 0 || v.DefaultEfficiency > 1 {
		errs = append(errs, ValidationError{Field: "device_profile.default_efficiency", Message: "must be within (0,1]"})
	}
	return errs
}

func resolveAnomaly(a *AnomalyConfig, f AnomalyFile) ValidationErrors {
	var errs ValidationErrors
	if a.RatePerSecond == 0 {
		a.RatePerSecond = 10
	}
	if a.Burst == 0 {
		a.Burst = 1
	}
	if a.RatePerSecond < 0 || a.Burst < 0 {
		errs = append(errs, ValidationError{Field: "anomaly", Message: "rate_per_second and burst must be positive"})
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			errs = append(errs, ValidationError{Field: "anomaly.timeout", Message: err.Error()})
		} else {
			a.Timeout = d
		}
	}
	if f.MaxElapsed != "" {
		d, err := time.ParseDuration(f.MaxElapsed)
		if err != nil {
			errs = append(errs, ValidationError{Field: "anomaly.max_elapsed", Message: err.Error()})
		} else {
			a.MaxElapsed = d
		}
	}
	return errs
}
// #endregion resolve

// #region env-helpers
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func lookupInt64(key string) (int64, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
// #endregion env-helpers

package engine

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
	"github.com/danielpatrickdp/mrv-verifier/internal/fault"
	"github.com/danielpatrickdp/mrv-verifier/internal/graduation"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/sampler"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region collaborators
// BaseVerifier scores raw readings. It must return one result per reading
// in input order.
type BaseVerifier interface {
	VerifyBatch(ctx context.Context, readings []telemetry.Reading, tctx telemetry.Context) ([]checks.Result, error)
}

// Sampler selects which decisions an auditor reviews.
type Sampler interface {
	SelectSamples(decisions []decision.Decision, tctx telemetry.Context) (sampler.Plan, error)
}
// #endregion collaborators

// #region options
// Options configures an Engine. Zero values take defaults.
type Options struct {
	Mode policy.Mode
	// Criteria are used as given; nil means graduation.DefaultCriteria().
	Criteria *graduation.Criteria
	// Workers bounds parallel classification; 0 means runtime.NumCPU().
	Workers int
	// Rand drives evidence sample selection; nil seeds from the clock.
	Rand *rand.Rand
	// Logger overrides the component logger.
	Logger *zerolog.Logger
}
// #endregion options

// #region batch-result
// BatchResult is the outcome of one VerifyBatch call.
type BatchResult struct {
	Decisions    []decision.Decision `json:"decisions"`
	SamplingPlan sampler.Plan        `json:"sampling_plan"`
	Mode         policy.Mode         `json:"mode"`
	Thresholds   policy.Preset       `json:"thresholds"`
	Stats        decision.BatchStats `json:"stats"`
}
// #endregion batch-result

// #region errors
// ResultCountError reports a base verifier that did not return one result
// per reading.
type ResultCountError struct {
	Readings int
	Results  int
}

func (e *ResultCountError) Error() string {
	return fmt.Sprintf("base verifier returned %d results for %d readings", e.Results, e.Readings)
}

// Is makes ResultCountError match fault.ErrData.
func (e *ResultCountError) Is(target error) bool { return target == fault.ErrData }

// MissingDependencyError reports a nil collaborator at construction.
type MissingDependencyError struct {
	Name string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("engine: missing %s", e.Name)
}

// Is makes MissingDependencyError match fault.ErrConfiguration.
func (e *MissingDependencyError) Is(target error) bool { return target == fault.ErrConfiguration }
// #endregion errors

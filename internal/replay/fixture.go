package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/policy"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: stored
// base verification results plus the decisions they are expected to get.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Context         telemetry.Context       `json:"context"`
	Results         []checks.Result         `json:"results"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig selects the mode and seed for a replay run.
type FixtureConfig struct {
	Mode string `json:"mode"`
	Seed int64  `json:"seed"`
}

// FixtureExpectedResult captures the expected decision per reading.
type FixtureExpectedResult struct {
	ReadingID string `json:"reading_id"`
	Decision  string `json:"decision"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToReplayConfig converts a FixtureConfig to a ReplayConfig.
// A zero seed keeps the default.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	c := DefaultReplayConfig()
	c.Mode = policy.Normalize(policy.Mode(fc.Mode))
	if fc.Seed != 0 {
		c.Seed = fc.Seed
	}
	return c
}

// Expected returns the expected decisions in fixture order.
func (f *Fixture) Expected() []string {
	out := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		out[i] = e.Decision
	}
	return out
}

// #endregion fixture-loader

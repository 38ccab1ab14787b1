package replay

import (
	"fmt"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/logging"
	"github.com/danielpatrickdp/mrv-verifier/internal/store"
)

// #region export
// FixtureFromBatch builds a fixture from a stored batch and its
// provenance rows. The stored decisions become the expected results.
func FixtureFromBatch(rec store.BatchRecord, entries []logging.DecisionEntry, seed int64) (*Fixture, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("batch %s has no decisions", rec.BatchID)
	}
	tctx, err := rec.Context()
	if err != nil {
		return nil, err
	}

	results := make([]checks.Result, len(entries))
	expected := make([]FixtureExpectedResult, len(entries))
	for i, e := range entries {
		r, err := e.Result()
		if err != nil {
			return nil, err
		}
		results[i] = r
		expected[i] = FixtureExpectedResult{ReadingID: e.ReadingID, Decision: e.Decision}
	}

	return &Fixture{
		Description:     fmt.Sprintf("Export of batch %s: %d decisions in %s mode", rec.BatchID, len(entries), rec.Mode),
		Config:          FixtureConfig{Mode: rec.Mode, Seed: seed},
		Context:         tctx,
		Results:         results,
		ExpectedResults: expected,
	}, nil
}
// #endregion export

package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
)

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	BatchID      string
	ReadingID    string
	DeviceID     string
	Decision     string // "AUTO_APPROVED" | "FLAGGED_FOR_REVIEW" | "REJECTED"
	TrustScore   float64
	SamplingRate *float64
	Reasoning    string
	ResultJSON   string // base verification result, for replay
	EvidenceRef  string // bundle ID when evidence was generated
	CreatedAt    time.Time
}

// Result decodes the stored base verification result.
func (e DecisionEntry) Result() (checks.Result, error) {
	var r checks.Result
	if e.ResultJSON == "" {
		return r, fmt.Errorf("reading %s: no stored result", e.ReadingID)
	}
	if err := json.Unmarshal([]byte(e.ResultJSON), &r); err != nil {
		return r, fmt.Errorf("reading %s: decode result: %w", e.ReadingID, err)
	}
	return r, nil
}
// #endregion decision-entry

// #region execer
// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
// #endregion execer

package logging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/mrv-verifier/internal/decision"
)

// #region log-decision
// LogDecision writes a decision entry to the decision_log table.
func LogDecision(db Execer, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var rate interface{}
	if entry.SamplingRate != nil {
		rate = *entry.SamplingRate
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (batch_id, reading_id, device_id, decision, trust_score, sampling_rate, reasoning, result_json, evidence_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.BatchID,
		entry.ReadingID,
		nullIfEmpty(entry.DeviceID),
		entry.Decision,
		entry.TrustScore,
		rate,
		nullIfEmpty(entry.Reasoning),
		nullIfEmpty(entry.ResultJSON),
		nullIfEmpty(entry.EvidenceRef),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region entry-from-decision
// EntryFromDecision builds the provenance row for one classified reading.
func EntryFromDecision(batchID string, d decision.Decision) (DecisionEntry, error) {
	resultJSON, err := json.Marshal(d.Result)
	if err != nil {
		return DecisionEntry{}, fmt.Errorf("marshal result %s: %w", d.ReadingID, err)
	}
	entry := DecisionEntry{
		BatchID:      batchID,
		ReadingID:    d.ReadingID,
		DeviceID:     d.DeviceID,
		Decision:     string(d.Outcome),
		TrustScore:   d.TrustScore,
		SamplingRate: d.SamplingRate,
		Reasoning:    d.Reasoning,
		ResultJSON:   string(resultJSON),
	}
	if d.EvidenceBundle != nil {
		entry.EvidenceRef = d.EvidenceBundle.ID
	}
	return entry, nil
}
// #endregion entry-from-decision

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers

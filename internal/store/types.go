package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// #region records
// BatchRecord is one persisted VerifyBatch outcome.
type BatchRecord struct {
	BatchID      string
	Mode         string
	Total        int
	Approved     int
	Flagged      int
	Rejected     int
	ApprovalRate string
	AverageTrust float64
	PresetJSON   string
	PlanJSON     string
	ContextJSON  string
	CreatedAt    time.Time
}

// Context decodes the context the batch was verified under.
func (r BatchRecord) Context() (telemetry.Context, error) {
	var tctx telemetry.Context
	if r.ContextJSON == "" {
		return tctx, nil
	}
	if err := json.Unmarshal([]byte(r.ContextJSON), &tctx); err != nil {
		return tctx, fmt.Errorf("decode context of batch %s: %w", r.BatchID, err)
	}
	return tctx, nil
}

// EvidenceRecord is a stored evidence bundle.
type EvidenceRecord struct {
	BundleID    string
	BatchID     string
	ReadingID   string
	DeviceID    string
	Digest      string
	PayloadJSON string
	CreatedAt   time.Time
}
// #endregion records

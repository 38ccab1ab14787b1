package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/mrv-verifier/internal/engine"
	"github.com/danielpatrickdp/mrv-verifier/internal/evidence"
	"github.com/danielpatrickdp/mrv-verifier/internal/graduation"
	"github.com/danielpatrickdp/mrv-verifier/internal/logging"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS batches (
	batch_id      TEXT PRIMARY KEY,
	mode          TEXT NOT NULL,
	total         INTEGER NOT NULL,
	approved      INTEGER NOT NULL,
	flagged       INTEGER NOT NULL,
	rejected      INTEGER NOT NULL,
	approval_rate TEXT NOT NULL,
	average_trust REAL NOT NULL,
	preset_json   TEXT NOT NULL,
	plan_json     TEXT NOT NULL,
	context_json  TEXT NOT NULL DEFAULT '{}',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id      TEXT NOT NULL,
	reading_id    TEXT NOT NULL,
	device_id     TEXT,
	decision      TEXT NOT NULL,
	trust_score   REAL NOT NULL,
	sampling_rate REAL,
	reasoning     TEXT,
	result_json   TEXT,
	evidence_ref  TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (batch_id) REFERENCES batches(batch_id)
);

CREATE TABLE IF NOT EXISTS evidence_bundles (
	bundle_id     TEXT PRIMARY KEY,
	batch_id      TEXT NOT NULL,
	reading_id    TEXT NOT NULL,
	device_id     TEXT,
	digest        TEXT NOT NULL,
	payload_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (batch_id) REFERENCES batches(batch_id)
);

CREATE TABLE IF NOT EXISTS device_history (
	device_id              TEXT PRIMARY KEY,
	operational_days       INTEGER NOT NULL,
	anomaly_rate           REAL NOT NULL,
	data_quality           REAL NOT NULL,
	vvb_status             TEXT,
	days_since_maintenance INTEGER NOT NULL,
	updated_at             TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store persists batches, decision provenance, evidence and device
// histories in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion constructor

// #region commit-batch
// CommitBatch stores a batch with the context it was verified under, one
// provenance row per decision and every evidence bundle in a single
// transaction. Returns the new batch ID.
func (s *Store) CommitBatch(res *engine.BatchResult, tctx telemetry.Context) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	presetJSON, err := json.Marshal(res.Thresholds)
	if err != nil {
		return "", fmt.Errorf("marshal preset: %w", err)
	}
	planJSON, err := json.Marshal(res.SamplingPlan)
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}
	contextJSON, err := json.Marshal(tctx)
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	st := res.Stats
	_, err = tx.Exec(
		`INSERT INTO batches (batch_id, mode, total, approved, flagged, rejected, approval_rate, average_trust, preset_json, plan_json, context_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(res.Mode), st.Total, st.Approved, st.Flagged, st.Rejected, st.ApprovalRate, st.AverageTrust,
		string(presetJSON), string(planJSON), string(contextJSON), now,
	)
	if err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}

	for _, d := range res.Decisions {
		entry, err := logging.EntryFromDecision(id, d)
		if err != nil {
			return "", err
		}
		if err := logging.LogDecision(tx, entry); err != nil {
			return "", err
		}
		if d.EvidenceBundle != nil {
			if err := insertEvidence(tx, id, d.EvidenceBundle, now); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func insertEvidence(tx *sql.Tx, batchID string, b *evidence.Bundle, now string) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bundle %s: %w", b.ID, err)
	}
	_, err = tx.Exec(
		`INSERT INTO evidence_bundles (bundle_id, batch_id, reading_id, device_id, digest, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, batchID, b.ReadingID, b.DeviceID, b.Digest, string(payload), now,
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}
// #endregion commit-batch

// #region get-batch
// GetBatch reads a batch by ID.
func (s *Store) GetBatch(batchID string) (BatchRecord, error) {
	row := s.db.QueryRow(
		`SELECT batch_id, mode, total, approved, flagged, rejected, approval_rate, average_trust, preset_json, plan_json, context_json, created_at
		 FROM batches WHERE batch_id = ?`, batchID,
	)
	rec, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BatchRecord{}, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	return rec, err
}

// ListBatches returns the most recent batches first.
func (s *Store) ListBatches(limit int) ([]BatchRecord, error) {
	rows, err := s.db.Query(
		`SELECT batch_id, mode, total, approved, flagged, rejected, approval_rate, average_trust, preset_json, plan_json, context_json, created_at
		 FROM batches ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []BatchRecord
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(sc scanner) (BatchRecord, error) {
	var rec BatchRecord
	var createdAt string
	err := sc.Scan(&rec.BatchID, &rec.Mode, &rec.Total, &rec.Approved, &rec.Flagged, &rec.Rejected,
		&rec.ApprovalRate, &rec.AverageTrust, &rec.PresetJSON, &rec.PlanJSON, &rec.ContextJSON, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BatchRecord{}, err
		}
		return BatchRecord{}, fmt.Errorf("scan batch: %w", err)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return BatchRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	return rec, nil
}
// #endregion get-batch

// #region list-decisions
// ListDecisions returns the provenance rows of a batch in insertion order.
func (s *Store) ListDecisions(batchID string) ([]logging.DecisionEntry, error) {
	rows, err := s.db.Query(
		`SELECT batch_id, reading_id, device_id, decision, trust_score, sampling_rate, reasoning, result_json, evidence_ref, created_at
		 FROM decision_log WHERE batch_id = ? ORDER BY id ASC`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []logging.DecisionEntry
	for rows.Next() {
		var e logging.DecisionEntry
		var deviceID, reasoning, resultJSON, evidenceRef sql.NullString
		var rate sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&e.BatchID, &e.ReadingID, &deviceID, &e.Decision, &e.TrustScore, &rate,
			&reasoning, &resultJSON, &evidenceRef, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.DeviceID = deviceID.String
		e.Reasoning = reasoning.String
		e.ResultJSON = resultJSON.String
		e.EvidenceRef = evidenceRef.String
		if rate.Valid {
			r := rate.Float64
			e.SamplingRate = &r
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-decisions

// #region evidence
// GetEvidence loads a bundle by ID.
func (s *Store) GetEvidence(bundleID string) (*evidence.Bundle, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload_json FROM evidence_bundles WHERE bundle_id = ?`, bundleID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evidence %s: %w", bundleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get evidence: %w", err)
	}
	var b evidence.Bundle
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return nil, fmt.Errorf("unmarshal evidence %s: %w", bundleID, err)
	}
	return &b, nil
}

// ListEvidence returns the evidence records of a batch.
func (s *Store) ListEvidence(batchID string) ([]EvidenceRecord, error) {
	rows, err := s.db.Query(
		`SELECT bundle_id, batch_id, reading_id, device_id, digest, payload_json, created_at
		 FROM evidence_bundles WHERE batch_id = ? ORDER BY rowid ASC`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var out []EvidenceRecord
	for rows.Next() {
		var r EvidenceRecord
		var deviceID sql.NullString
		var createdAt string
		if err := rows.Scan(&r.BundleID, &r.BatchID, &r.ReadingID, &deviceID, &r.Digest, &r.PayloadJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		r.DeviceID = deviceID.String
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
// #endregion evidence

// #region device-history
// PutDeviceHistory inserts or replaces a device's graduation history.
func (s *Store) PutDeviceHistory(h graduation.History) error {
	if h.DeviceID == "" {
		return fmt.Errorf("put device history: empty device id")
	}
	_, err := s.db.Exec(
		`INSERT INTO device_history (device_id, operational_days, anomaly_rate, data_quality, vvb_status, days_since_maintenance, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
			operational_days = excluded.operational_days,
			anomaly_rate = excluded.anomaly_rate,
			data_quality = excluded.data_quality,
			vvb_status = excluded.vvb_status,
			days_since_maintenance = excluded.days_since_maintenance,
			updated_at = excluded.updated_at`,
		h.DeviceID, h.OperationalDays, h.AnomalyRate, h.DataQuality, h.VVBApprovalStatus,
		h.DaysSinceLastMaintenance, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put device history: %w", err)
	}
	return nil
}

// GetDeviceHistory reads a device's graduation history.
func (s *Store) GetDeviceHistory(deviceID string) (graduation.History, error) {
	h := graduation.History{DeviceID: deviceID}
	var vvb sql.NullString
	err := s.db.QueryRow(
		`SELECT operational_days, anomaly_rate, data_quality, vvb_status, days_since_maintenance
		 FROM device_history WHERE device_id = ?`, deviceID,
	).Scan(&h.OperationalDays, &h.AnomalyRate, &h.DataQuality, &vvb, &h.DaysSinceLastMaintenance)
	if errors.Is(err, sql.ErrNoRows) {
		return graduation.History{}, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	if err != nil {
		return graduation.History{}, fmt.Errorf("get device history: %w", err)
	}
	h.VVBApprovalStatus = vvb.String
	return h, nil
}
// #endregion device-history

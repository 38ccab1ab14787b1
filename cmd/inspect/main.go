package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/mrv-verifier/internal/evidence"
	"github.com/danielpatrickdp/mrv-verifier/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to mrv_verifier.db")
	last := flag.Int("last", 20, "show N most recent batches")
	batch := flag.String("batch", "", "show decisions of one batch")
	bundle := flag.String("evidence", "", "show one evidence bundle and check its digest")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/mrv_verifier.db [--last N] [--batch id] [--evidence id] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *bundle != "":
		err = runEvidenceMode(st, *bundle, *jsonOut)
	case *batch != "":
		err = runBatchMode(st, *batch, *jsonOut)
	default:
		err = runListMode(st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	BatchID      string  `json:"batch_id"`
	Mode         string  `json:"mode"`
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Flagged      int     `json:"flagged"`
	Rejected     int     `json:"rejected"`
	ApprovalRate string  `json:"approval_rate"`
	AverageTrust float64 `json:"average_trust"`
	CreatedAt    string  `json:"created_at"`
}

func runListMode(st *store.Store, last int, jsonOut bool) error {
	batches, err := st.ListBatches(last)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Fprintln(os.Stderr, "no batches found")
		return nil
	}

	// store returns newest first, reverse for chronological
	rows := make([]listRow, len(batches))
	for i, b := range batches {
		rows[len(batches)-1-i] = listRow{
			BatchID:      b.BatchID,
			Mode:         b.Mode,
			Total:        b.Total,
			Approved:     b.Approved,
			Flagged:      b.Flagged,
			Rejected:     b.Rejected,
			ApprovalRate: b.ApprovalRate,
			AverageTrust: b.AverageTrust,
			CreatedAt:    b.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-13s  %5s  %5s  %5s  %5s  %7s  %6s  %s\n",
		"Batch", "Mode", "Total", "Appr", "Flag", "Rej", "Rate", "Trust", "Time")
	fmt.Printf("%-10s+-%-13s+-%5s+-%5s+-%5s+-%5s+-%7s+-%6s+-%s\n",
		"----------", "-------------", "-----", "-----", "-----", "-----", "-------", "------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-10s  %-13s  %5d  %5d  %5d  %5d  %7s  %6.4f  %s\n",
			shortID(r.BatchID), r.Mode, r.Total, r.Approved, r.Flagged, r.Rejected, r.ApprovalRate, r.AverageTrust, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region batch-mode

type decisionRow struct {
	ReadingID    string   `json:"reading_id"`
	DeviceID     string   `json:"device_id"`
	Decision     string   `json:"decision"`
	TrustScore   float64  `json:"trust_score"`
	SamplingRate *float64 `json:"sampling_rate,omitempty"`
	EvidenceRef  string   `json:"evidence_ref,omitempty"`
	Reasoning    string   `json:"reasoning"`
}

func runBatchMode(st *store.Store, batchID string, jsonOut bool) error {
	rec, err := st.GetBatch(batchID)
	if err != nil {
		return err
	}
	entries, err := st.ListDecisions(batchID)
	if err != nil {
		return err
	}

	rows := make([]decisionRow, len(entries))
	for i, e := range entries {
		rows[i] = decisionRow{
			ReadingID:    e.ReadingID,
			DeviceID:     e.DeviceID,
			Decision:     e.Decision,
			TrustScore:   e.TrustScore,
			SamplingRate: e.SamplingRate,
			EvidenceRef:  e.EvidenceRef,
			Reasoning:    e.Reasoning,
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("Batch:     %s\n", rec.BatchID)
	fmt.Printf("Mode:      %s\n", rec.Mode)
	fmt.Printf("Created:   %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Approval:  %s (%d/%d)\n", rec.ApprovalRate, rec.Approved, rec.Total)
	fmt.Printf("Trust:     %.4f avg\n\n", rec.AverageTrust)

	for _, r := range rows {
		rate := "-"
		if r.SamplingRate != nil {
			rate = fmt.Sprintf("%.1f%%", *r.SamplingRate*100)
		}
		ev := "-"
		if r.EvidenceRef != "" {
			ev = shortID(r.EvidenceRef)
		}
		fmt.Printf("  %-14s %-19s %6.4f  %6s  %-8s  %s\n", r.ReadingID, r.Decision, r.TrustScore, rate, ev, r.Reasoning)
	}
	return nil
}

// #endregion batch-mode

// #region evidence-mode

func runEvidenceMode(st *store.Store, bundleID string, jsonOut bool) error {
	b, err := st.GetEvidence(bundleID)
	if err != nil {
		return err
	}
	ok, err := evidence.VerifyDigest(b)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(struct {
			Bundle      *evidence.Bundle `json:"bundle"`
			DigestValid bool             `json:"digest_valid"`
		}{b, ok})
	}

	fmt.Printf("Bundle:    %s\n", b.ID)
	fmt.Printf("Reading:   %s (%s)\n", b.ReadingID, b.DeviceID)
	fmt.Printf("Created:   %s\n", b.Timestamp.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Formula:   %s\n", b.TrustCalculation.Formula)
	o := b.TrustCalculation.Operands
	fmt.Printf("Operands:  P=%.3f T=%.3f E=%.3f S=%.3f C=%.3f\n", o.P, o.T, o.E, o.S, o.C)
	fmt.Printf("Trust:     %.4f\n", b.TrustCalculation.Result)
	fmt.Printf("Samples:   %d recent readings\n", len(b.SampleReadings))
	if d := b.BaselineComparison.Deviation; d != nil {
		fmt.Printf("Deviation: generation %.2f%%, flow %.2f%%\n", d.Generation*100, d.Flow*100)
	}
	fmt.Printf("Digest:    %s\n", b.Digest)
	if ok {
		fmt.Printf("Integrity: OK\n")
	} else {
		fmt.Printf("Integrity: MISMATCH\n")
	}
	return nil
}

// #endregion evidence-mode

// #region output

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/mrv-verifier/internal/replay"
	"github.com/danielpatrickdp/mrv-verifier/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to mrv_verifier.db (DB mode)")
	batchID := flag.String("batch", "", "batch to replay in DB mode (default: most recent)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	mode := flag.String("mode", "", "override the recorded mode")
	seed := flag.Int64("seed", 1, "seed for evidence and sampling")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/mrv_verifier.db [--batch id] [--mode m] [--seed n]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json [--mode m]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *mode)
	} else {
		exitCode = runDBMode(*dbPath, *batchID, *mode, *seed)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-extract

func runDBMode(dbPath, batchID, mode string, seed int64) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	if batchID == "" {
		recent, err := st.ListBatches(1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list batches: %v\n", err)
			return 2
		}
		if len(recent) == 0 {
			fmt.Fprintln(os.Stderr, "no batches found")
			return 2
		}
		batchID = recent[0].BatchID
	}

	rec, err := st.GetBatch(batchID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get batch: %v\n", err)
		return 2
	}
	entries, err := st.ListDecisions(batchID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list decisions: %v\n", err)
		return 2
	}

	f, err := replay.FixtureFromBatch(rec, entries, seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rebuild batch: %v\n", err)
		return 2
	}
	return replayFixture(f, mode)
}

// #endregion db-extract

// #region output

func runFixtureMode(path, mode string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return replayFixture(f, mode)
}

func replayFixture(f *replay.Fixture, mode string) int {
	if mode != "" {
		f.Config.Mode = mode
	}
	results, err := replay.ReplayFixture(context.Background(), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	code := printComparison(results, f.Expected())

	s := replay.Summarize(results)
	fmt.Printf("Decisions: %d approved, %d flagged, %d rejected; %d sampled, %d evidence bundles\n",
		s.Approved, s.Flagged, s.Rejected, s.Sampled, s.Evidence)
	return code
}

// printComparison outputs a comparison table and returns exit code.
// expected holds the reference decisions (from DB or fixture).
func printComparison(results []replay.ReplayResult, expected []string) int {
	fmt.Printf("%-14s| %-19s| %-19s| %s\n", "Reading", "Expected", "Replayed", "Match")
	fmt.Printf("%-14s+%-20s+%-20s+%s\n",
		"--------------", "--------------------", "--------------------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		exp := expected[i]
		got := string(results[i].Decision)
		match := "DIFF"
		if exp == got {
			match = "OK"
			matches++
		}
		fmt.Printf("%-14s| %-19s| %-19s| %s\n", results[i].ReadingID, exp, got, match)
	}

	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/mrv-verifier/internal/replay"
	"github.com/danielpatrickdp/mrv-verifier/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to mrv_verifier.db")
	batchID := flag.String("batch", "", "batch to export (default: most recent)")
	seed := flag.Int64("seed", 1, "seed recorded in the fixture")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--batch id] [--seed n]")
		os.Exit(2)
	}

	if err := run(*dbPath, *batchID, *seed, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, batchID string, seed int64, outPath string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	if batchID == "" {
		recent, err := st.ListBatches(1)
		if err != nil {
			return err
		}
		if len(recent) == 0 {
			return fmt.Errorf("no batches found in %s", dbPath)
		}
		batchID = recent[0].BatchID
	}

	rec, err := st.GetBatch(batchID)
	if err != nil {
		return err
	}
	entries, err := st.ListDecisions(batchID)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d decisions in batch %s\n", len(entries), batchID)

	fixture, err := replay.FixtureFromBatch(rec, entries, seed)
	if err != nil {
		return err
	}
	if err := replay.WriteFixture(outPath, fixture); err != nil {
		return err
	}

	fmt.Printf("Wrote fixture to %s (%d results)\n", outPath, len(fixture.Results))
	return nil
}

// #endregion extract

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/mrv-verifier/internal/anomaly"
	"github.com/danielpatrickdp/mrv-verifier/internal/config"
	"github.com/danielpatrickdp/mrv-verifier/internal/engine"
	"github.com/danielpatrickdp/mrv-verifier/internal/logging"
	"github.com/danielpatrickdp/mrv-verifier/internal/schema"
	"github.com/danielpatrickdp/mrv-verifier/internal/telemetry"
)

type verifyFlags struct {
	input  string
	out    string
	dryRun bool
}

// verifyOutput is what verify prints or writes.
type verifyOutput struct {
	BatchID string              `json:"batch_id,omitempty"`
	Result  *engine.BatchResult `json:"result"`
}

func newVerifyCmd(root *rootFlags) *cobra.Command {
	flags := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a batch of telemetry readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, root, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.input, "input", "", "batch JSON file (required)")
	f.StringVar(&flags.out, "out", "", "write result JSON here instead of stdout")
	f.BoolVar(&flags.dryRun, "dry-run", false, "do not persist the batch")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runVerify(cmd *cobra.Command, root *rootFlags, flags *verifyFlags) error {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}
	log := logging.Component("verify")

	data, err := os.ReadFile(flags.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	batch, err := schema.DecodeBatch(data)
	if err != nil {
		return err
	}

	tctx, err := prepareContext(cmd.Context(), cfg, batch.Context)
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	res, err := eng.VerifyBatch(cmd.Context(), batch.Readings, tctx)
	if err != nil {
		return err
	}

	out := verifyOutput{Result: res}
	if !flags.dryRun {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		out.BatchID, err = st.CommitBatch(res, tctx)
		if err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		log.Info().Str("batch", out.BatchID).Str("db", cfg.DBPath).Msg("batch committed")
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if flags.out != "" {
		if err := os.WriteFile(flags.out, payload, 0644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Result: %s\n", flags.out)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(payload))
	return nil
}

// prepareContext fills derived context: statistics over recent readings
// and, when a model is configured, anomalies among them.
func prepareContext(ctx context.Context, cfg config.Resolved, tctx telemetry.Context) (telemetry.Context, error) {
	if tctx.Stats == nil {
		tctx.Stats = telemetry.ComputeStats(tctx.RecentReadings)
	}
	if !cfg.Anomaly.Enabled() || len(tctx.RecentReadings) == 0 {
		return tctx, nil
	}

	client, err := anomaly.NewClient(cfg.Anomaly.Addr, anomaly.Config{
		RatePerSecond:   cfg.Anomaly.RatePerSecond,
		Burst:           cfg.Anomaly.Burst,
		Timeout:         cfg.Anomaly.Timeout,
		MaxElapsed:      cfg.Anomaly.MaxElapsed,
		InitialInterval: anomaly.DefaultConfig().InitialInterval,
	})
	if err != nil {
		return tctx, err
	}
	defer client.Close()

	n, err := anomaly.CountAnomalies(ctx, client, tctx.RecentReadings)
	if err != nil {
		return tctx, fmt.Errorf("count anomalies: %w", err)
	}
	tctx.RecentAnomalies += n
	return tctx, nil
}

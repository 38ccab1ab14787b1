package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/mrv-verifier/internal/checks"
	"github.com/danielpatrickdp/mrv-verifier/internal/config"
	"github.com/danielpatrickdp/mrv-verifier/internal/engine"
	"github.com/danielpatrickdp/mrv-verifier/internal/logging"
	"github.com/danielpatrickdp/mrv-verifier/internal/sampler"
	"github.com/danielpatrickdp/mrv-verifier/internal/store"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "verifier",
		Short:         "Two-tier MRV verification for hydropower telemetry",
		Long:          "verifier classifies telemetry readings under the strict or evidence-rich\npreset, plans audit sampling and evaluates device graduation.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to YAML config (optional)")
	pf.StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(newVerifyCmd(flags))
	root.AddCommand(newGraduateCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	return root
}

// #region runtime
// loadConfig resolves configuration once and sets up logging to stderr.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (config.Resolved, error) {
	f, err := config.Load(flags.configPath)
	if err != nil {
		return config.Resolved{}, err
	}
	if flags.dbPath != "" {
		f.DBPath = flags.dbPath
	}
	cfg, err := config.Resolve(f)
	if err != nil {
		return config.Resolved{}, err
	}
	logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())
	return cfg, nil
}

func buildEngine(cfg config.Resolved) (*engine.Engine, error) {
	eng, err := engine.New(engine.Options{
		Mode:     cfg.Mode,
		Criteria: &cfg.Graduation,
		Workers:  cfg.Workers,
		Rand:     rand.New(rand.NewSource(cfg.EvidenceSeed)),
	}, checks.NewVerifier(cfg.Verifier), sampler.NewSeeded(cfg.Sampler, cfg.SamplerSeed))
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, nil
}

func openStore(cfg config.Resolved) (*store.Store, error) {
	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	return st, nil
}
// #endregion runtime

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/mrv-verifier/internal/graduation"
	"github.com/danielpatrickdp/mrv-verifier/internal/store"
)

type graduateFlags struct {
	device  string
	history string
	jsonOut bool
}

func newGraduateCmd(root *rootFlags) *cobra.Command {
	flags := &graduateFlags{}
	cmd := &cobra.Command{
		Use:   "graduate",
		Short: "Check whether a device may move to evidence-rich mode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraduate(cmd, root, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.device, "device", "", "device ID with a stored history")
	f.StringVar(&flags.history, "history", "", "device history JSON file")
	f.BoolVar(&flags.jsonOut, "json", false, "output the report as JSON")
	cmd.MarkFlagsOneRequired("device", "history")
	cmd.MarkFlagsMutuallyExclusive("device", "history")
	return cmd
}

func runGraduate(cmd *cobra.Command, root *rootFlags, flags *graduateFlags) error {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	var h graduation.History
	if flags.history != "" {
		h, err = readHistory(flags.history)
		if err != nil {
			return err
		}
	} else {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		h, err = st.GetDeviceHistory(flags.device)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no history stored for device %s", flags.device)
		}
		if err != nil {
			return err
		}
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	report := eng.CheckGraduationEligibility(h)

	out := cmd.OutOrStdout()
	if flags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(out, "Device:   %s\n", h.DeviceID)
	fmt.Fprintf(out, "Eligible: %t\n", report.Eligible)
	for _, c := range report.Checks {
		mark := "FAIL"
		if c.Pass {
			mark = "ok"
		}
		fmt.Fprintf(out, "  %-16s %-4s %s\n", c.Name, mark, c.Detail)
	}
	fmt.Fprintf(out, "%s\n", report.Recommendation)
	return nil
}

func readHistory(path string) (graduation.History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return graduation.History{}, fmt.Errorf("read history: %w", err)
	}
	var h graduation.History
	if err := json.Unmarshal(data, &h); err != nil {
		return graduation.History{}, fmt.Errorf("parse history %s: %w", path, err)
	}
	return h, nil
}

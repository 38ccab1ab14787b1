package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type historyFlags struct {
	file   string
	device string
}

func newHistoryCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage stored device histories",
	}
	cmd.AddCommand(newHistoryPutCmd(root), newHistoryGetCmd(root))
	return cmd
}

func newHistoryPutCmd(root *rootFlags) *cobra.Command {
	flags := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store or replace a device history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			h, err := readHistory(flags.file)
			if err != nil {
				return err
			}
			if h.DeviceID == "" {
				return fmt.Errorf("history %s: missing device_id", flags.file)
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.PutDeviceHistory(h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored history for %s\n", h.DeviceID)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.file, "file", "", "device history JSON file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newHistoryGetCmd(root *rootFlags) *cobra.Command {
	flags := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a stored device history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			h, err := st.GetDeviceHistory(flags.device)
			if err != nil {
				return fmt.Errorf("get history %s: %w", flags.device, err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(h)
		},
	}
	cmd.Flags().StringVar(&flags.device, "device", "", "device ID (required)")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

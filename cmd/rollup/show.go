package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rollup-metrics/rollup/internal/recompute"
	"github.com/rollup-metrics/rollup/internal/storage"
	"github.com/rollup-metrics/rollup/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <issue-key>...",
	Short: "Show stored rollup metrics without recomputing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		for _, key := range args {
			result, err := recompute.LoadMetric(rootCtx, store, key)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Printf("%s  %s\n", key, ui.RenderMuted("(no metric stored)"))
				continue
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				outputJSON(result)
				continue
			}
			fmt.Printf("%s  %s  %s\n", key,
				ui.RenderMetric(result.Label, result.Color),
				ui.RenderMuted("updated "+result.UpdatedAt))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rollup-metrics/rollup/internal/recompute"
	"github.com/rollup-metrics/rollup/internal/storage"
	"github.com/rollup-metrics/rollup/internal/ui"
)

var computeCmd = &cobra.Command{
	Use:   "compute <issue-key>",
	Short: "Compute and store the rollup metric for an issue",
	Long: `Compute walks the issue's descendants, aggregates them with the
configured formula, and stores the colored result. With a configured
mirror property the result is also written back to the tracker.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		coord, err := newCoordinator(cfg, store)
		if err != nil {
			return err
		}

		if err := coord.Recompute(rootCtx, key); err != nil {
			return err
		}

		result, err := recompute.LoadMetric(rootCtx, store, key)
		if errors.Is(err, storage.ErrNotFound) {
			// Tombstoned: the issue has no descendants in range.
			fmt.Printf("%s: no descendants, no metric\n", key)
			return nil
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			outputJSON(result)
			return nil
		}
		fmt.Printf("%s  %s\n", key, ui.RenderMetric(result.Label, result.Color))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(computeCmd)
}

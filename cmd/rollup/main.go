// Command rollup computes hierarchy-aggregated metrics for tracker
// issues: it walks an issue's descendants, aggregates them with the
// configured formula, colors the result against thresholds, and stores
// it locally with an optional mirror back to the tracker.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rollup-metrics/rollup/internal/config"
	"github.com/rollup-metrics/rollup/internal/debug"
	"github.com/rollup-metrics/rollup/internal/hierarchy"
	"github.com/rollup-metrics/rollup/internal/jira"
	"github.com/rollup-metrics/rollup/internal/recompute"
	"github.com/rollup-metrics/rollup/internal/storage"
	"github.com/rollup-metrics/rollup/internal/storage/memory"
	"github.com/rollup-metrics/rollup/internal/storage/sqlite"
)

var (
	configPath  string
	fieldID     string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
	memoryStore bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Hierarchy-aggregated metrics for tracker issues",
	Long: `rollup walks an issue's descendants, aggregates story points,
counts, or a custom formula over them, and colors the result against
configured thresholds. Computed metrics are stored locally and can be
mirrored back to the tracker as issue properties.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			debug.SetVerbose(true)
		}
		if quietFlag {
			debug.SetQuiet(true)
		}
	},
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.rollup/config.toml)")
	rootCmd.PersistentFlags().StringVar(&fieldID, "field", "rollup", "Configured field id to compute")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&memoryStore, "memory", false, "Use an in-memory metric store (no persistence)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config or the default
// path, then applies ROLLUP_* environment overrides. Env wins over file
// so credentials can stay out of the config in CI.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("ROLLUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if s := v.GetString("jira.url"); s != "" {
		cfg.Jira.URL = s
	}
	if s := v.GetString("jira.username"); s != "" {
		cfg.Jira.Username = s
	}
	if s := v.GetString("jira.token"); s != "" {
		cfg.Jira.APIToken = s
	}
	if s := v.GetString("store.path"); s != "" {
		cfg.StorePath = s
	}
	return cfg, nil
}

// openStore opens the metric store: sqlite at the configured path, or
// in-memory with --memory.
func openStore(cfg *config.Config) (storage.Store, error) {
	if memoryStore {
		return memory.New(), nil
	}
	return sqlite.New(cfg.ResolveStorePath())
}

// newJiraClient builds the tracker client, failing early when the
// connection is not configured.
func newJiraClient(cfg *config.Config) (*jira.Client, error) {
	if cfg.Jira.URL == "" {
		return nil, fmt.Errorf("jira.url not configured (run 'rollup config init' and edit %s)", config.DefaultPath())
	}
	return jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken), nil
}

// newCoordinator wires the walker, store, and optional mirror into a
// recompute coordinator for the selected field.
func newCoordinator(cfg *config.Config, store storage.Store) (*recompute.Coordinator, error) {
	fc, err := cfg.Field(fieldID)
	if err != nil {
		return nil, err
	}
	client, err := newJiraClient(cfg)
	if err != nil {
		return nil, err
	}

	coord := recompute.New(hierarchy.NewWalker(client), store, fc)
	if cfg.MirrorProperty != "" {
		coord.SetMirror(client, cfg.MirrorProperty)
	}
	return coord, nil
}

func outputJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: marshaling output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

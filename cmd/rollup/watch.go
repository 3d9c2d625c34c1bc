package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rollup-metrics/rollup/internal/eventbus"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Read changed issue keys from stdin and recompute their ancestry",
	Long: `Watch reads issue keys from stdin, one per line, and dispatches each
as a change event: the key and its ancestors are recomputed, debounced
within a short window. Lines may be prefixed with "created:" or
"deleted:" to signal the event kind; bare keys count as changes.

Intended to sit behind a webhook receiver or a polling script:

  jira-webhook-tail | rollup watch`,
	Args: cobra.NoArgs,
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

		coord, err := newCoordinator(cfg, store)
		if err != nil {
			return err
		}

		bus := eventbus.New()
		bus.Register(&eventbus.RecomputeHandler{Coordinator: coord})

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if rootCtx.Err() != nil {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			event := parseEventLine(line)
			result, err := bus.Dispatch(rootCtx, event)
			if err != nil {
				return err
			}
			for _, key := range result.Recomputed {
				if !quietFlag {
					fmt.Printf("recomputed %s\n", key)
				}
			}
		}
		return scanner.Err()
	},
}

// parseEventLine maps one stdin line to an event. "created:KEY" and
// "deleted:KEY" select those kinds; anything else is a change.
func parseEventLine(line string) *eventbus.Event {
	eventType := eventbus.EventIssueChanged
	key := line
	switch {
	case strings.HasPrefix(line, "created:"):
		eventType = eventbus.EventIssueCreated
		key = strings.TrimPrefix(line, "created:")
	case strings.HasPrefix(line, "deleted:"):
		eventType = eventbus.EventIssueDeleted
		key = strings.TrimPrefix(line, "deleted:")
	}
	return &eventbus.Event{Type: eventType, Key: strings.TrimSpace(key)}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

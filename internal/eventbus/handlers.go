package eventbus

import (
	"context"
	"fmt"
	"time"
)

// ChangeRecomputer is satisfied by the recompute coordinator.
type ChangeRecomputer interface {
	HandleChange(ctx context.Context, changedKey string) error
}

// RecomputeHandler feeds issue change events into the recompute
// coordinator. Priority 50: metric recomputation runs after any earlier
// bookkeeping handlers.
type RecomputeHandler struct {
	Coordinator ChangeRecomputer
}

func (h *RecomputeHandler) ID() string { return "recompute" }

func (h *RecomputeHandler) Handles() []EventType {
	return []EventType{EventIssueChanged, EventIssueCreated, EventIssueDeleted}
}

func (h *RecomputeHandler) Priority() int { return 50 }

func (h *RecomputeHandler) Handle(ctx context.Context, event *Event, result *Result) error {
	if event.Key == "" {
		return fmt.Errorf("recompute: event %s has no key", event.Type)
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	if err := h.Coordinator.HandleChange(ctx, event.Key); err != nil {
		return fmt.Errorf("recompute: %w", err)
	}
	result.Recomputed = append(result.Recomputed, event.Key)
	return nil
}

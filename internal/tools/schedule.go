package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rohan/orbit/internal/store"
)

// ScheduleTool records a scheduling intent as a durable memory. It does not
// itself schedule anything; a background loop picks the intents up.
type ScheduleTool struct {
	Store MemoryStore
}

func NewScheduleTool(s MemoryStore) *ScheduleTool {
	return &ScheduleTool{Store: s}
}

func (c *ScheduleTool) Name() string {
	return "schedule_task"
}

func (c *ScheduleTool) Description() string {
	return "Record a request to run a task later or on a recurring interval."
}

func (c *ScheduleTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_description": map[string]any{
				"type":        "string",
				"description": "What the agent should do when the schedule fires",
			},
			"interval_seconds": map[string]any{
				"type":        "integer",
				"description": "The interval in seconds (0 for one-shot, minimum 60 otherwise)",
			},
		},
		"required": []string{"task_description"},
	}
}

func (c *ScheduleTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Desc     string `json:"task_description"`
		Interval int    `json:"interval_seconds"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if args.Desc == "" {
		return "", fmt.Errorf("task_description is required")
	}
	if args.Interval > 0 && args.Interval < 60 {
		return "Error: Minimum interval is 60 seconds to prevent spamming.", nil
	}

	meta := map[string]any{
		"intent":           "schedule",
		"interval_seconds": args.Interval,
	}
	_, err := c.Store.SaveMemory(ctx, UserID(ctx), store.MemoryTask,
		fmt.Sprintf("scheduled intent: %s", args.Desc), meta, 0.5)
	if err != nil {
		return "", fmt.Errorf("failed to record schedule intent: %v", err)
	}
	return fmt.Sprintf("Recorded scheduling intent: '%s' (every %d seconds).", args.Desc, args.Interval), nil
}

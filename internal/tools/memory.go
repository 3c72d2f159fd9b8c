package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohan/orbit/internal/store"
)

// MemoryStore is the slice of the persistence store the memory and
// scheduling tools need. Satisfied by *store.Store.
type MemoryStore interface {
	SaveMemory(ctx context.Context, userID, memType, content string, metadata map[string]any, score float64) (*store.Memory, error)
	SearchMemories(ctx context.Context, userID, query string, opts store.MemoryQuery) ([]*store.Memory, error)
}

// MemoryTool lets the agent store and recall durable facts mid-task.
type MemoryTool struct {
	Store MemoryStore
}

func NewMemoryTool(s MemoryStore) *MemoryTool {
	return &MemoryTool{Store: s}
}

func (m *MemoryTool) Name() string {
	return "memory"
}

func (m *MemoryTool) Description() string {
	return "Store a fact for later ('store') or recall previously stored facts by keywords ('recall')."
}

func (m *MemoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"store", "recall"},
				"description": "The action to perform",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The fact to store (for 'store')",
			},
			"query": map[string]any{
				"type":        "string",
				"description": "Keywords to search for (for 'recall')",
			},
		},
		"required": []string{"action"},
	}
}

func (m *MemoryTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Action  string `json:"action"`
		Content string `json:"content"`
		Query   string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	userID := UserID(ctx)

	switch args.Action {
	case "store":
		if strings.TrimSpace(args.Content) == "" {
			return "", fmt.Errorf("content is required for 'store'")
		}
		if _, err := m.Store.SaveMemory(ctx, userID, store.MemoryFact, args.Content, nil, 0.6); err != nil {
			return "", fmt.Errorf("failed to store memory: %v", err)
		}
		return "Stored.", nil

	case "recall":
		if strings.TrimSpace(args.Query) == "" {
			return "", fmt.Errorf("query is required for 'recall'")
		}
		memories, err := m.Store.SearchMemories(ctx, userID, args.Query, store.MemoryQuery{Limit: 5})
		if err != nil {
			return "", fmt.Errorf("failed to recall memories: %v", err)
		}
		if len(memories) == 0 {
			return "No matching memories found.", nil
		}
		var out strings.Builder
		for _, mem := range memories {
			fmt.Fprintf(&out, "- [%s] %s\n", mem.Type, mem.Content)
		}
		return out.String(), nil

	default:
		return "Invalid action. Use 'store' or 'recall'.", nil
	}
}

package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rohan/orbit/internal/tools"
)

func TestLooksLikeTask(t *testing.T) {
	tasks := []string{
		"search for the best pizza in town",
		"Find me flights to Lisbon",
		"create a shopping list",
		"calculate 15% of 80",
		"monitor the server logs",
		strings.Repeat("long message without trigger words ", 10),
	}
	for _, msg := range tasks {
		if !looksLikeTask(msg) {
			t.Errorf("expected task classification for %q", msg)
		}
	}

	chat := []string{
		"hello",
		"how are you?",
		"thanks, that was helpful",
	}
	for _, msg := range chat {
		if looksLikeTask(msg) {
			t.Errorf("expected conversational classification for %q", msg)
		}
	}
}

func TestChatConversationalTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"Hi! What can I do for you?"}}
	orch, _ := newTestOrchestrator(t, provider, tools.NewRegistry(time.Second), testConfig())

	reply, err := orch.Chat(context.Background(), "hello", "alice")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "Hi! What can I do for you?" {
		t.Errorf("unexpected reply %q", reply)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("expected a single provider turn, got %d", len(provider.calls))
	}
}

func TestChatDispatchesTask(t *testing.T) {
	registry := tools.NewRegistry(5 * time.Second)
	registry.Register(&stubTool{name: "search", fn: func(ctx context.Context, input string) (string, error) {
		return "three results found", nil
	}})

	provider := &scriptedProvider{responses: []string{
		`[{"action": "Search the web", "tool": "search", "args": {"query": "pizza"}}]`,
		"Here are the best pizza places I found.",
	}}
	orch, _ := newTestOrchestrator(t, provider, registry, testConfig())

	reply, err := orch.Chat(context.Background(), "search for the best pizza in town", "alice")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if !strings.Contains(reply, "pizza places") {
		t.Errorf("expected the synthesized task result, got %q", reply)
	}
}

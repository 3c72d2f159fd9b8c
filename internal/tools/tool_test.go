package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

type fakeTool struct {
	name  string
	delay time.Duration
	fail  bool
	calls int
}

func (f *fakeTool) Name() string               { return f.name }
func (f *fakeTool) Description() string        { return "a fake tool" }
func (f *fakeTool) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (f *fakeTool) Execute(ctx context.Context, input string) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail {
		return "", fmt.Errorf("deliberate failure")
	}
	return "echo:" + input, nil
}

func TestRegistry_Execute(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register(&fakeTool{name: "echo"})

	res := reg.Execute(context.Background(), "echo", map[string]any{"q": "hi"})
	if !res.Success {
		t.Fatalf("Expected success, got error: %s", res.Error)
	}

	var decoded map[string]any
	payload := strings.TrimPrefix(res.Data, "echo:")
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("Tool did not receive a JSON object: %v", err)
	}
	if decoded["q"] != "hi" {
		t.Errorf("Expected arg q=hi, got %v", decoded["q"])
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg := NewRegistry(time.Second)
	res := reg.Execute(context.Background(), "nope", nil)
	if res.Success {
		t.Fatal("Expected failure for unknown tool")
	}
	if !strings.Contains(res.Error, "unknown tool") {
		t.Errorf("Expected unknown-tool error, got %q", res.Error)
	}
}

func TestRegistry_FailureIsResultNotPanic(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register(&fakeTool{name: "bad", fail: true})

	res := reg.Execute(context.Background(), "bad", nil)
	if res.Success {
		t.Fatal("Expected failure result")
	}
	if !strings.Contains(res.Error, "deliberate failure") {
		t.Errorf("Expected tool error surfaced, got %q", res.Error)
	}
}

func TestRegistry_Timeout(t *testing.T) {
	reg := NewRegistry(50 * time.Millisecond)
	slow := &fakeTool{name: "slow", delay: 2 * time.Second}
	reg.Register(slow)

	start := time.Now()
	res := reg.Execute(context.Background(), "slow", nil)
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("Expected timeout failure")
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("Expected timeout error, got %q", res.Error)
	}
	if elapsed > time.Second {
		t.Errorf("Execute should have returned at the timeout, took %v", elapsed)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry(time.Second)
	reg.Register(&fakeTool{name: "zeta"})
	reg.Register(&fakeTool{name: "alpha"})
	reg.Register(&fakeTool{name: "mid"})

	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name())
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected sorted order %v, got %v", want, names)
		}
	}
}

func TestContextPlumbing(t *testing.T) {
	ctx := WithUserID(context.Background(), "u1")
	ctx = WithTaskID(ctx, "t1")
	if UserID(ctx) != "u1" {
		t.Errorf("Expected user id u1, got %q", UserID(ctx))
	}
	if TaskID(ctx) != "t1" {
		t.Errorf("Expected task id t1, got %q", TaskID(ctx))
	}
	if UserID(context.Background()) != "" {
		t.Error("Expected empty user id on bare context")
	}
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Tool defines the interface for all agent capabilities. Execute receives
// the call arguments as a JSON object string.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	Execute(ctx context.Context, input string) (string, error)
}

// Result is the structured outcome of a registry execution. Failures are
// data, never panics.
type Result struct {
	Success bool
	Data    string
	Error   string
}

// Registry manages the set of available tools and runs each execution under
// a shared timeout.
type Registry struct {
	tools   map[string]Tool
	timeout time.Duration
}

const DefaultTimeout = 30 * time.Second

func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		tools:   make(map[string]Tool),
		timeout: timeout,
	}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// List returns the registered tools sorted by name, so prompt catalogs are
// deterministic.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Execute runs a tool with the given arguments, racing its work against the
// registry timeout. The tool receives a context cancelled when the timer
// fires; tools that ignore the context keep running unobserved, which is a
// documented leak, not a crash.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Result {
	t := r.Get(name)
	if t == nil {
		return Result{Error: fmt.Sprintf("unknown tool: %s", name)}
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments for %s: %v", name, err)}
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		data string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, err := t.Execute(execCtx, string(payload))
		done <- outcome{data: data, err: err}
	}()

	select {
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return Result{Error: fmt.Sprintf("tool %s cancelled: %v", name, ctx.Err())}
		}
		return Result{Error: fmt.Sprintf("tool %s timed out after %s", name, r.timeout)}
	case o := <-done:
		if o.err != nil {
			return Result{Error: o.err.Error()}
		}
		return Result{Success: true, Data: o.data}
	}
}

// Context plumbing: tools that write user- or task-scoped records need to
// know who is calling without a global map.

type ctxKey string

const (
	ctxKeyUserID ctxKey = "orbit-user-id"
	ctxKeyTaskID ctxKey = "orbit-task-id"
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}

func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, ctxKeyTaskID, taskID)
}

func TaskID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyTaskID).(string)
	return v
}

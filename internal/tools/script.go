package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

const scriptMaxSteps = 500000

// ScriptTool runs small Starlark programs in-process. The interpreter has no
// filesystem, network or import access, a bounded step budget, and print
// output is captured and returned.
type ScriptTool struct{}

func NewScriptTool() *ScriptTool {
	return &ScriptTool{}
}

func (s *ScriptTool) Name() string {
	return "script"
}

func (s *ScriptTool) Description() string {
	return "Execute a sandboxed Starlark (Python-like) script for data transformation and computation. Use print() for output; assign to 'result' for a final value."
}

func (s *ScriptTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "The Starlark source code to run",
			},
		},
		"required": []string{"code"},
	}
}

func (s *ScriptTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if strings.TrimSpace(args.Code) == "" {
		return "", fmt.Errorf("code is required")
	}

	var logs strings.Builder
	thread := &starlark.Thread{
		Name: "script",
		Print: func(_ *starlark.Thread, msg string) {
			logs.WriteString(msg)
			logs.WriteString("\n")
		},
	}
	thread.SetMaxExecutionSteps(scriptMaxSteps)

	// Abandoned scripts stop at the next interpreter step once the
	// registry timeout cancels ctx.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("context cancelled")
		case <-stop:
		}
	}()

	globals, err := starlark.ExecFile(thread, "script.star", args.Code, nil)
	if err != nil {
		return "", fmt.Errorf("script failed: %v", err)
	}

	output := logs.String()
	if result, ok := globals["result"]; ok {
		if output != "" {
			output += "\n"
		}
		output += "result = " + result.String()
	}
	if strings.TrimSpace(output) == "" {
		output = "Script completed with no output."
	}
	return output, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rohan/orbit/internal/governance"
)

const shellMaxOutput = 20000

// ShellTool executes system shell commands. Every command is checked
// against the governance deny-list before the subprocess is launched.
type ShellTool struct {
	Policy governance.PolicyEngine
	Dir    string
}

func NewShellTool(policy governance.PolicyEngine, dir string) *ShellTool {
	return &ShellTool{Policy: policy, Dir: dir}
}

func (s *ShellTool) Name() string {
	return "shell"
}

func (s *ShellTool) Description() string {
	return "Execute system shell commands. Use with caution. Destructive commands are blocked by policy."
}

func (s *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
		},
		"required": []string{"command"},
	}
}

func (s *ShellTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if strings.TrimSpace(args.Command) == "" {
		return "", fmt.Errorf("command is required")
	}

	if s.Policy != nil {
		verdict, err := s.Policy.Evaluate(ctx, governance.Request{
			Tool:      s.Name(),
			Arguments: args.Command,
			UserID:    UserID(ctx),
		})
		if err != nil {
			return "", fmt.Errorf("policy evaluation failed: %v", err)
		}
		if verdict.Effect == governance.EffectDeny {
			return "", fmt.Errorf("command blocked: %s", verdict.Reason)
		}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", args.Command)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	output, err := cmd.CombinedOutput()

	result := string(output)
	if len(result) > shellMaxOutput {
		result = result[:shellMaxOutput] + "\n... (output truncated)"
	}

	if err != nil {
		return fmt.Sprintf("Command failed: %v\nOutput: %s", err, result), nil
	}
	if strings.TrimSpace(result) == "" {
		return "Command completed with no output.", nil
	}
	return result, nil
}

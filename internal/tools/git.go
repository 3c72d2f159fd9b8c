package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// gitSubcommands is the passthrough allow-list.
var gitSubcommands = map[string]bool{
	"status": true, "log": true, "diff": true, "show": true,
	"add": true, "commit": true, "branch": true, "checkout": true,
	"pull": true, "push": true, "clone": true, "init": true,
}

// GitTool passes version-control commands through to the git binary,
// scoped to the workspace.
type GitTool struct {
	Dir string
}

func NewGitTool(dir string) *GitTool {
	return &GitTool{Dir: dir}
}

func (g *GitTool) Name() string {
	return "git"
}

func (g *GitTool) Description() string {
	return "Run a git command in the workspace (status, log, diff, add, commit, branch, checkout, pull, push, clone, init)."
}

func (g *GitTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"args": map[string]any{
				"type":        "string",
				"description": "The git arguments, e.g. 'status' or 'commit -m \"msg\"'",
			},
		},
		"required": []string{"args"},
	}
}

func (g *GitTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Args string `json:"args"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	fields := strings.Fields(args.Args)
	if len(fields) == 0 {
		return "", fmt.Errorf("git arguments are required")
	}
	if !gitSubcommands[fields[0]] {
		return "", fmt.Errorf("git subcommand %q is not allowed", fields[0])
	}

	cmd := exec.CommandContext(ctx, "git", fields...)
	if g.Dir != "" {
		cmd.Dir = g.Dir
	}
	output, err := cmd.CombinedOutput()
	result := strings.TrimSpace(string(output))
	if len(result) > shellMaxOutput {
		result = result[:shellMaxOutput] + "\n... (output truncated)"
	}
	if err != nil {
		return fmt.Sprintf("git failed: %v\n%s", err, result), nil
	}
	if result == "" {
		return "git completed with no output.", nil
	}
	return result, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// CalculatorTool evaluates arithmetic expressions. Pure, no side effects.
type CalculatorTool struct{}

func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

func (c *CalculatorTool) Name() string {
	return "calculator"
}

func (c *CalculatorTool) Description() string {
	return "Evaluate a mathematical expression, e.g. '2 + 2 * 10' or '(1500 * 0.15) / 3'."
}

func (c *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The arithmetic expression to evaluate",
			},
		},
		"required": []string{"expression"},
	}
}

func (c *CalculatorTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Expression string `json:"expression"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	if strings.TrimSpace(args.Expression) == "" {
		return "", fmt.Errorf("expression is required")
	}

	thread := &starlark.Thread{Name: "calculator"}
	thread.SetMaxExecutionSteps(10000)

	value, err := starlark.Eval(thread, "expr", args.Expression, nil)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate expression: %v", err)
	}
	return value.String(), nil
}

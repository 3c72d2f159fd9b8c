package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohan/orbit/internal/store"
	"github.com/rohan/orbit/internal/tools"
)

const (
	outputBound     = 2000
	synthesisBound  = 8000
	memoryBound     = 5
	plannerContract = `Respond with ONLY a JSON array of steps, no prose. Each step is an object:
{"action": "<what to do>", "tool": "<tool name or null for pure reasoning>", "args": {<tool arguments>}}
Arguments may reference an earlier step's output with the placeholder {{step_N}}.
Use the special tool "think" for steps that need reasoning over prior outputs.`
)

// toolCatalog renders the registry as a prompt section: name, description
// and parameter schema per tool, plus the reserved think pseudo-tool.
func toolCatalog(registry *tools.Registry) string {
	var b strings.Builder
	for _, t := range registry.List() {
		params, _ := json.Marshal(t.Parameters())
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", t.Name(), t.Description(), params)
	}
	b.WriteString("- think: Reason about prior step outputs with no external side effects.\n")
	return b.String()
}

func memorySection(memories []*store.Memory) string {
	if len(memories) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n## Relevant experience from past tasks:\n")
	for i, m := range memories {
		if i >= memoryBound {
			break
		}
		fmt.Fprintf(&b, "- %s\n", m.Content)
	}
	return b.String()
}

func buildPlanPrompt(task *store.Task, registry *tools.Registry, memories []*store.Memory, maxSteps int, constrained bool) []string {
	system := fmt.Sprintf(`You are an autonomous task agent. Break the user's goal into an ordered plan of at most %d steps.

## Available tools:
%s%s
%s`, maxSteps, toolCatalog(registry), memorySection(memories), plannerContract)

	user := "GOAL: " + task.Goal
	if task.Context != "" {
		user += "\n\nCONTEXT: " + task.Context
	}
	if constrained {
		user += "\n\nIMPORTANT: Your previous response was not valid JSON. Respond with NOTHING but the JSON array: no markdown, no explanation."
	}
	return []string{system, user}
}

func buildReplanPrompt(task *store.Task, registry *tools.Registry, failed *store.Step, maxSteps int) []string {
	var history strings.Builder
	for _, s := range task.Steps {
		if s.Index > failed.Index {
			break
		}
		out := s.Output
		if s.Status == store.StepFailed {
			out = "FAILED: " + s.Error
		}
		fmt.Fprintf(&history, "%d. %s [%s] -> %s\n", s.Index, s.Action, s.Status, truncate(out, 300))
	}

	system := fmt.Sprintf(`You are an autonomous task agent revising a plan after a step failure. Produce replacement steps for the REMAINING work only; completed steps will not rerun.

## Available tools:
%s
%s`, toolCatalog(registry), plannerContract)

	user := fmt.Sprintf(`GOAL: %s

## Progress so far:
%s
Step %d failed: %s

Produce at most %d replacement steps to finish the goal, working around the failure.`,
		task.Goal, history.String(), failed.Index, failed.Error, maxSteps)
	return []string{system, user}
}

func buildThinkPrompt(task *store.Task, step *store.Step) []string {
	var outputs strings.Builder
	for _, s := range task.Steps {
		if s.Status == store.StepSuccess && s.Index < step.Index {
			fmt.Fprintf(&outputs, "Step %d (%s): %s\n", s.Index, s.Action, truncate(s.Output, outputBound))
		}
	}
	system := "You are an autonomous task agent working through a plan. Answer the current reasoning step directly and concisely."
	user := fmt.Sprintf("GOAL: %s\n\n## Outputs so far:\n%s\n## Current step:\n%s", task.Goal, outputs.String(), step.Action)
	return []string{system, user}
}

func buildSynthesisPrompt(task *store.Task) []string {
	var outputs strings.Builder
	for _, s := range task.Steps {
		if s.Status != store.StepSuccess {
			continue
		}
		remaining := synthesisBound - outputs.Len()
		if remaining <= 0 {
			break
		}
		fmt.Fprintf(&outputs, "Step %d (%s): %s\n", s.Index, s.Action, truncate(s.Output, remaining))
	}
	system := "You are an autonomous task agent. Combine the step outputs into one clear, complete answer for the user. Do not mention steps or tools."
	user := fmt.Sprintf("GOAL: %s\n\n## Step outputs:\n%s", task.Goal, outputs.String())
	return []string{system, user}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}

package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/rohan/orbit/internal/store"
)

// goalCategories pair a label with its trigger keywords. Order matters: the
// first category with a hit wins.
var goalCategories = []struct {
	name     string
	keywords []string
}{
	{"weather", []string{"weather", "temperature", "forecast", "rain", "sunny"}},
	{"math", []string{"calculate", "compute", "sum of", "multiply", "divide", "percent"}},
	{"search", []string{"search", "find", "look up", "lookup", "latest", "news", "who is", "what is"}},
	{"creation", []string{"write", "create", "draft", "compose", "generate", "make a"}},
	{"monitoring", []string{"monitor", "watch", "track", "alert", "every day", "remind"}},
	{"coding", []string{"code", "script", "function", "debug", "program", "repository", "git"}},
	{"file-ops", []string{"file", "folder", "directory", "save to", "read the"}},
	{"analysis", []string{"analyze", "analyse", "summarize", "summarise", "compare", "explain", "review"}},
}

// categorizeGoal derives a coarse category from keyword heuristics; the
// learning phase keys tool-chain memories by it.
func categorizeGoal(goal string) string {
	lower := strings.ToLower(goal)
	for _, c := range goalCategories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name
			}
		}
	}
	return "general"
}

// learn extracts reusable memories from a finished task. It must never
// surface an error: learning failures are logged and swallowed.
func (o *Orchestrator) learn(ctx context.Context, task *store.Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: learning phase panicked for task %s: %v", task.ID, r)
		}
	}()

	category := categorizeGoal(task.Goal)
	chain := successfulToolChain(task)
	meta := map[string]any{
		"category": category,
		"task_id":  task.ID,
	}

	if task.Status == store.TaskCompleted {
		content := fmt.Sprintf("For %s goals, the tool chain [%s] completed: %s",
			category, chain, truncate(task.Goal, 120))
		if _, err := o.store.SaveMemory(ctx, task.UserID, store.MemoryLearning, content, meta, 0.8); err != nil {
			log.Printf("Warning: failed to save learning memory: %v", err)
		}
	} else {
		content := fmt.Sprintf("A %s goal failed (%s): %s",
			category, truncate(task.Error, 150), truncate(task.Goal, 120))
		if _, err := o.store.SaveMemory(ctx, task.UserID, store.MemoryLearning, content, meta, 0.3); err != nil {
			log.Printf("Warning: failed to save failure memory: %v", err)
		}
	}

	outcome := fmt.Sprintf("Task %s: %s (%d/%d steps succeeded, %d tokens)",
		task.Status, truncate(task.Goal, 120), successfulStepCount(task), len(task.Steps), task.TokensUsed)
	if _, err := o.store.SaveMemory(ctx, task.UserID, store.MemoryTask, outcome, meta, 0.5); err != nil {
		log.Printf("Warning: failed to save outcome memory: %v", err)
	}
}

func successfulToolChain(task *store.Task) string {
	var chain []string
	for _, s := range task.Steps {
		if s.Status == store.StepSuccess && s.Tool != "" {
			chain = append(chain, s.Tool)
		}
	}
	return strings.Join(chain, " -> ")
}

func successfulStepCount(task *store.Task) int {
	n := 0
	for _, s := range task.Steps {
		if s.Status == store.StepSuccess {
			n++
		}
	}
	return n
}

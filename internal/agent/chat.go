package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rohan/orbit/internal/llm"
	"github.com/rohan/orbit/internal/store"
)

// taskTriggers are imperative phrases that promote a chat message to a full
// task run instead of a single conversational turn.
var taskTriggers = []string{
	"search", "find", "look up", "scrape", "fetch", "download",
	"create", "write a", "generate", "build", "make me",
	"schedule", "remind", "monitor", "track",
	"calculate", "compute", "run ", "execute",
	"check the", "read the", "summarize", "analyze",
}

// looksLikeTask classifies a message with keyword heuristics. Long messages
// are treated as tasks too; short greetings stay conversational.
func looksLikeTask(message string) bool {
	lower := strings.ToLower(message)
	for _, t := range taskTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return len(message) > 200
}

// Chat is the conversational entry point: task-like messages run the full
// orchestration loop and return the trace, everything else is one provider
// turn seeded with recent task memories.
func (o *Orchestrator) Chat(ctx context.Context, message, userID string) (string, error) {
	if userID == "" {
		userID = "default"
	}

	if looksLikeTask(message) {
		task, err := o.SubmitTask(ctx, message, "", userID)
		if task == nil {
			return "", err
		}
		if task.Status == store.TaskCompleted && task.Result != "" {
			return task.Result, nil
		}
		return Trace(task), nil
	}

	var recent string
	if memories, err := o.store.GetRecentMemories(ctx, userID, store.MemoryTask, 3); err == nil && len(memories) > 0 {
		var b strings.Builder
		b.WriteString("\n\nRecent activity for this user:\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- %s\n", m.Content)
		}
		recent = b.String()
	}

	system := "You are Orbit, an autonomous task agent. Answer conversationally and briefly. If the user wants something done, suggest phrasing it as a concrete goal." + recent
	resp, err := o.provider.Chat(ctx, []llm.Message{llm.System(system), llm.User(message)}, llm.Options{})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan       EventType = "plan"
	EventTypeReplan     EventType = "replan"
	EventTypeStep       EventType = "step"
	EventTypeToolCall   EventType = "tool_call"
	EventTypeToolResult EventType = "tool_result"
	EventTypeLLM        EventType = "llm"
	EventTypeCost       EventType = "cost"
	EventTypeHeartbeat  EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. LLM exchanges additionally go to a
// size-capped transcript file.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(taskID, userID string, stepCount int, replanned bool) {
	typ := EventTypePlan
	if replanned {
		typ = EventTypeReplan
	}
	l.Log(Event{
		Type:   typ,
		TaskID: taskID,
		UserID: userID,
		Data:   map[string]any{"steps": stepCount},
	})
}

func (l *Logger) LogStep(taskID string, index int, action, status string) {
	l.Log(Event{
		Type:   EventTypeStep,
		TaskID: taskID,
		Data: map[string]any{
			"index":  index,
			"action": action,
			"status": status,
		},
	})
}

func (l *Logger) LogToolCall(taskID, tool string, args any) {
	l.Log(Event{
		Type:   EventTypeToolCall,
		TaskID: taskID,
		Data: map[string]any{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogToolResult(taskID, tool string, success bool, output string) {
	l.Log(Event{
		Type:   EventTypeToolResult,
		TaskID: taskID,
		Data: map[string]any{
			"tool":    tool,
			"success": success,
			"output":  output,
		},
	})
}

func (l *Logger) LogCost(taskID string, inputTokens, outputTokens int, model string) {
	l.Log(Event{
		Type:   EventTypeCost,
		TaskID: taskID,
		Data: map[string]any{
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
			"total_tokens":  inputTokens + outputTokens,
			"model":         model,
		},
	})
}

func (l *Logger) LogLLM(taskID, purpose string, response string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		TaskID: taskID,
		Data: map[string]any{
			"purpose":  purpose,
			"response": response,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

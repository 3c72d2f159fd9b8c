package store

import "time"

// TaskStatus tracks a task through the orchestration state machine.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskPlanning   TaskStatus = "planning"
	TaskExecuting  TaskStatus = "executing"
	TaskReplanning TaskStatus = "replanning"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// StepStatus tracks a single planned action.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Task is one end-to-end goal execution session. It is owned by the
// orchestrator for its lifetime and snapshotted after every transition.
type Task struct {
	ID               string        `json:"id"`
	Goal             string        `json:"goal"`
	Context          string        `json:"context,omitempty"`
	UserID           string        `json:"user_id"`
	Status           TaskStatus    `json:"status"`
	Steps            []Step        `json:"steps"`
	Observations     []Observation `json:"observations"`
	CurrentStepIndex int           `json:"current_step_index"`
	ReplanCount      int           `json:"replan_count"`
	Result           string        `json:"result,omitempty"`
	Error            string        `json:"error,omitempty"`
	TokensUsed       int           `json:"tokens_used"`
	StartedAt        time.Time     `json:"started_at"`
	CompletedAt      time.Time     `json:"completed_at,omitempty"`
}

// Step is one planned action within a task. Index is the 1-based position in
// the plan and stays strictly increasing across replans.
type Step struct {
	ID          string         `json:"id"`
	Index       int            `json:"index"`
	Action      string         `json:"action"`
	Tool        string         `json:"tool,omitempty"`
	Args        map[string]any `json:"args,omitempty"`
	Status      StepStatus     `json:"status"`
	Output      string         `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Retries     int            `json:"retries"`
	StartedAt   time.Time      `json:"started_at,omitempty"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
}

// Observation types.
const (
	ObsResult = "result"
	ObsError  = "error"
	ObsInfo   = "info"
)

// Observation is an append-only audit record for a step outcome. It feeds
// both the user-facing trace and the replanning prompt.
type Observation struct {
	StepIndex int       `json:"step_index"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Memory types.
const (
	MemoryTask       = "task"
	MemoryLearning   = "learning"
	MemoryPreference = "preference"
	MemoryFact       = "fact"
)

// Memory is a durable fact written by the learning phase and read back
// during planning. Memories are append-only; newer higher-scored entries
// supersede older ones at query time.
type Memory struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Score     float64        `json:"score"`
	CreatedAt time.Time      `json:"created_at"`
}

// LockRecord is the single row guarding an exclusive resource.
type LockRecord struct {
	Label     string
	Holder    string
	StartedAt time.Time
}

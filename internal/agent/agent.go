package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rohan/orbit/internal/llm"
	"github.com/rohan/orbit/internal/observability"
	"github.com/rohan/orbit/internal/store"
	"github.com/rohan/orbit/internal/tools"
	"github.com/rohan/orbit/pkg/config"
)

const (
	minGoalLength = 2
	maxGoalLength = 5000

	// thinkTool is intercepted by the orchestrator and never goes through
	// the registry: it needs live model access.
	thinkTool = "think"
)

// Orchestrator drives a task through plan -> execute -> observe -> adapt ->
// synthesize -> learn. All collaborators are constructor-injected; there is
// no process-wide state beyond the persisted records.
type Orchestrator struct {
	provider  llm.Provider
	registry  *tools.Registry
	store     *store.Store
	logger    *observability.Logger
	cfg       config.AgentConfig
	retryBase time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

type Option func(*Orchestrator)

// WithClock injects a clock for deadline tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleep replaces the retry-backoff delay, so tests don't wait.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

func New(provider llm.Provider, registry *tools.Registry, st *store.Store, logger *observability.Logger, cfg config.AgentConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  provider,
		registry:  registry,
		store:     st,
		logger:    logger,
		cfg:       cfg,
		retryBase: time.Second,
		now:       time.Now,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitTask runs one goal end to end and returns the final task snapshot.
// The returned task is also returned on fatal errors so callers can show
// the trace.
func (o *Orchestrator) SubmitTask(ctx context.Context, goal, taskCtx, userID string) (*store.Task, error) {
	goal = strings.TrimSpace(goal)
	if len(goal) < minGoalLength {
		return nil, &ValidationError{Reason: "goal is too short"}
	}
	if len(goal) > maxGoalLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("goal exceeds %d characters", maxGoalLength)}
	}
	if userID == "" {
		userID = "default"
	}

	task := &store.Task{
		ID:        uuid.NewString(),
		Goal:      goal,
		Context:   taskCtx,
		UserID:    userID,
		Status:    store.TaskPending,
		StartedAt: o.now(),
	}
	ctx = tools.WithTaskID(tools.WithUserID(ctx, userID), task.ID)
	if err := o.saveTask(ctx, task); err != nil {
		return nil, err
	}
	deadline := o.now().Add(o.cfg.TaskDeadline())

	observability.SetStatus(observability.PhasePlanning, goal)
	defer observability.SetStatus(observability.PhaseIdle, "")

	task.Status = store.TaskPlanning
	if err := o.saveTask(ctx, task); err != nil {
		return nil, err
	}

	steps, err := o.plan(ctx, task)
	if err != nil {
		o.fail(ctx, task, err)
		return task, err
	}
	task.Steps = steps
	task.Status = store.TaskExecuting
	o.logger.LogPlan(task.ID, userID, len(steps), false)
	if err := o.saveTask(ctx, task); err != nil {
		return nil, err
	}

	observability.SetStatus(observability.PhaseExecuting, goal)
	if err := o.executeLoop(ctx, task, deadline); err != nil {
		o.fail(ctx, task, err)
		return task, err
	}

	observability.SetStatus(observability.PhaseSynthesizing, goal)
	if err := o.synthesize(ctx, task); err != nil {
		o.fail(ctx, task, err)
		return task, err
	}

	task.Status = store.TaskCompleted
	task.CompletedAt = o.now()
	if err := o.saveTask(ctx, task); err != nil {
		return nil, err
	}
	o.learn(ctx, task)
	return task, nil
}

// plan asks the provider for a step list and decodes it through the repair
// pipeline, retrying once with a stricter instruction before giving up.
func (o *Orchestrator) plan(ctx context.Context, task *store.Task) ([]store.Step, error) {
	memories, err := o.store.SearchMemories(ctx, task.UserID, task.Goal, store.MemoryQuery{Limit: memoryBound})
	if err != nil {
		log.Printf("Warning: memory lookup failed: %v", err)
	}

	planned, err := o.requestPlan(ctx, task, buildPlanPrompt(task, o.registry, memories, o.cfg.MaxPlanSteps, false))
	if err != nil {
		if _, ok := err.(*ParseError); !ok {
			return nil, err
		}
		planned, err = o.requestPlan(ctx, task, buildPlanPrompt(task, o.registry, memories, o.cfg.MaxPlanSteps, true))
		if err != nil {
			if _, ok := err.(*ParseError); ok {
				return nil, &PlanningError{Err: err}
			}
			return nil, err
		}
	}

	if len(planned) > o.cfg.MaxPlanSteps {
		planned = planned[:o.cfg.MaxPlanSteps]
	}

	steps := make([]store.Step, len(planned))
	for i, p := range planned {
		steps[i] = store.Step{
			ID:     uuid.NewString(),
			Index:  i + 1,
			Action: p.Action,
			Tool:   p.Tool,
			Args:   p.Args,
			Status: store.StepPending,
		}
	}
	return steps, nil
}

func (o *Orchestrator) requestPlan(ctx context.Context, task *store.Task, msgs []string) ([]PlannedStep, error) {
	raw, err := o.chatProvider(ctx, task, "plan", msgs, llm.Options{JSONMode: true, Temperature: 0.2})
	if err != nil {
		return nil, err
	}
	return decodeSteps(raw)
}

// executeLoop runs steps in order. A step's permanent failure does not abort
// the task: once retry and replan budgets are spent, execution moves on and
// the failure stays visible in the step record and observations.
func (o *Orchestrator) executeLoop(ctx context.Context, task *store.Task, deadline time.Time) error {
	for task.CurrentStepIndex < len(task.Steps) {
		// Deadline is checked between steps only; an in-flight call is
		// allowed to finish past it.
		if o.now().After(deadline) {
			return &TimeoutError{Deadline: o.cfg.TaskDeadline()}
		}

		step := &task.Steps[task.CurrentStepIndex]
		if step.Status == store.StepSuccess || step.Status == store.StepSkipped {
			task.CurrentStepIndex++
			continue
		}

		o.runStep(ctx, task, step)

		if step.Status == store.StepFailed && task.ReplanCount < o.cfg.MaxReplans {
			if err := o.replan(ctx, task, step); err != nil {
				log.Printf("Warning: replan for task %s failed, continuing: %v", task.ID, err)
			}
		}

		task.CurrentStepIndex++
		if err := o.saveTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, task *store.Task, step *store.Step) {
	step.Status = store.StepRunning
	step.StartedAt = o.now()
	o.logger.LogStep(task.ID, step.Index, step.Action, string(step.Status))
	if err := o.saveTask(ctx, task); err != nil {
		log.Printf("Warning: failed to persist step start: %v", err)
	}

	if step.Tool == "" || step.Tool == thinkTool {
		o.runThinkStep(ctx, task, step)
	} else {
		o.runToolStep(ctx, task, step)
	}

	step.CompletedAt = o.now()
	o.logger.LogStep(task.ID, step.Index, step.Action, string(step.Status))
	if err := o.saveTask(ctx, task); err != nil {
		log.Printf("Warning: failed to persist step result: %v", err)
	}
}

// runToolStep executes through the registry with retry and exponential
// backoff before declaring the step failed.
func (o *Orchestrator) runToolStep(ctx context.Context, task *store.Task, step *store.Step) {
	args := o.resolveArgs(task, step.Args)
	for {
		o.logger.LogToolCall(task.ID, step.Tool, args)
		res := o.registry.Execute(ctx, step.Tool, args)
		o.logger.LogToolResult(task.ID, step.Tool, res.Success, truncate(res.Data, 500))

		if res.Success {
			step.Status = store.StepSuccess
			step.Output = res.Data
			step.Error = ""
			o.observe(task, step.Index, store.ObsResult, truncate(res.Data, outputBound))
			return
		}

		step.Retries++
		step.Error = res.Error
		if step.Retries > o.cfg.MaxRetries {
			step.Status = store.StepFailed
			o.observe(task, step.Index, store.ObsError, res.Error)
			return
		}
		o.sleep(o.retryBase << (step.Retries - 1))
	}
}

// runThinkStep resolves a pure reasoning step with a direct provider call.
func (o *Orchestrator) runThinkStep(ctx context.Context, task *store.Task, step *store.Step) {
	content, err := o.chatProvider(ctx, task, thinkTool, buildThinkPrompt(task, step), llm.Options{})
	if err != nil {
		step.Status = store.StepFailed
		step.Error = err.Error()
		o.observe(task, step.Index, store.ObsError, err.Error())
		return
	}
	step.Status = store.StepSuccess
	step.Output = content
	o.observe(task, step.Index, store.ObsInfo, truncate(content, outputBound))
}

// replan asks the provider for replacement steps and splices them in after
// the failed step, replacing everything that had not run yet. Indices keep
// increasing across plan versions.
func (o *Orchestrator) replan(ctx context.Context, task *store.Task, failed *store.Step) error {
	task.Status = store.TaskReplanning
	observability.SetStatus(observability.PhaseReplanning, task.Goal)
	if err := o.saveTask(ctx, task); err != nil {
		return err
	}
	defer func() {
		task.Status = store.TaskExecuting
		observability.SetStatus(observability.PhaseExecuting, task.Goal)
		if err := o.saveTask(ctx, task); err != nil {
			log.Printf("Warning: failed to persist replan transition: %v", err)
		}
	}()

	raw, err := o.chatProvider(ctx, task, "replan", buildReplanPrompt(task, o.registry, failed, o.cfg.MaxPlanSteps), llm.Options{JSONMode: true, Temperature: 0.2})
	if err != nil {
		return err
	}
	planned, err := decodeSteps(raw)
	if err != nil {
		return err
	}
	if len(planned) > o.cfg.MaxPlanSteps {
		planned = planned[:o.cfg.MaxPlanSteps]
	}

	task.ReplanCount++
	kept := task.Steps[:task.CurrentStepIndex+1]
	next := kept[len(kept)-1].Index + 1
	for i, p := range planned {
		kept = append(kept, store.Step{
			ID:     uuid.NewString(),
			Index:  next + i,
			Action: p.Action,
			Tool:   p.Tool,
			Args:   p.Args,
			Status: store.StepPending,
		})
	}
	task.Steps = kept
	o.logger.LogPlan(task.ID, task.UserID, len(planned), true)
	return nil
}

// synthesize issues the final provider call combining all successful step
// outputs into one answer.
func (o *Orchestrator) synthesize(ctx context.Context, task *store.Task) error {
	content, err := o.chatProvider(ctx, task, "synthesize", buildSynthesisPrompt(task), llm.Options{})
	if err != nil {
		return err
	}
	task.Result = content
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, task *store.Task, cause error) {
	task.Status = store.TaskFailed
	task.Error = cause.Error()
	task.CompletedAt = o.now()
	if err := o.saveTask(ctx, task); err != nil {
		log.Printf("Warning: failed to persist failed task %s: %v", task.ID, err)
	}
	o.learn(ctx, task)
}

// chatProvider is the single funnel for model calls: it accounts tokens on
// the task and logs the exchange.
func (o *Orchestrator) chatProvider(ctx context.Context, task *store.Task, purpose string, msgs []string, opts llm.Options) (string, error) {
	messages := []llm.Message{llm.System(msgs[0]), llm.User(msgs[1])}
	resp, err := o.provider.Chat(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	task.TokensUsed += resp.InputTokens + resp.OutputTokens
	o.logger.LogCost(task.ID, resp.InputTokens, resp.OutputTokens, resp.Model)
	o.logger.LogLLM(task.ID, purpose, truncate(resp.Content, 2000))
	return resp.Content, nil
}

func (o *Orchestrator) observe(task *store.Task, stepIndex int, obsType, content string) {
	task.Observations = append(task.Observations, store.Observation{
		StepIndex: stepIndex,
		Type:      obsType,
		Content:   content,
		Timestamp: o.now(),
	})
}

func (o *Orchestrator) saveTask(ctx context.Context, task *store.Task) error {
	return o.store.SaveTask(ctx, task)
}

var stepRefRe = regexp.MustCompile(`\{\{\s*step[_ ]?(\d+)(?:\.output)?\s*\}\}`)

// resolveArgs substitutes {{step_N}} placeholders in string arguments with a
// bounded serialization of step N's output.
func (o *Orchestrator) resolveArgs(task *store.Task, args map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}
	resolved := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			resolved[k] = o.resolvePlaceholders(task, s)
		} else {
			resolved[k] = v
		}
	}
	return resolved
}

func (o *Orchestrator) resolvePlaceholders(task *store.Task, s string) string {
	return stepRefRe.ReplaceAllStringFunc(s, func(match string) string {
		m := stepRefRe.FindStringSubmatch(match)
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return match
		}
		for i := range task.Steps {
			if task.Steps[i].Index == idx {
				return truncate(task.Steps[i].Output, outputBound)
			}
		}
		return match
	})
}

// Trace renders the user-visible step trace: status, terminal error, and
// every step with its outcome. Failures are explainable, never silent.
func Trace(task *store.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %s [%s]\n", task.ID, task.Status)
	if task.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", task.Error)
	}
	for _, s := range task.Steps {
		line := fmt.Sprintf("%d. %s", s.Index, s.Action)
		if s.Tool != "" {
			line += " (" + s.Tool + ")"
		}
		line += " [" + string(s.Status) + "]"
		switch s.Status {
		case store.StepSuccess:
			line += ": " + truncate(s.Output, 200)
		case store.StepFailed:
			line += ": " + truncate(s.Error, 200)
		}
		b.WriteString(line + "\n")
	}
	if task.Result != "" {
		fmt.Fprintf(&b, "\n%s\n", task.Result)
	}
	return b.String()
}

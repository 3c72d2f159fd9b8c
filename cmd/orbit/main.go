package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rohan/orbit/internal/agent"
	"github.com/rohan/orbit/internal/governance"
	"github.com/rohan/orbit/internal/guard"
	"github.com/rohan/orbit/internal/llm"
	"github.com/rohan/orbit/internal/observability"
	"github.com/rohan/orbit/internal/store"
	"github.com/rohan/orbit/internal/tools"
	"github.com/rohan/orbit/pkg/config"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	configPath := "config.yaml"
	if v := os.Getenv("ORBIT_CONFIG"); v != "" {
		configPath = v
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.New(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	logger := observability.NewLogger()
	gov := governance.NewDefaultPolicyEngine()

	// The browser is single-tenant and sits behind a database-backed lock.
	// The reclaim hook kills a session whose owner went away.
	var browserTool *tools.BrowserTool
	browserGuard := guard.New(st, "browser", guard.DefaultStaleAfter,
		guard.WithReclaim(func(ctx context.Context) error {
			if browserTool == nil {
				return nil
			}
			return browserTool.ForceClose(ctx)
		}))
	browserTool = tools.NewBrowserTool(browserGuard)

	// Initialize Tools
	registry := tools.NewRegistry(cfg.Agent.ToolTimeout())

	searchTool, err := tools.NewSearchTool(browserTool.Search)
	if err != nil {
		log.Printf("Warning: Failed to initialize search tool: %v", err)
	} else {
		registry.Register(searchTool)
	}
	registry.Register(browserTool)
	registry.Register(tools.NewScraperTool())
	registry.Register(tools.NewFilesystemTool(cfg.App.Workspace))
	registry.Register(tools.NewShellTool(gov, cfg.App.Workspace))
	registry.Register(tools.NewGitTool(cfg.App.Workspace))
	registry.Register(tools.NewHTTPTool())
	registry.Register(tools.NewFeedTool())
	registry.Register(tools.NewScriptTool())
	registry.Register(tools.NewCalculatorTool())
	registry.Register(tools.NewMemoryTool(st))
	registry.Register(tools.NewScheduleTool(st))

	provider, err := llm.FromConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}

	orch := agent.New(provider, registry, st, logger, cfg.Agent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background loops run under the supervisor, which trips a per-loop
	// circuit breaker when one keeps failing.
	sup := agent.NewSupervisor()
	sup.Register("heartbeat", 30*time.Second, 5, func(ctx context.Context) error {
		observability.Heartbeat()
		logger.LogHeartbeat()
		return nil
	})
	sup.Register("memory-compaction", time.Hour, 3, func(ctx context.Context) error {
		pruned, err := st.PruneMemories(ctx, time.Now().AddDate(0, 0, -30), 0.4)
		if err != nil {
			return err
		}
		if pruned > 0 {
			log.Printf("Compacted %d stale memories", pruned)
		}
		return nil
	})
	sup.Register("browser-lock-audit", time.Minute, 3, func(ctx context.Context) error {
		// A skipped cycle here is normal; the check only logs availability
		// for operators watching a stuck session.
		if !browserGuard.CheckForPeriodicCaller(ctx, "lock-audit") {
			log.Println("browser session is held by an active task")
		}
		return nil
	})
	if err := sup.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer sup.Stop()

	// Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	// One-shot mode: a goal on the command line runs a single task.
	if len(os.Args) > 1 {
		goal := strings.Join(os.Args[1:], " ")
		runOnce(ctx, orch, browserTool, goal)
		observability.CleanupTerminal()
		return
	}

	go replLoop(ctx, orch, stop)

	<-ctx.Done()

	// Guaranteed cleanup: the browser session and its lock never outlive
	// the process on a clean shutdown.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := browserTool.ForceClose(shutdownCtx); err != nil {
		log.Printf("Warning: browser cleanup failed: %v", err)
	}

	observability.CleanupTerminal()
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] CORE DE-INITIALIZED. GOODBYE.\033[0m")
}

func runOnce(ctx context.Context, orch *agent.Orchestrator, browser *tools.BrowserTool, goal string) {
	task, err := orch.SubmitTask(ctx, goal, "", "cli")
	if err != nil {
		log.Printf("Task failed: %v", err)
	}
	if task != nil {
		fmt.Println(agent.Trace(task))
	}
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := browser.ForceClose(cleanupCtx); err != nil {
		log.Printf("Warning: browser cleanup failed: %v", err)
	}
}

// replLoop reads messages from stdin until EOF or shutdown. Task-like
// messages run the full orchestration loop; anything else is a single
// conversational turn.
func replLoop(ctx context.Context, orch *agent.Orchestrator, stop context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	fmt.Println("Type a goal, or 'exit' to quit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			stop()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			stop()
			return
		}
		reply, err := orch.Chat(ctx, line, "cli")
		if err != nil {
			log.Printf("Error: %v", err)
			continue
		}
		fmt.Println(reply)
	}
}

// ttcore runs a single recursive-agent execution against a configured
// LLM backend, streaming journal events to stdout as it goes. Grounded
// on the teacher's cmd/tarsy/main.go: flag/env-driven config directory,
// .env loading via godotenv, then component construction — replacing
// the Gin/Postgres service wiring (this module has no UI, no database;
// spec §1 Non-goals) with the engine's own component graph.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/recursiveagent/ttcore/pkg/assembler"
	"github.com/recursiveagent/ttcore/pkg/config"
	"github.com/recursiveagent/ttcore/pkg/engine"
	"github.com/recursiveagent/ttcore/pkg/hooks"
	"github.com/recursiveagent/ttcore/pkg/journal"
	"github.com/recursiveagent/ttcore/pkg/llm"
	"github.com/recursiveagent/ttcore/pkg/masking"
	"github.com/recursiveagent/ttcore/pkg/memory"
	"github.com/recursiveagent/ttcore/pkg/orchestrator"
	"github.com/recursiveagent/ttcore/pkg/session"
	"github.com/recursiveagent/ttcore/pkg/tool"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	threadID := flag.String("thread-id", "", "thread ID to resume; a new one is generated when empty")
	prompt := flag.String("prompt", "", "user input; read from stdin when empty")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	input := *prompt
	if input == "" {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			input = scanner.Text()
		}
	}

	id := *threadID
	if id == "" {
		id = fmt.Sprintf("thread-%d", os.Getpid())
	}

	j, err := journal.NewFileJournal(journal.Config{
		RootDir:             cfg.JournalRootDir,
		BatchSize:           cfg.JournalBatchSize,
		FlushIntervalMillis: cfg.JournalFlushIntervalMS,
	})
	if err != nil {
		log.Fatalf("failed to open journal: %v", err)
	}

	store := memory.NewStore(nil, nil,
		memory.WithCapacities(cfg.L1Capacity, cfg.L2Capacity),
		memory.WithPromotionThreshold(cfg.L2PromotionThreshold))

	asm := assembler.NewAssembler(cfg.MaxContextTokens)
	asm.BufferRatio = cfg.TokenBufferRatio

	registry := tool.NewRegistry(tool.EchoTool{}, tool.NewMemoStore())

	maskRules, err := masking.DefaultRuleSet()
	if err != nil {
		log.Fatalf("failed to build masking rules: %v", err)
	}
	hookMgr := hooks.NewManager(masking.NewHook(maskRules))

	orch := orchestrator.New(registry, hookMgr)
	orch.MaxParallelReads = cfg.MaxParallelReadTools
	orch.ToolTimeout = cfg.ToolTimeout

	provider, err := llm.NewGRPCProvider(cfg.LLM.Address)
	if err != nil {
		log.Fatalf("failed to dial LLM backend at %s: %v", cfg.LLM.Address, err)
	}

	eng := engine.New(j, store, asm, orch, hookMgr, provider, registry)
	eng.MaxIterations = cfg.MaxIterations
	eng.LLMTimeout = cfg.LLMTimeout
	eng.Model = cfg.LLM.Model
	eng.Monitor.DuplicateThreshold = cfg.RecursionDuplicateThreshold
	eng.Monitor.LoopWindow = cfg.RecursionLoopWindow
	eng.Monitor.ErrorRateThreshold = cfg.RecursionErrorRateThreshold
	eng.Monitor.WarningRatio = cfg.RecursionWarningRatio

	sessions := session.NewRegistry()
	runCtx := sessions.Start(context.Background(), id)
	defer sessions.Finish(id)

	// A second, independent consumer of the same event stream: tallies
	// failures for an end-of-run summary without touching the primary
	// logging loop below.
	errEvents, unsubscribeErrors := eng.Subscribers.Subscribe(id, 32)
	var errCount int
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		for ev := range errEvents {
			if ev.Type == journal.EventToolError || ev.Type == journal.EventError {
				errCount++
			}
		}
	}()

	events, err := eng.Execute(runCtx, input, id)
	if err != nil {
		log.Fatalf("execution failed: %v", err)
	}

	for ev := range events {
		slog.Info("event", "thread_id", id, "type", ev.Type, "content", ev.Content)
	}

	unsubscribeErrors()
	<-errDone
	slog.Info("run summary", "thread_id", id, "error_events", errCount)
}

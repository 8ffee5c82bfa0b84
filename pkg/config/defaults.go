package config

import (
	"time"

	"github.com/recursiveagent/ttcore/pkg/assembler"
	"github.com/recursiveagent/ttcore/pkg/engine"
	"github.com/recursiveagent/ttcore/pkg/journal"
	"github.com/recursiveagent/ttcore/pkg/memory"
	"github.com/recursiveagent/ttcore/pkg/orchestrator"
)

// DefaultMaxIterations and DefaultMaxContextTokens have no canonical
// owner elsewhere in the module (spec §6.6 leaves both operator-tunable
// with no stated default), so they're declared here.
const (
	DefaultMaxIterations    = 25
	DefaultMaxContextTokens = 100_000
)

// Default returns the spec §6.6 default configuration. Every constant
// below is imported from the package that owns it rather than
// re-declared here, so a change to a component's default can't silently
// drift out of sync with what this package hands out.
func Default() *Config {
	return &Config{
		MaxIterations:               DefaultMaxIterations,
		RecursionDuplicateThreshold: engine.DefaultRecursionDuplicateThreshold,
		RecursionLoopWindow:         engine.DefaultRecursionLoopWindow,
		RecursionErrorRateThreshold: engine.DefaultRecursionErrorRateThreshold,
		RecursionWarningRatio:       engine.DefaultRecursionWarningRatio,

		MaxContextTokens: DefaultMaxContextTokens,
		TokenBufferRatio: assembler.DefaultTokenBufferRatio,

		MaxParallelReadTools: orchestrator.DefaultMaxParallelReadTools,
		ToolTimeout:          orchestrator.DefaultToolTimeout,
		ToolTimeoutMS:        int(orchestrator.DefaultToolTimeout / time.Millisecond),

		LLMTimeout:   engine.DefaultLLMTimeout,
		LLMTimeoutMS: int(engine.DefaultLLMTimeout / time.Millisecond),

		JournalRootDir:         "./ttcore-journal",
		JournalBatchSize:       journal.DefaultBatchSize,
		JournalFlushIntervalMS: journal.DefaultFlushIntervalMillis,

		L1Capacity:           memory.DefaultL1Capacity,
		L2Capacity:           memory.DefaultL2Capacity,
		L2PromotionThreshold: memory.DefaultL2PromotionThreshold,

		LLM: LLMConfig{
			Address: "localhost:50051",
		},
	}
}

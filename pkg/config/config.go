// Package config loads and validates the engine's configuration (spec
// §6.6): recursion limits, context budget, tool orchestration bounds,
// journal batching, memory tier capacities, and the LLM backend to dial.
// Grounded on the teacher's pkg/config: same load→merge→validate
// pipeline (loader.go, merge.go, errors.go), the same YAML-plus-env-var
// loading idiom, re-scoped from tarsy's multi-agent/chain/MCP registries
// down to the single flat Config this engine needs.
package config

import "time"

// Config is every tunable spec §6.6 names, plus the LLM backend
// connection details the engine needs to construct a provider. Threading
// a single struct through engine/orchestrator/assembler/memory/journal
// construction mirrors the teacher's Config, which every component
// reads from rather than taking ad-hoc parameters.
type Config struct {
	// Recursion control (spec §4.5 Phase 0, pkg/engine.RecursionMonitor).
	MaxIterations                int     `yaml:"max_iterations"`
	RecursionDuplicateThreshold  int     `yaml:"recursion_duplicate_threshold"`
	RecursionLoopWindow          int     `yaml:"recursion_loop_window"`
	RecursionErrorRateThreshold  float64 `yaml:"recursion_error_rate_threshold"`
	RecursionWarningRatio        float64 `yaml:"recursion_warning_ratio"`

	// Context assembly (spec §4.2, pkg/assembler.Assembler).
	MaxContextTokens int     `yaml:"max_context_tokens"`
	TokenBufferRatio float64 `yaml:"token_buffer_ratio"`

	// Tool orchestration (spec §4.3, pkg/orchestrator.Orchestrator).
	MaxParallelReadTools int           `yaml:"max_parallel_read_tools"`
	ToolTimeout          time.Duration `yaml:"-"`
	ToolTimeoutMS        int           `yaml:"tool_timeout_ms"`

	// LLM calls (spec §4.5 Phase 2, pkg/engine.Engine).
	LLMTimeout   time.Duration `yaml:"-"`
	LLMTimeoutMS int           `yaml:"llm_timeout_ms"`

	// Journal batching (spec §6.5, pkg/journal.FileJournal).
	JournalRootDir          string `yaml:"journal_root_dir"`
	JournalBatchSize        int    `yaml:"journal_batch_size"`
	JournalFlushIntervalMS  int    `yaml:"journal_flush_interval_ms"`

	// Memory tiers (spec §3.3, pkg/memory.Store).
	L1Capacity           int     `yaml:"l1_capacity"`
	L2Capacity           int     `yaml:"l2_capacity"`
	L2PromotionThreshold float64 `yaml:"l2_promotion_threshold"`

	// LLM backend (spec §6.2's Provider interface, pkg/llm.GRPCProvider).
	LLM LLMConfig `yaml:"llm"`

	// configDir is the directory Load read from, kept for diagnostics.
	configDir string
}

// LLMConfig names the out-of-process LLM service the engine dials for
// Phase 2. Grounded on the teacher's LLMProviderConfig (pkg/config/llm.go
// before this package's rescoping) but trimmed to the one backend this
// module actually wires: a gRPC sidecar, not a multi-vendor registry.
type LLMConfig struct {
	Address string `yaml:"address"`
	Model   string `yaml:"model"`
}

// ConfigDir returns the directory Config was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

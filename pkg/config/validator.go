package config

import "fmt"

// Validate checks every spec §6.6 field for a sane range, mirroring the
// teacher's Validator (pkg/config/validator.go before this package's
// rescoping): fail-fast, one wrapped *ValidationError per bad field.
func Validate(c *Config) error {
	checks := []struct {
		field string
		ok    bool
		msg   string
	}{
		{"max_iterations", c.MaxIterations >= 0, "must be non-negative"},
		{"recursion_duplicate_threshold", c.RecursionDuplicateThreshold >= 1, "must be at least 1"},
		{"recursion_loop_window", c.RecursionLoopWindow >= 1, "must be at least 1"},
		{"recursion_error_rate_threshold", c.RecursionErrorRateThreshold > 0 && c.RecursionErrorRateThreshold <= 1, "must be in (0, 1]"},
		{"recursion_warning_ratio", c.RecursionWarningRatio > 0 && c.RecursionWarningRatio < 1, "must be in (0, 1)"},
		{"max_context_tokens", c.MaxContextTokens >= 1, "must be at least 1"},
		{"token_buffer_ratio", c.TokenBufferRatio > 0 && c.TokenBufferRatio <= 1, "must be in (0, 1]"},
		{"max_parallel_read_tools", c.MaxParallelReadTools >= 1, "must be at least 1"},
		{"tool_timeout_ms", c.ToolTimeoutMS >= 1, "must be at least 1"},
		{"llm_timeout_ms", c.LLMTimeoutMS >= 1, "must be at least 1"},
		{"journal_root_dir", c.JournalRootDir != "", "must not be empty"},
		{"journal_batch_size", c.JournalBatchSize >= 1, "must be at least 1"},
		{"journal_flush_interval_ms", c.JournalFlushIntervalMS >= 1, "must be at least 1"},
		{"l1_capacity", c.L1Capacity >= 1, "must be at least 1"},
		{"l2_capacity", c.L2Capacity >= 1, "must be at least 1"},
		{"l2_promotion_threshold", c.L2PromotionThreshold > 0 && c.L2PromotionThreshold <= 1, "must be in (0, 1]"},
		{"llm.address", c.LLM.Address != "", "must not be empty"},
	}

	for _, chk := range checks {
		if !chk.ok {
			return NewValidationError(chk.field, fmt.Errorf("%w: %s", ErrInvalidValue, chk.msg))
		}
	}
	return nil
}

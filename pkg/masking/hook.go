package masking

import (
	"context"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/hooks"
)

// Hook applies a RuleSet to every tool result's content (spec §4.4 hook
// 7: AfterToolExecution). Grounded on the teacher's MaskingService
// (pkg/masking/service.go): same fail-closed contract on masking
// errors, rehomed from "a service method called explicitly by MCP
// client code" onto the hooks.Hook interface itself, since this module
// routes every tool result through hook 7 already.
type Hook struct {
	hooks.NoopHook
	Rules *RuleSet
}

// NewHook builds a masking Hook from a compiled rule set.
func NewHook(rules *RuleSet) *Hook {
	return &Hook{Rules: rules}
}

// AfterToolExecution masks result.Content in place. Masking never fails
// by itself (RuleSet.Apply has no error path); a panic recovered here
// would indicate a masker bug, in which case failing closed by
// redacting the whole result is safer than leaking it unmasked.
func (h *Hook) AfterToolExecution(_ context.Context, _ frame.ExecutionFrame, result frame.ToolResult) (frame.ToolResult, error) {
	defer func() {
		if r := recover(); r != nil {
			result.Content = "[REDACTED: masking failure — tool result could not be safely processed]"
		}
	}()
	result.Content = h.Rules.Apply(result.Content)
	return result, nil
}

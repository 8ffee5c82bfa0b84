// Package hooks implements the lifecycle hook manager (C4): pluggable
// interception at 9 well-defined points, with chaining and two
// control-flow exceptions (InterruptError, SkipToolError). Grounded on
// the strategy-interface pattern of the teacher's agent.Controller
// (pkg/agent/base_agent.go) and the ordered-registry pattern of
// pkg/config/sub_agent_registry.go — generalized here from "one
// implementation chosen at construction" to "an ordered chain of
// optional callbacks, each seeing the prior one's output" (spec §4.4).
package hooks

import (
	"context"
	"fmt"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/tool"
)

// InterruptError is raised from hook 6 to pause execution for a human
// decision (spec §4.4). The control loop checkpoints and returns; a
// caller later invokes Engine.Resume.
type InterruptError struct {
	Reason            string
	RequiresUserInput bool
}

func (e *InterruptError) Error() string {
	return fmt.Sprintf("hooks: interrupted: %s", e.Reason)
}

// SkipToolError is raised from hook 6 to synthesize a skipped,
// non-error tool result instead of invoking the tool (spec §4.4).
type SkipToolError struct {
	Reason string
}

func (e *SkipToolError) Error() string {
	return fmt.Sprintf("hooks: skip: %s", e.Reason)
}

// Hook is any object implementing a subset of the 9 callbacks of spec
// §4.4. NoopHook gives every method a no-op default, so concrete hooks
// only override what they need (the Go rendering of "all nine callbacks
// optional" from spec §9's duck-typed-protocol replacement).
type Hook interface {
	BeforeIterationStart(ctx context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error)
	BeforeContextAssembly(ctx context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error)
	AfterContextAssembly(ctx context.Context, f frame.ExecutionFrame, snapshot string, metadata frame.ContextMetadata) (string, frame.ContextMetadata, error)
	BeforeLLMCall(ctx context.Context, f frame.ExecutionFrame, messages []frame.Message) ([]frame.Message, error)
	AfterLLMResponse(ctx context.Context, f frame.ExecutionFrame, text string, calls []frame.ToolCall) (string, []frame.ToolCall, error)
	BeforeToolExecution(ctx context.Context, f frame.ExecutionFrame, call tool.Call) (tool.Call, error)
	AfterToolExecution(ctx context.Context, f frame.ExecutionFrame, result frame.ToolResult) (frame.ToolResult, error)
	BeforeRecursion(ctx context.Context, f frame.ExecutionFrame, next frame.ExecutionFrame) (frame.ExecutionFrame, error)
	AfterIterationEnd(ctx context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error)
}

// NoopHook implements Hook with every callback a no-op (returns its input
// unchanged, nil error). Embed it in a concrete hook to override only the
// callbacks that hook cares about.
type NoopHook struct{}

func (NoopHook) BeforeIterationStart(_ context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error) {
	return f, nil
}
func (NoopHook) BeforeContextAssembly(_ context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error) {
	return f, nil
}
func (NoopHook) AfterContextAssembly(_ context.Context, _ frame.ExecutionFrame, snapshot string, metadata frame.ContextMetadata) (string, frame.ContextMetadata, error) {
	return snapshot, metadata, nil
}
func (NoopHook) BeforeLLMCall(_ context.Context, _ frame.ExecutionFrame, messages []frame.Message) ([]frame.Message, error) {
	return messages, nil
}
func (NoopHook) AfterLLMResponse(_ context.Context, _ frame.ExecutionFrame, text string, calls []frame.ToolCall) (string, []frame.ToolCall, error) {
	return text, calls, nil
}
func (NoopHook) BeforeToolExecution(_ context.Context, _ frame.ExecutionFrame, call tool.Call) (tool.Call, error) {
	return call, nil
}
func (NoopHook) AfterToolExecution(_ context.Context, _ frame.ExecutionFrame, result frame.ToolResult) (frame.ToolResult, error) {
	return result, nil
}
func (NoopHook) BeforeRecursion(_ context.Context, _ frame.ExecutionFrame, next frame.ExecutionFrame) (frame.ExecutionFrame, error) {
	return next, nil
}
func (NoopHook) AfterIterationEnd(_ context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error) {
	return f, nil
}

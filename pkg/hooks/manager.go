package hooks

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/tool"
)

// Manager chains hooks in registration order at each of the 9 hook
// points; each hook sees the output of the previous one (spec §4.4). A
// hook that raises any error other than InterruptError/SkipToolError (at
// hook 6) is logged and bypassed for the remainder of the run — it does
// not abort execution.
type Manager struct {
	mu       sync.Mutex
	hooks    []Hook
	bypassed []bool
}

// NewManager builds a Manager over the given hooks, invoked in the order
// supplied.
func NewManager(hooks ...Hook) *Manager {
	return &Manager{hooks: hooks, bypassed: make([]bool, len(hooks))}
}

func (m *Manager) bypass(i int, point string, err error) {
	m.mu.Lock()
	m.bypassed[i] = true
	m.mu.Unlock()
	slog.Warn("hooks: hook raised an error and is bypassed for the remainder of the run",
		"hook_point", point, "hook_index", i, "error", err)
}

func (m *Manager) isBypassed(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bypassed[i]
}

func (m *Manager) BeforeIterationStart(ctx context.Context, f frame.ExecutionFrame) frame.ExecutionFrame {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		next, err := h.BeforeIterationStart(ctx, f)
		if err != nil {
			m.bypass(i, "before_iteration_start", err)
			continue
		}
		f = next
	}
	return f
}

func (m *Manager) BeforeContextAssembly(ctx context.Context, f frame.ExecutionFrame) frame.ExecutionFrame {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		next, err := h.BeforeContextAssembly(ctx, f)
		if err != nil {
			m.bypass(i, "before_context_assembly", err)
			continue
		}
		f = next
	}
	return f
}

func (m *Manager) AfterContextAssembly(ctx context.Context, f frame.ExecutionFrame, snapshot string, metadata frame.ContextMetadata) (string, frame.ContextMetadata) {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		s, md, err := h.AfterContextAssembly(ctx, f, snapshot, metadata)
		if err != nil {
			m.bypass(i, "after_context_assembly", err)
			continue
		}
		snapshot, metadata = s, md
	}
	return snapshot, metadata
}

func (m *Manager) BeforeLLMCall(ctx context.Context, f frame.ExecutionFrame, messages []frame.Message) []frame.Message {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		next, err := h.BeforeLLMCall(ctx, f, messages)
		if err != nil {
			m.bypass(i, "before_llm_call", err)
			continue
		}
		messages = next
	}
	return messages
}

func (m *Manager) AfterLLMResponse(ctx context.Context, f frame.ExecutionFrame, text string, calls []frame.ToolCall) (string, []frame.ToolCall) {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		t, c, err := h.AfterLLMResponse(ctx, f, text, calls)
		if err != nil {
			m.bypass(i, "after_llm_response", err)
			continue
		}
		text, calls = t, c
	}
	return text, calls
}

// BeforeToolExecution is the one hook point that may alter control flow:
// a hook raising InterruptError or SkipToolError short-circuits the
// chain and returns that error to the caller (the tool orchestrator).
// Any other error is logged and that hook bypassed, same as every other
// hook point.
func (m *Manager) BeforeToolExecution(ctx context.Context, f frame.ExecutionFrame, call tool.Call) (tool.Call, error) {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		next, err := h.BeforeToolExecution(ctx, f, call)
		if err == nil {
			call = next
			continue
		}

		var interrupt *InterruptError
		var skip *SkipToolError
		if errors.As(err, &interrupt) || errors.As(err, &skip) {
			return call, err
		}
		m.bypass(i, "before_tool_execution", err)
	}
	return call, nil
}

func (m *Manager) AfterToolExecution(ctx context.Context, f frame.ExecutionFrame, result frame.ToolResult) frame.ToolResult {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		next, err := h.AfterToolExecution(ctx, f, result)
		if err != nil {
			m.bypass(i, "after_tool_execution", err)
			continue
		}
		result = next
	}
	return result
}

func (m *Manager) BeforeRecursion(ctx context.Context, f frame.ExecutionFrame, next frame.ExecutionFrame) frame.ExecutionFrame {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		candidate, err := h.BeforeRecursion(ctx, f, next)
		if err != nil {
			m.bypass(i, "before_recursion", err)
			continue
		}
		next = candidate
	}
	return next
}

func (m *Manager) AfterIterationEnd(ctx context.Context, f frame.ExecutionFrame) frame.ExecutionFrame {
	for i, h := range m.hooks {
		if m.isBypassed(i) {
			continue
		}
		next, err := h.AfterIterationEnd(ctx, f)
		if err != nil {
			m.bypass(i, "after_iteration_end", err)
			continue
		}
		f = next
	}
	return f
}

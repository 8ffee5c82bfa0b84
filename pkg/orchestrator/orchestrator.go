// Package orchestrator implements the tool orchestrator (C3): it
// classifies a batch of tool calls into read-only and side-effecting
// partitions, runs the read-only partition concurrently under a bounded
// semaphore, then runs the side-effecting partition sequentially once
// every read has completed (spec §4.3). Concurrency shape is grounded on
// the teacher's pkg/agent/orchestrator.SubAgentRunner: a reservation
// taken before dispatch, a goroutine per unit of work, results delivered
// back through a channel rather than shared mutable state.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/hooks"
	"github.com/recursiveagent/ttcore/pkg/journal"
	"github.com/recursiveagent/ttcore/pkg/tool"
)

// DefaultMaxParallelReadTools is the default bound on concurrently
// executing read-only tools (spec §6.6: max_parallel_read_tools).
const DefaultMaxParallelReadTools = 5

// DefaultToolTimeout is the default per-tool execution deadline (spec
// §6.6: tool_timeout_ms).
const DefaultToolTimeout = 30 * time.Second

// HookPoint is the subset of hooks.Manager the orchestrator depends on.
// Declared narrowly here (rather than importing *hooks.Manager directly)
// so tests can substitute a stub without constructing a full Manager.
type HookPoint interface {
	BeforeToolExecution(ctx context.Context, f frame.ExecutionFrame, call tool.Call) (tool.Call, error)
	AfterToolExecution(ctx context.Context, f frame.ExecutionFrame, result frame.ToolResult) frame.ToolResult
}

// Orchestrator classifies and executes a batch of tool calls against a
// Registry (spec §4.3).
type Orchestrator struct {
	Registry          *tool.Registry
	Hooks             HookPoint
	MaxParallelReads  int
	ToolTimeout       time.Duration
}

// New builds an Orchestrator with the given registry and hook manager,
// applying spec-default concurrency and timeout bounds.
func New(registry *tool.Registry, hookPoint HookPoint) *Orchestrator {
	return &Orchestrator{
		Registry:         registry,
		Hooks:            hookPoint,
		MaxParallelReads: DefaultMaxParallelReadTools,
		ToolTimeout:      DefaultToolTimeout,
	}
}

// BatchOutcome is the result of executing one batch of tool calls.
type BatchOutcome struct {
	Results           []frame.ToolResult
	Interrupted       bool
	InterruptReason   string
	RequiresUserInput bool
}

// ExecuteBatch runs calls against the registry: read-only calls run
// concurrently (bounded by MaxParallelReads), then side-effecting calls
// run sequentially once every read-only call has completed (the barrier
// spec §4.3 requires). confirmed carries the call IDs a human has
// already approved for side-effecting tools whose Definition requires
// confirmation (spec §8 scenario 5: HITL interrupt then resume) — a
// requiring-confirmation call whose ID is absent from confirmed
// interrupts the batch instead of running.
//
// emit, if non-nil, receives the per-call and per-batch journal events
// (spec §6.3: tool_execution_start, tool_progress, tool_result/
// tool_error, tool_calls_complete) in the order they occur.
func (o *Orchestrator) ExecuteBatch(
	ctx context.Context,
	threadID, frameID string,
	depth int,
	calls []tool.Call,
	confirmed map[string]bool,
	emit func(journal.Event),
) (BatchOutcome, error) {
	if emit == nil {
		emit = func(journal.Event) {}
	}

	reads, writes := o.classify(calls)

	results := make(map[string]frame.ToolResult, len(calls))

	readOutcome := o.runConcurrent(ctx, threadID, frameID, depth, reads, confirmed, emit)
	for id, r := range readOutcome.results {
		results[id] = r
	}
	if readOutcome.interrupted {
		return o.finish(calls, results, readOutcome.reason, readOutcome.requiresUserInput, emit, threadID, frameID, depth), nil
	}

	for _, call := range writes {
		outcome := o.runOne(ctx, threadID, frameID, depth, call, confirmed, emit)
		if outcome.interrupted {
			results[call.ID] = outcome.result
			return o.finish(calls, results, outcome.reason, outcome.requiresUserInput, emit, threadID, frameID, depth), nil
		}
		results[call.ID] = outcome.result
	}

	ordered := make([]frame.ToolResult, 0, len(calls))
	for _, c := range calls {
		ordered = append(ordered, results[c.ID])
	}
	emit(journal.New(threadID, journal.EventToolCallsComplete, frameID, depth, "", map[string]any{"count": len(calls)}))
	return BatchOutcome{Results: ordered}, nil
}

func (o *Orchestrator) finish(
	calls []tool.Call,
	results map[string]frame.ToolResult,
	reason string,
	requiresUserInput bool,
	emit func(journal.Event),
	threadID, frameID string,
	depth int,
) BatchOutcome {
	ordered := make([]frame.ToolResult, 0, len(results))
	for _, c := range calls {
		if r, ok := results[c.ID]; ok {
			ordered = append(ordered, r)
		}
	}
	emit(journal.New(threadID, journal.EventExecutionInterrupted, frameID, depth, reason, map[string]any{
		"requires_user_input": requiresUserInput,
	}))
	return BatchOutcome{
		Results:           ordered,
		Interrupted:       true,
		InterruptReason:   reason,
		RequiresUserInput: requiresUserInput,
	}
}

// classify partitions calls into read-only and side-effecting groups,
// preserving relative order within each group. Unknown tool names
// default to side-effecting (spec §3.5's fail-safe rule, enforced by
// tool.Registry.IsReadOnly).
func (o *Orchestrator) classify(calls []tool.Call) (reads, writes []tool.Call) {
	for _, c := range calls {
		if o.Registry.IsReadOnly(c.Name) {
			reads = append(reads, c)
		} else {
			writes = append(writes, c)
		}
	}
	return reads, writes
}

type batchOutcome struct {
	results     map[string]frame.ToolResult
	interrupted bool
	reason      string
	requiresUserInput bool
}

type singleOutcome struct {
	result            frame.ToolResult
	interrupted       bool
	reason            string
	requiresUserInput bool
}

// runConcurrent executes reads under a semaphore of size MaxParallelReads.
// The first interrupt observed (in completion order) wins; in-flight
// siblings are allowed to finish but their results are still recorded.
func (o *Orchestrator) runConcurrent(
	ctx context.Context,
	threadID, frameID string,
	depth int,
	calls []tool.Call,
	confirmed map[string]bool,
	emit func(journal.Event),
) batchOutcome {
	out := batchOutcome{results: make(map[string]frame.ToolResult, len(calls))}
	if len(calls) == 0 {
		return out
	}

	limit := o.MaxParallelReads
	if limit <= 0 {
		limit = DefaultMaxParallelReadTools
	}
	sem := make(chan struct{}, limit)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, call := range calls {
		call := call
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			single := o.runOne(ctx, threadID, frameID, depth, call, confirmed, emit)

			mu.Lock()
			defer mu.Unlock()
			out.results[call.ID] = single.result
			if single.interrupted && !out.interrupted {
				out.interrupted = true
				out.reason = single.reason
				out.requiresUserInput = single.requiresUserInput
			}
		}()
	}
	wg.Wait()
	return out
}

// runOne executes a single tool call: hook 6, confirmation gating,
// timeout enforcement, invocation, hook 7, and event emission.
func (o *Orchestrator) runOne(
	ctx context.Context,
	threadID, frameID string,
	depth int,
	call tool.Call,
	confirmed map[string]bool,
	emit func(journal.Event),
) singleOutcome {
	f := frame.ExecutionFrame{FrameID: frameID, Depth: depth}

	if def, ok := o.Registry.Lookup(call.Name); ok && def.Definition().RequiresConfirmation && !confirmed[call.ID] {
		reason := "tool " + call.Name + " requires confirmation"
		return singleOutcome{
			result:            frame.ToolResult{ToolCallID: call.ID, IsError: true, ErrorKind: "interrupted", Content: reason},
			interrupted:       true,
			reason:            reason,
			requiresUserInput: true,
		}
	}

	emit(journal.New(threadID, journal.EventToolExecutionStart, frameID, depth, call.Name, map[string]any{"call_id": call.ID}))

	gated, err := o.Hooks.BeforeToolExecution(ctx, f, call)
	if err != nil {
		if interrupt, ok := asInterrupt(err); ok {
			return singleOutcome{
				result:            frame.ToolResult{ToolCallID: call.ID, IsError: true, ErrorKind: "interrupted", Content: interrupt.Reason},
				interrupted:       true,
				reason:            interrupt.Reason,
				requiresUserInput: interrupt.RequiresUserInput,
			}
		}
		if skip, ok := asSkip(err); ok {
			result := frame.ToolResult{ToolCallID: call.ID, Content: "skipped: " + skip.Reason}
			result = o.Hooks.AfterToolExecution(ctx, f, result)
			emit(journal.New(threadID, journal.EventToolResult, frameID, depth, result.Content, map[string]any{"tool_call_id": call.ID, "skipped": true}))
			return singleOutcome{result: result}
		}
	}
	call = gated

	t, ok := o.Registry.Lookup(call.Name)
	if !ok {
		result := frame.ToolResult{ToolCallID: call.ID, IsError: true, ErrorKind: "unknown_tool", Content: "unknown tool: " + call.Name}
		result = o.Hooks.AfterToolExecution(ctx, f, result)
		emit(journal.New(threadID, journal.EventToolError, frameID, depth, result.Content, map[string]any{"tool_call_id": call.ID, "error_kind": result.ErrorKind}))
		return singleOutcome{result: result}
	}

	timeout := o.ToolTimeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	invoked, invokeErr := t.Invoke(callCtx, call.Arguments)
	elapsed := time.Since(start).Milliseconds()

	var result frame.ToolResult
	switch {
	case invokeErr != nil && callCtx.Err() == context.DeadlineExceeded:
		result = frame.ToolResult{ToolCallID: call.ID, IsError: true, ErrorKind: "tool_timeout", Content: invokeErr.Error(), ExecutionTimeMS: elapsed}
	case invokeErr != nil:
		result = frame.ToolResult{ToolCallID: call.ID, IsError: true, ErrorKind: "tool_execution", Content: invokeErr.Error(), ExecutionTimeMS: elapsed}
	default:
		result = frame.ToolResult{
			ToolCallID:      call.ID,
			Content:         invoked.Content,
			IsError:         invoked.IsError,
			ErrorKind:       invoked.ErrorKind,
			ExecutionTimeMS: elapsed,
		}
	}

	result = o.Hooks.AfterToolExecution(ctx, f, result)

	kind := journal.EventToolResult
	if result.IsError {
		kind = journal.EventToolError
	}
	emit(journal.New(threadID, kind, frameID, depth, result.Content, map[string]any{
		"tool_call_id":      call.ID,
		"error_kind":        result.ErrorKind,
		"execution_time_ms": result.ExecutionTimeMS,
	}))

	return singleOutcome{result: result}
}

func asInterrupt(err error) (*hooks.InterruptError, bool) {
	i, ok := err.(*hooks.InterruptError)
	return i, ok
}

func asSkip(err error) (*hooks.SkipToolError, bool) {
	s, ok := err.(*hooks.SkipToolError)
	return s, ok
}

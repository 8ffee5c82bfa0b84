// Package engine implements the recursive control loop `tt` (C5): the
// only execution entry point, wiring together the journal (C1), memory
// and context assembler (C2), tool orchestrator (C3), and hook manager
// (C4) around an LLM provider. Grounded on the teacher's
// controller.IteratingController.Run (pkg/agent/controller/iterating.go):
// same five-part shape (build messages, call LLM, branch on tool calls,
// execute tools, loop), generalized from a bounded `for` loop with a
// force-conclusion tail into the spec's explicit phase machine with its
// own termination predicates. True recursion is replaced by a flat loop
// per spec §9: depth is a counter, not a call stack — except for hook 9,
// whose unwind-order semantics are reproduced by firing it, at
// termination, over every frame visited so far in LIFO order.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/recursiveagent/ttcore/pkg/assembler"
	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/hooks"
	"github.com/recursiveagent/ttcore/pkg/journal"
	"github.com/recursiveagent/ttcore/pkg/llm"
	"github.com/recursiveagent/ttcore/pkg/memory"
	"github.com/recursiveagent/ttcore/pkg/orchestrator"
	"github.com/recursiveagent/ttcore/pkg/tool"
)

// Journal is the subset of *journal.FileJournal the engine depends on,
// declared narrowly so tests can substitute an in-memory fake.
type Journal interface {
	Append(ctx context.Context, threadID string, event journal.Event) error
	Replay(threadID string, kinds []journal.EventKind) ([]journal.Event, error)
}

// Default LLM call deadline (spec §6.6: llm_timeout_ms).
const DefaultLLMTimeout = 120 * time.Second

const (
	llmRetryAttempts  = 3
	llmRetryBaseDelay = 1 * time.Second
)

// progressHintDepth is the depth beyond which Phase 5 appends a progress
// hint system message (spec §4.5: "if depth > 3").
const progressHintDepth = 3

// Engine wires every component into the phase machine of spec §4.5.
type Engine struct {
	Journal      Journal
	Memory       *memory.Store
	Assembler    *assembler.Assembler
	Orchestrator *orchestrator.Orchestrator
	Hooks        *hooks.Manager
	LLM          llm.Provider
	Tools        *tool.Registry
	Monitor      *RecursionMonitor
	Handlers     *HandlerChain

	// Subscribers fans every emitted event out to any in-process listener
	// beyond the channel Execute/Resume themselves return (spec §2: the
	// journal, hook manager, and stream subscribers all see the same
	// events). Always non-nil after New.
	Subscribers *journal.Subscribers

	SystemPrompt  string
	Model         string
	MaxIterations int
	LLMTimeout    time.Duration
}

// New builds an Engine with spec defaults for anything left zero.
func New(j Journal, store *memory.Store, asm *assembler.Assembler, orch *orchestrator.Orchestrator, hookMgr *hooks.Manager, provider llm.Provider, tools *tool.Registry) *Engine {
	return &Engine{
		Journal:      j,
		Memory:       store,
		Assembler:    asm,
		Orchestrator: orch,
		Hooks:        hookMgr,
		LLM:          provider,
		Tools:        tools,
		Monitor:      NewRecursionMonitor(),
		Handlers:     NewHandlerChain(),
		Subscribers:  journal.NewSubscribers(),
		LLMTimeout:   DefaultLLMTimeout,
	}
}

// Execute is the public entry point of spec §6.2: it builds a fresh
// thread and streams its events.
func (e *Engine) Execute(ctx context.Context, userInput, threadID string) (<-chan journal.Event, error) {
	return e.ExecuteWithConfirmation(ctx, userInput, threadID, nil)
}

// ExecuteWithConfirmation is Execute, plus a set of tool-call IDs a
// human has pre-approved (supports starting a run that resumes HITL
// confirmations from a prior interrupted attempt with the same ID
// space — see ResumeWithConfirmation for the common case).
func (e *Engine) ExecuteWithConfirmation(ctx context.Context, userInput, threadID string, confirmed map[string]bool) (<-chan journal.Event, error) {
	maxIter := e.MaxIterations
	initial := frame.Initial(userInput, maxIter)
	return e.run(ctx, threadID, initial, confirmed, 0), nil
}

// Resume loads the latest journal for threadID, reconstructs a frame,
// and re-enters the loop from there (spec §6.2, crash/HITL resume).
func (e *Engine) Resume(ctx context.Context, threadID string) (<-chan journal.Event, error) {
	return e.ResumeWithConfirmation(ctx, threadID, nil)
}

// ResumeWithConfirmation is Resume with a set of newly-approved tool
// call IDs, the path HITL approval takes (spec §8 scenario 5).
func (e *Engine) ResumeWithConfirmation(ctx context.Context, threadID string, confirmed map[string]bool) (<-chan journal.Event, error) {
	events, err := e.Journal.Replay(threadID, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: resume: replay thread %s: %w", threadID, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("engine: resume: no journal history for thread %s", threadID)
	}

	rec := journal.NewReconstructor()
	f, err := rec.Reconstruct(events)
	if err != nil {
		return nil, fmt.Errorf("engine: resume: reconstruct thread %s: %w", threadID, err)
	}

	// Pick up exactly where the journal says execution stopped, instead of
	// re-running phases that already completed. Tool results already
	// journaled but no recursion event yet (crash between tool_result and
	// recursion, spec §8 scenario 6) resumes at Phase 5. Tool calls already
	// decided but not yet executed (a confirmation-required interrupt from
	// Phase 4, spec §8 scenario 5) resumes at Phase 4 so the batch re-runs
	// with the newly confirmed IDs instead of re-querying the LLM.
	startPhase := 0
	switch {
	case f.Phase == frame.PhaseToolExecution:
		startPhase = 5
	case f.Phase == frame.PhaseLLMCall && len(f.LLMToolCalls) > 0:
		startPhase = 4
	}

	return e.run(ctx, threadID, f, confirmed, startPhase), nil
}

// Run is the convenience entry point of spec §6.2: collect until
// agent_finish and return its text.
func (e *Engine) Run(ctx context.Context, userInput, threadID string) (string, error) {
	ch, err := e.Execute(ctx, userInput, threadID)
	if err != nil {
		return "", err
	}
	var finalText string
	var finalErr error
	for ev := range ch {
		switch ev.Type {
		case journal.EventAgentFinish:
			finalText = ev.Content
		case journal.EventError:
			finalErr = fmt.Errorf("engine: run failed: %s", ev.Content)
		}
	}
	if finalErr != nil {
		return "", finalErr
	}
	return finalText, nil
}

// run spawns the flat loop as a goroutine and returns its event channel.
// startPhase is 0 for a normal/fresh entry, 5 to resume directly at tail
// recursion for an already-reconstructed frame (see ResumeWithConfirmation).
func (e *Engine) run(ctx context.Context, threadID string, initial frame.ExecutionFrame, confirmed map[string]bool, startPhase int) <-chan journal.Event {
	out := make(chan journal.Event, 64)

	go func() {
		defer close(out)

		emit := func(ev journal.Event) {
			select {
			case out <- ev:
			case <-ctx.Done():
			}
			if e.Journal != nil {
				if err := e.Journal.Append(ctx, threadID, ev); err != nil {
					slog.Error("engine: journal append failed", "thread_id", threadID, "error", err)
				}
			}
			if e.Subscribers != nil {
				e.Subscribers.Publish(ev)
			}
		}

		current := initial
		var stack []frame.ExecutionFrame
		phase := startPhase

		for {
			select {
			case <-ctx.Done():
				emit(journal.New(threadID, journal.EventExecutionCancelled, current.FrameID, current.Depth, ctx.Err().Error(), nil))
				e.unwind(ctx, stack)
				return
			default:
			}

			emit(journal.New(threadID, journal.EventIterationStart, current.FrameID, current.Depth, "", map[string]any{
				"messages":       current.Messages,
				"max_iterations": current.MaxIterations,
			}))
			stack = append(stack, current)

			next, terminal, engErr := e.runIteration(ctx, threadID, current, confirmed, emit, phase)
			phase = 0 // only the resumed iteration starts mid-phase

			if engErr != nil {
				current = current.WithPhase(frame.PhaseError)
				emit(journal.New(threadID, journal.EventError, current.FrameID, current.Depth, engErr.Error(), map[string]any{
					"kind":        string(engErr.Kind),
					"recoverable": engErr.Recoverable,
				}))
				e.unwind(ctx, stack)
				return
			}
			if terminal {
				e.unwind(ctx, stack)
				return
			}

			emit(journal.New(threadID, journal.EventIterationEnd, current.FrameID, current.Depth, "", nil))
			current = next
		}
	}()

	return out
}

// unwind fires hook 9 over every visited frame in LIFO order,
// approximating the unwind-on-return semantics spec §4.5 describes for
// true recursion.
func (e *Engine) unwind(ctx context.Context, stack []frame.ExecutionFrame) {
	for i := len(stack) - 1; i >= 0; i-- {
		e.Hooks.AfterIterationEnd(ctx, stack[i])
	}
}

// runIteration executes one pass of phases 0-5 over current, returning
// the successor frame. terminal=true means the loop stream ends here
// (agent_finish/recursion_terminated/interrupted were already emitted by
// the phase that decided it). startPhase lets a resumed run skip
// straight to Phase 5.
func (e *Engine) runIteration(
	ctx context.Context,
	threadID string,
	current frame.ExecutionFrame,
	confirmed map[string]bool,
	emit func(journal.Event),
	startPhase int,
) (frame.ExecutionFrame, bool, *EngineError) {
	if startPhase <= 0 {
		if terminal := e.phase0RecursionControl(threadID, &current, emit); terminal {
			return current, true, nil
		}
	}

	if startPhase <= 1 {
		if err := e.phase1ContextAssembly(ctx, threadID, &current, emit); err != nil {
			return current, true, err
		}
	}

	var toolCalls []frame.ToolCall
	if startPhase <= 2 {
		calls, err := e.phase2LLMCall(ctx, threadID, &current, emit)
		if err != nil {
			return current, true, err
		}
		toolCalls = calls
	}

	if startPhase <= 3 {
		if len(toolCalls) == 0 {
			current = current.WithPhase(frame.PhaseCompleted)
			emit(journal.New(threadID, journal.EventAgentFinish, current.FrameID, current.Depth, current.LLMResponse, nil))
			return current, true, nil
		}
	}

	if startPhase <= 4 {
		_, terminal := e.phase4ToolExecution(ctx, threadID, &current, confirmed, emit)
		if terminal {
			return current, true, nil
		}
	}

	// current.ToolResults is authoritative here whether this iteration just
	// ran Phase 4 (WithToolResults set it above) or resumed directly at
	// Phase 5 after a crash (the reconstructor folded it from the journal).
	next := e.phase5TailRecursion(ctx, threadID, current, emit)
	return next, false, nil
}

// phase0RecursionControl implements spec §4.5 Phase 0.
func (e *Engine) phase0RecursionControl(threadID string, current *frame.ExecutionFrame, emit func(journal.Event)) (terminal bool) {
	verdict := e.Monitor.Evaluate(*current)
	if verdict.Fired {
		kind := journal.EventRecursionTerminated
		if verdict.Reason == ReasonMaxIterations {
			kind = journal.EventMaxIterationsReached
		}
		*current = current.WithPhase(frame.PhaseError)
		emit(journal.New(threadID, kind, current.FrameID, current.Depth, string(verdict.Reason), nil))
		return true
	}
	for _, w := range verdict.Warnings {
		appendSystemMessage(current, w)
	}
	return false
}

// phase1ContextAssembly implements spec §4.5 Phase 1.
func (e *Engine) phase1ContextAssembly(ctx context.Context, threadID string, current *frame.ExecutionFrame, emit func(journal.Event)) *EngineError {
	emit(journal.New(threadID, journal.EventContextAssemblyStart, current.FrameID, current.Depth, "", nil))

	*current = e.Hooks.BeforeContextAssembly(ctx, *current)

	components := e.buildContextComponents(*current)
	snapshot, metadata, err := e.Assembler.Build(components)
	if err != nil {
		return newEngineError(ErrorContextOverflow, false, err)
	}

	snapshot, metadata = e.Hooks.AfterContextAssembly(ctx, *current, snapshot, metadata)
	*current = current.WithContext(snapshot, metadata)

	emit(journal.New(threadID, journal.EventContextAssemblyComplete, current.FrameID, current.Depth, snapshot, map[string]any{
		"total_tokens": metadata.TotalTokens,
	}))
	return nil
}

// buildContextComponents assembles the system prompt, conversation
// messages, and retrieved memory entries into assembler.Component
// values (spec §4.2.2; memory retrieval grounded on pkg/memory.Store).
func (e *Engine) buildContextComponents(current frame.ExecutionFrame) []assembler.Component {
	components := make([]assembler.Component, 0, 4)
	if e.SystemPrompt != "" {
		components = append(components, assembler.Component{
			Name: "system_instructions", Content: e.SystemPrompt, Priority: assembler.PriorityCritical,
		})
	}

	var convo strings.Builder
	for i, m := range current.Messages {
		if i > 0 {
			convo.WriteString("\n")
		}
		fmt.Fprintf(&convo, "%s: %s", m.Role, m.Content)
	}
	components = append(components, assembler.Component{
		Name: "conversation", Content: convo.String(), Priority: assembler.PriorityCritical,
	})

	if e.Memory != nil {
		if mem := e.buildMemoryComponent(); mem.Content != "" {
			components = append(components, mem)
		}
	}

	return components
}

func (e *Engine) buildMemoryComponent() assembler.Component {
	var b strings.Builder
	for _, id := range e.Memory.L2IDs() {
		if entry, ok := e.Memory.Get(id); ok {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(entry.Content)
		}
	}
	return assembler.Component{
		Name: "retrieved_memory", Content: b.String(), Priority: assembler.PriorityLow, Truncatable: true,
	}
}

// phase2LLMCall implements spec §4.5 Phase 2, including the retry
// policy of spec §7 for llm_timeout/llm_transport.
func (e *Engine) phase2LLMCall(ctx context.Context, threadID string, current *frame.ExecutionFrame, emit func(journal.Event)) ([]frame.ToolCall, *EngineError) {
	messages := e.Hooks.BeforeLLMCall(ctx, *current, current.Messages)

	emit(journal.New(threadID, journal.EventLLMStart, current.FrameID, current.Depth, "", nil))

	toolDefs := e.toolDefinitions()

	var text string
	var toolCalls []frame.ToolCall
	var lastErr *EngineError

	timeout := e.llmTimeout()
	for attempt := 0; attempt < llmRetryAttempts; attempt++ {
		if attempt > 0 {
			emit(journal.New(threadID, journal.EventRecoveryAttempt, current.FrameID, current.Depth, "retrying LLM call", map[string]any{"attempt": attempt + 1}))
			time.Sleep(llmRetryBaseDelay * time.Duration(math.Pow(2, float64(attempt-1))))
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		t, tc, err := e.drainLLM(callCtx, threadID, current, messages, toolDefs, emit)
		cancel()

		if err == nil {
			text, toolCalls = t, tc
			if attempt > 0 {
				emit(journal.New(threadID, journal.EventRecoverySuccess, current.FrameID, current.Depth, "", nil))
			}
			lastErr = nil
			break
		}
		lastErr = err
	}

	if lastErr != nil {
		emit(journal.New(threadID, journal.EventRecoveryFailed, current.FrameID, current.Depth, lastErr.Error(), nil))
		return nil, lastErr
	}

	emit(journal.New(threadID, journal.EventLLMComplete, current.FrameID, current.Depth, text, nil))
	if len(toolCalls) > 0 {
		emit(journal.New(threadID, journal.EventLLMToolCalls, current.FrameID, current.Depth, "", map[string]any{"tool_calls": toolCalls}))
	}

	text, toolCalls = e.Hooks.AfterLLMResponse(ctx, *current, text, toolCalls)
	*current = current.WithLLMResponse(text, toolCalls)

	return toolCalls, nil
}

// drainLLM performs a single Generate call and fully drains its channel,
// translating chunks into llm_delta events and accumulated text/tool
// calls. A non-nil *EngineError means the attempt failed.
func (e *Engine) drainLLM(ctx context.Context, threadID string, current *frame.ExecutionFrame, messages []frame.Message, toolDefs []llm.ToolDefinition, emit func(journal.Event)) (string, []frame.ToolCall, *EngineError) {
	input := &llm.GenerateInput{
		ThreadID: threadID,
		FrameID:  current.FrameID,
		Messages: messages,
		Tools:    toolDefs,
		Model:    e.Model,
	}

	ch, err := e.LLM.Generate(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return "", nil, newEngineError(ErrorLLMTimeout, true, err)
		}
		return "", nil, newEngineError(ErrorLLMTransport, true, err)
	}

	var text strings.Builder
	var toolCalls []frame.ToolCall

	for chunk := range ch {
		switch c := chunk.(type) {
		case *llm.TextChunk:
			text.WriteString(c.Content)
			emit(journal.New(threadID, journal.EventLLMDelta, current.FrameID, current.Depth, c.Content, nil))
		case *llm.ThinkingChunk:
			emit(journal.New(threadID, journal.EventLLMDelta, current.FrameID, current.Depth, c.Content, map[string]any{"kind": "thinking"}))
		case *llm.ToolCallChunk:
			toolCalls = append(toolCalls, frame.ToolCall{ID: c.CallID, Name: c.Name, Arguments: c.Arguments})
		case *llm.UsageChunk:
			emit(journal.New(threadID, journal.EventLLMDelta, current.FrameID, current.Depth, "", map[string]any{
				"kind": "usage", "input_tokens": c.InputTokens, "output_tokens": c.OutputTokens, "total_tokens": c.TotalTokens,
			}))
		case *llm.ErrorChunk:
			if ctx.Err() != nil {
				return "", nil, newEngineError(ErrorLLMTimeout, c.Retryable, fmt.Errorf("%s", c.Message))
			}
			return "", nil, newEngineError(ErrorLLMTransport, c.Retryable, fmt.Errorf("%s", c.Message))
		}
	}

	if ctx.Err() != nil {
		return "", nil, newEngineError(ErrorLLMTimeout, true, ctx.Err())
	}

	return text.String(), toolCalls, nil
}

func (e *Engine) toolDefinitions() []llm.ToolDefinition {
	if e.Tools == nil {
		return nil
	}
	defs := e.Tools.Definitions()
	out := make([]llm.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = llm.ToolDefinition{Name: d.Name, Description: d.Description, ParametersSchema: d.ParametersSchema}
	}
	return out
}

func (e *Engine) llmTimeout() time.Duration {
	if e.LLMTimeout > 0 {
		return e.LLMTimeout
	}
	return DefaultLLMTimeout
}

// phase4ToolExecution implements spec §4.5 Phase 4.
func (e *Engine) phase4ToolExecution(ctx context.Context, threadID string, current *frame.ExecutionFrame, confirmed map[string]bool, emit func(journal.Event)) (orchestrator.BatchOutcome, bool) {
	emit(journal.New(threadID, journal.EventToolCallsStart, current.FrameID, current.Depth, "", map[string]any{"count": len(current.LLMToolCalls)}))

	calls := make([]tool.Call, len(current.LLMToolCalls))
	for i, c := range current.LLMToolCalls {
		calls[i] = tool.Call{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}

	outcome, err := e.Orchestrator.ExecuteBatch(ctx, threadID, current.FrameID, current.Depth, calls, confirmed, emit)
	if err != nil {
		emit(journal.New(threadID, journal.EventError, current.FrameID, current.Depth, err.Error(), map[string]any{"kind": string(ErrorToolExecution)}))
		return outcome, true
	}
	if outcome.Interrupted {
		// ExecuteBatch already emitted execution_interrupted.
		return outcome, true
	}

	anyErr := false
	for _, r := range outcome.Results {
		if r.IsError {
			anyErr = true
			break
		}
	}
	*current = current.WithToolResults(outcome.Results, anyErr)

	return outcome, false
}

// phase5TailRecursion implements spec §4.5 Phase 5.
func (e *Engine) phase5TailRecursion(ctx context.Context, threadID string, current frame.ExecutionFrame, emit func(journal.Event)) frame.ExecutionFrame {
	nextMessages := e.buildNextMessages(current)

	candidate := current.NextFrame(nextMessages)
	candidate = e.Hooks.BeforeRecursion(ctx, current, candidate)

	emit(journal.New(threadID, journal.EventRecursion, current.FrameID, current.Depth, "", map[string]any{
		"messages": nextMessages,
	}))

	return candidate
}

func (e *Engine) buildNextMessages(current frame.ExecutionFrame) []frame.Message {
	next := append([]frame.Message(nil), current.Messages...)

	assistantContent := current.LLMResponse
	if len(current.LLMToolCalls) > 0 {
		var descriptors strings.Builder
		for i, c := range current.LLMToolCalls {
			if i > 0 {
				descriptors.WriteString(", ")
			}
			fmt.Fprintf(&descriptors, "%s(%s)", c.Name, c.Arguments)
		}
		assistantContent = strings.TrimSpace(assistantContent + "\n[tool_calls: " + descriptors.String() + "]")
	}
	next = append(next, frame.Message{Role: frame.RoleAssistant, Content: assistantContent})

	names := make(map[string]string, len(current.LLMToolCalls))
	for _, c := range current.LLMToolCalls {
		names[c.ID] = c.Name
	}

	var combined strings.Builder
	anyErr := false
	for _, r := range current.ToolResults {
		next = append(next, frame.Message{
			Role: frame.RoleTool, Content: r.Content, ToolCallID: r.ToolCallID, ToolName: names[r.ToolCallID],
		})
		if combined.Len() > 0 {
			combined.WriteString("\n")
		}
		combined.WriteString(r.Content)
		if r.IsError {
			anyErr = true
		}
	}

	analysis := AnalyzeResults(combined.String(), anyErr)
	originalTask := ""
	if len(current.Messages) > 0 {
		originalTask = current.Messages[0].Content
	}
	if guidance := e.Handlers.Guidance(originalTask, analysis, current.Depth+1); guidance != "" {
		next = append(next, frame.Message{Role: frame.RoleSystem, Content: guidance})
	}

	if current.Depth > progressHintDepth {
		next = append(next, frame.Message{
			Role:    frame.RoleSystem,
			Content: fmt.Sprintf("progress hint: recursion depth %d of %d", current.Depth+1, current.MaxIterations),
		})
	}

	return next
}

func appendSystemMessage(current *frame.ExecutionFrame, content string) {
	current.Messages = append(append([]frame.Message(nil), current.Messages...), frame.Message{
		Role: frame.RoleSystem, Content: content,
	})
}

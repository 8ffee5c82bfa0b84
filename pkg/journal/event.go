// Package journal implements the event-sourced execution log (C1): an
// append-only, per-thread, JSON-Lines file that is the authoritative
// history a frame can always be reconstructed from.
package journal

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the event vocabulary a consumer must recognize
// (spec §6.3). The set is bit-exact with the specification; do not add or
// rename kinds without updating SPEC_FULL.md.
type EventKind string

const (
	EventIterationStart EventKind = "iteration_start"
	EventIterationEnd   EventKind = "iteration_end"
	EventPhaseStart     EventKind = "phase_start"
	EventPhaseEnd       EventKind = "phase_end"

	EventContextAssemblyStart    EventKind = "context_assembly_start"
	EventContextAssemblyComplete EventKind = "context_assembly_complete"
	EventCompressionApplied      EventKind = "compression_applied"

	EventRetrievalStart    EventKind = "retrieval_start"
	EventRetrievalProgress EventKind = "retrieval_progress"
	EventRetrievalComplete EventKind = "retrieval_complete"

	EventLLMStart     EventKind = "llm_start"
	EventLLMDelta     EventKind = "llm_delta"
	EventLLMComplete  EventKind = "llm_complete"
	EventLLMToolCalls EventKind = "llm_tool_calls"

	EventToolCallsStart     EventKind = "tool_calls_start"
	EventToolExecutionStart EventKind = "tool_execution_start"
	EventToolProgress       EventKind = "tool_progress"
	EventToolResult         EventKind = "tool_result"
	EventToolError          EventKind = "tool_error"
	EventToolCallsComplete  EventKind = "tool_calls_complete"

	EventRecursion            EventKind = "recursion"
	EventRecursionTerminated  EventKind = "recursion_terminated"
	EventMaxIterationsReached EventKind = "max_iterations_reached"

	EventAgentFinish         EventKind = "agent_finish"
	EventExecutionInterrupted EventKind = "execution_interrupted"
	EventExecutionCancelled   EventKind = "execution_cancelled"

	EventError           EventKind = "error"
	EventRecoveryAttempt EventKind = "recovery_attempt"
	EventRecoverySuccess EventKind = "recovery_success"
	EventRecoveryFailed  EventKind = "recovery_failed"
)

// TerminalKinds is the set of event kinds that end a tt invocation — spec
// §8 requires exactly one of these per run.
var TerminalKinds = map[EventKind]bool{
	EventAgentFinish:          true,
	EventRecursionTerminated:  true,
	EventMaxIterationsReached: true,
	EventExecutionInterrupted: true,
	EventExecutionCancelled:   true,
	EventError:                true,
}

// Event is the append-only record emitted by the core (spec §3.2).
type Event struct {
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	ThreadID  string         `json:"thread_id"`
	Type      EventKind      `json:"type"`
	FrameID   string         `json:"frame_id"`
	Depth     int            `json:"depth"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// New builds an Event with a fresh ID and the current time, the usual
// construction path for every emission site in the engine.
func New(threadID string, kind EventKind, frameID string, depth int, content string, metadata map[string]any) Event {
	return Event{
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		ThreadID:  threadID,
		Type:      kind,
		FrameID:   frameID,
		Depth:     depth,
		Content:   content,
		Metadata:  metadata,
	}
}

// Package frame implements the immutable execution frame at the heart of
// the recursive control loop: one logical recursion level, linked to its
// predecessor via ParentFrameID, never mutated after construction.
package frame

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle stage an ExecutionFrame is currently in.
type Phase string

const (
	PhaseInitial         Phase = "initial"
	PhaseContextAssembly Phase = "context_assembly"
	PhaseLLMCall         Phase = "llm_call"
	PhaseDecision        Phase = "decision"
	PhaseToolExecution   Phase = "tool_execution"
	PhaseRecursion       Phase = "recursion"
	PhaseCompleted       Phase = "completed"
	PhaseError           Phase = "error"
)

// MessageRole mirrors the conversation roles any LLM provider recognizes.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one turn of the conversation fed to the LLM.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCallID string // set on RoleTool messages, back-references a ToolCall.ID
	ToolName   string
}

// ToolCall is a structured tool invocation request returned by the LLM.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON, parsed by the tool orchestrator
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID      string
	Content         string
	IsError         bool
	ErrorKind       string
	ExecutionTimeMS int64
}

// ContextMetadata records what the context assembler decided for each
// component of the last-built context snapshot (see pkg/assembler).
type ContextMetadata struct {
	TotalTokens int
	Decisions   []ComponentDecision
}

// ComponentDecision is the assembler's per-component audit record —
// this is the stream a Context Debugger would consume (spec §4.2.2).
type ComponentDecision struct {
	Name        string
	Included    bool
	Truncated   bool
	Reason      string
	FinalTokens int
}

// Default bounds for the rolling windows used by loop/duplicate detection.
const (
	DefaultToolCallHistorySize = 10
	DefaultLastOutputsSize     = 10
)

// ExecutionFrame is one logical recursion level. It is never mutated after
// construction: every With* method returns a new value.
type ExecutionFrame struct {
	FrameID       string
	ParentFrameID string // empty at root
	Depth         int
	Phase         Phase

	Messages        []Message
	ContextSnapshot string
	ContextMetadata ContextMetadata

	LLMResponse  string
	LLMToolCalls []ToolCall
	ToolResults  []ToolResult

	MaxIterations int

	ToolCallHistory []string // rolling window of recent tool names
	ErrorCount      int
	LastOutputs     []string // rolling window of recent assistant outputs

	Timestamp time.Time
}

// Initial constructs a depth-0 frame seeded with the user's prompt.
func Initial(prompt string, maxIterations int) ExecutionFrame {
	return ExecutionFrame{
		FrameID:       uuid.NewString(),
		ParentFrameID: "",
		Depth:         0,
		Phase:         PhaseInitial,
		Messages: []Message{
			{Role: RoleUser, Content: prompt},
		},
		MaxIterations: maxIterations,
		Timestamp:     time.Now(),
	}
}

// clone produces a shallow value copy with freshly-allocated slices, so
// that the returned frame shares no backing array with the receiver.
func (f ExecutionFrame) clone() ExecutionFrame {
	next := f
	next.Messages = append([]Message(nil), f.Messages...)
	next.LLMToolCalls = append([]ToolCall(nil), f.LLMToolCalls...)
	next.ToolResults = append([]ToolResult(nil), f.ToolResults...)
	next.ToolCallHistory = append([]string(nil), f.ToolCallHistory...)
	next.LastOutputs = append([]string(nil), f.LastOutputs...)
	next.ContextMetadata.Decisions = append([]ComponentDecision(nil), f.ContextMetadata.Decisions...)
	return next
}

// WithPhase returns a new frame with Phase updated.
func (f ExecutionFrame) WithPhase(p Phase) ExecutionFrame {
	next := f.clone()
	next.Phase = p
	return next
}

// WithContext returns a new frame carrying the assembled context snapshot
// and its metadata (spec §4.1: frame.with_context).
func (f ExecutionFrame) WithContext(snapshot string, metadata ContextMetadata) ExecutionFrame {
	next := f.clone()
	next.ContextSnapshot = snapshot
	next.ContextMetadata = metadata
	next.Phase = PhaseContextAssembly
	return next
}

// WithLLMResponse returns a new frame carrying the LLM's textual reply and
// any tool calls it requested (spec §4.1: frame.with_llm_response).
func (f ExecutionFrame) WithLLMResponse(text string, calls []ToolCall) ExecutionFrame {
	next := f.clone()
	next.LLMResponse = text
	next.LLMToolCalls = append([]ToolCall(nil), calls...)
	next.Phase = PhaseLLMCall
	next.LastOutputs = pushWindow(next.LastOutputs, text, DefaultLastOutputsSize)
	return next
}

// WithToolResults returns a new frame carrying the results of executing
// this iteration's tool calls, bumping ErrorCount when hadError is true
// (spec §4.1: frame.with_tool_results).
func (f ExecutionFrame) WithToolResults(results []ToolResult, hadError bool) ExecutionFrame {
	next := f.clone()
	next.ToolResults = append([]ToolResult(nil), results...)
	next.Phase = PhaseToolExecution
	if hadError {
		next.ErrorCount++
	}
	for _, c := range f.LLMToolCalls {
		next.ToolCallHistory = pushWindow(next.ToolCallHistory, c.Name, DefaultToolCallHistorySize)
	}
	return next
}

// NextFrame builds the successor frame at Depth+1, linked via ParentFrameID
// and carrying the supplied conversation messages forward (spec §4.1:
// frame.next_frame). Rolling windows and error count carry over; iteration-
// specific fields (llm response/tool calls/results/context) reset.
func (f ExecutionFrame) NextFrame(newMessages []Message) ExecutionFrame {
	return ExecutionFrame{
		FrameID:         uuid.NewString(),
		ParentFrameID:   f.FrameID,
		Depth:           f.Depth + 1,
		Phase:           PhaseRecursion,
		Messages:        append([]Message(nil), newMessages...),
		MaxIterations:   f.MaxIterations,
		ToolCallHistory: append([]string(nil), f.ToolCallHistory...),
		ErrorCount:      f.ErrorCount,
		LastOutputs:     append([]string(nil), f.LastOutputs...),
		Timestamp:       time.Now(),
	}
}

// pushWindow appends v to window, evicting from the front once size is
// exceeded (the bounded rolling windows required by spec §3.1).
func pushWindow(window []string, v string, size int) []string {
	next := append(append([]string(nil), window...), v)
	if len(next) > size {
		next = next[len(next)-size:]
	}
	return next
}

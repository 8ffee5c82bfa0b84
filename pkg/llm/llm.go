// Package llm defines the Go-side LLM provider contract consumed by the
// control loop (C5) and a reference transport adapter over gRPC.
// Grounded directly on the teacher's pkg/agent/llm_client.go: same
// streaming-channel shape, same chunk taxonomy, generalized to use the
// shared frame.Message/frame.ToolCall vocabulary instead of a
// parallel ConversationMessage type.
package llm

import (
	"context"

	"github.com/recursiveagent/ttcore/pkg/frame"
)

// Provider is the Go-side interface the engine calls through (spec
// §6.1: LLMProvider.stream_chat).
type Provider interface {
	// Generate sends a conversation to the LLM and returns a stream of
	// chunks. The returned channel is closed when the stream completes.
	// Transport/provider errors are delivered as *ErrorChunk values, not
	// as a non-nil error return, so callers always drain the channel to
	// completion.
	Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error)

	// Close releases any held connection/resources.
	Close() error
}

// GenerateInput is one LLM call's worth of conversation state.
type GenerateInput struct {
	ThreadID string
	FrameID  string
	Messages []frame.Message
	Tools    []ToolDefinition // nil = no tools offered
	Model    string
}

// ToolDefinition describes a tool available to the LLM (spec §6.4,
// stripped to the fields the wire protocol needs).
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string
}

// Chunk is the interface every streaming chunk type satisfies.
type Chunk interface {
	chunkType() ChunkType
}

// ChunkType identifies the kind of streaming chunk.
type ChunkType string

const (
	ChunkTypeText          ChunkType = "text"
	ChunkTypeThinking      ChunkType = "thinking"
	ChunkTypeToolCall      ChunkType = "tool_call"
	ChunkTypeCodeExecution ChunkType = "code_execution"
	ChunkTypeGrounding     ChunkType = "grounding"
	ChunkTypeUsage         ChunkType = "usage"
	ChunkTypeError         ChunkType = "error"
)

// TextChunk is a chunk of the LLM's text response (spec §6.3: llm_delta).
type TextChunk struct{ Content string }

// ThinkingChunk is a chunk of the LLM's internal reasoning, surfaced
// separately so the journal can record it without mixing it into the
// final answer text.
type ThinkingChunk struct{ Content string }

// ToolCallChunk signals the LLM wants to call a tool (spec §6.3:
// llm_tool_calls).
type ToolCallChunk struct{ CallID, Name, Arguments string }

// CodeExecutionChunk carries provider-native code execution results, if
// the backing model supports it.
type CodeExecutionChunk struct{ Code, Result string }

// GroundingChunk carries grounding/citation metadata from the response.
type GroundingChunk struct {
	WebSearchQueries []string
	Sources          []GroundingSource
}

// GroundingSource is one web source referenced by the LLM.
type GroundingSource struct {
	URI   string
	Title string
}

// UsageChunk reports token consumption for the call (spec §6.3's
// llm_complete metadata).
type UsageChunk struct{ InputTokens, OutputTokens, TotalTokens int }

// ErrorChunk signals a provider or transport error (spec §7:
// llm_timeout, llm_transport).
type ErrorChunk struct {
	Message   string
	Kind      string
	Retryable bool
}

func (c *TextChunk) chunkType() ChunkType          { return ChunkTypeText }
func (c *ThinkingChunk) chunkType() ChunkType      { return ChunkTypeThinking }
func (c *ToolCallChunk) chunkType() ChunkType      { return ChunkTypeToolCall }
func (c *CodeExecutionChunk) chunkType() ChunkType { return ChunkTypeCodeExecution }
func (c *GroundingChunk) chunkType() ChunkType     { return ChunkTypeGrounding }
func (c *UsageChunk) chunkType() ChunkType         { return ChunkTypeUsage }
func (c *ErrorChunk) chunkType() ChunkType         { return ChunkTypeError }

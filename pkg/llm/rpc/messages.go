// Package rpc is the Go binding for llm.proto (see that file for the
// wire contract). It is hand-written rather than protoc-generated: this
// module is built without ever invoking a build toolchain, and
// protoc-gen-go's output embeds a raw serialized FileDescriptorProto
// that cannot be produced correctly by hand. Instead, messages here are
// plain structs with JSON tags, carried over gRPC using a custom codec
// (codec.go) registered under the "json" content-subtype — a
// documented grpc-go extension point (google.golang.org/grpc/encoding).
// google.golang.org/protobuf is still pulled in for its well-known
// timestamp/duration types, used on GenerateRequest below exactly as
// the teacher's pkg/agent/llm_grpc.go uses protobuf-native types on its
// generated request.
package rpc

import (
	"time"

	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// GenerateRequest is the client-to-server request (llm.proto
// GenerateRequest).
type GenerateRequest struct {
	ThreadID    string                 `json:"thread_id"`
	FrameID     string                 `json:"frame_id"`
	Messages    []ConversationMessage  `json:"messages"`
	Tools       []ToolDefinition       `json:"tools,omitempty"`
	Model       string                 `json:"model,omitempty"`
	RequestedAt *timestamppb.Timestamp `json:"requested_at,omitempty"`
	Timeout     *durationpb.Duration   `json:"timeout,omitempty"`
}

// NewGenerateRequest stamps RequestedAt/Timeout using the well-known
// protobuf wrapper types, the one place this package touches
// google.golang.org/protobuf directly.
func NewGenerateRequest(threadID, frameID string, messages []ConversationMessage, tools []ToolDefinition, model string, timeout time.Duration) *GenerateRequest {
	req := &GenerateRequest{
		ThreadID:    threadID,
		FrameID:     frameID,
		Messages:    messages,
		Tools:       tools,
		Model:       model,
		RequestedAt: timestamppb.Now(),
	}
	if timeout > 0 {
		req.Timeout = durationpb.New(timeout)
	}
	return req
}

// ConversationMessage mirrors llm.proto's ConversationMessage.
type ConversationMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall mirrors llm.proto's ToolCall.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition mirrors llm.proto's ToolDefinition.
type ToolDefinition struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	ParametersSchema string `json:"parameters_schema,omitempty"`
}

// GenerateResponse is one streamed server-to-client chunk (llm.proto
// GenerateResponse). Exactly one Content field is set per message,
// standing in for the proto oneof.
type GenerateResponse struct {
	IsFinal       bool                  `json:"is_final,omitempty"`
	Text          *TextContent          `json:"text,omitempty"`
	Thinking      *ThinkingContent      `json:"thinking,omitempty"`
	ToolCall      *ToolCallContent      `json:"tool_call,omitempty"`
	CodeExecution *CodeExecutionContent `json:"code_execution,omitempty"`
	Grounding     *GroundingContent     `json:"grounding,omitempty"`
	Usage         *UsageContent         `json:"usage,omitempty"`
	Error         *ErrorContent         `json:"error,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
}

type ThinkingContent struct {
	Content string `json:"content"`
}

type ToolCallContent struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type CodeExecutionContent struct {
	Code   string `json:"code"`
	Result string `json:"result"`
}

type GroundingContent struct {
	WebSearchQueries []string          `json:"web_search_queries,omitempty"`
	Sources          []GroundingSource `json:"sources,omitempty"`
}

type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

type UsageContent struct {
	InputTokens  int32 `json:"input_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}

type ErrorContent struct {
	Message   string `json:"message"`
	Kind      string `json:"kind,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

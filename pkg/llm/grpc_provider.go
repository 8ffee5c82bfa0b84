package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/llm/rpc"
)

// GRPCProvider implements Provider by calling an out-of-process LLM
// service over gRPC. Grounded directly on the teacher's
// pkg/agent/llm_grpc.go GRPCLLMClient — same connection/close shape,
// same goroutine-per-stream chunk translation — adapted to the
// hand-written rpc package (see DESIGN.md for why this module does not
// carry protoc-generated bindings) and to frame.Message instead of a
// parallel ConversationMessage type.
type GRPCProvider struct {
	conn   *grpc.ClientConn
	client rpc.LLMServiceClient
	Model  string
}

// NewGRPCProvider dials addr in plaintext. As with the teacher's
// client, this assumes the LLM service runs as a sidecar or on
// localhost; cross-network deployments must upgrade to TLS credentials.
func NewGRPCProvider(addr string) (*GRPCProvider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("llm: failed to create client for %s: %w", addr, err)
	}
	return &GRPCProvider{
		conn:   conn,
		client: rpc.NewLLMServiceClient(conn),
	}, nil
}

// Generate sends input over the gRPC stream and translates responses
// into Chunk values on the returned channel.
func (p *GRPCProvider) Generate(ctx context.Context, input *GenerateInput) (<-chan Chunk, error) {
	req := toWireRequest(input, p.Model)

	stream, err := p.client.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm: Generate call failed: %w", err)
	}

	ch := make(chan Chunk, 32)
	go func() {
		defer close(ch)
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case ch <- &ErrorChunk{Message: err.Error(), Kind: "llm_transport", Retryable: false}:
				case <-ctx.Done():
				}
				return
			}
			chunk := fromWireResponse(resp)
			if chunk != nil {
				select {
				case ch <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close releases the gRPC connection.
func (p *GRPCProvider) Close() error {
	return p.conn.Close()
}

func toWireRequest(input *GenerateInput, model string) *rpc.GenerateRequest {
	if model == "" {
		model = input.Model
	}
	return rpc.NewGenerateRequest(
		input.ThreadID,
		input.FrameID,
		toWireMessages(input.Messages),
		toWireTools(input.Tools),
		model,
		0,
	)
}

func toWireMessages(messages []frame.Message) []rpc.ConversationMessage {
	out := make([]rpc.ConversationMessage, len(messages))
	for i, m := range messages {
		out[i] = rpc.ConversationMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
		}
	}
	return out
}

func toWireTools(tools []ToolDefinition) []rpc.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	out := make([]rpc.ToolDefinition, len(tools))
	for i, t := range tools {
		out[i] = rpc.ToolDefinition{
			Name:             t.Name,
			Description:      t.Description,
			ParametersSchema: t.ParametersSchema,
		}
	}
	return out
}

func fromWireResponse(resp *rpc.GenerateResponse) Chunk {
	switch {
	case resp.Text != nil:
		return &TextChunk{Content: resp.Text.Content}
	case resp.Thinking != nil:
		return &ThinkingChunk{Content: resp.Thinking.Content}
	case resp.ToolCall != nil:
		return &ToolCallChunk{CallID: resp.ToolCall.CallID, Name: resp.ToolCall.Name, Arguments: resp.ToolCall.Arguments}
	case resp.CodeExecution != nil:
		return &CodeExecutionChunk{Code: resp.CodeExecution.Code, Result: resp.CodeExecution.Result}
	case resp.Grounding != nil:
		g := resp.Grounding
		chunk := &GroundingChunk{WebSearchQueries: g.WebSearchQueries}
		for _, s := range g.Sources {
			chunk.Sources = append(chunk.Sources, GroundingSource{URI: s.URI, Title: s.Title})
		}
		return chunk
	case resp.Usage != nil:
		return &UsageChunk{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		}
	case resp.Error != nil:
		return &ErrorChunk{Message: resp.Error.Message, Kind: resp.Error.Kind, Retryable: resp.Error.Retryable}
	default:
		if !resp.IsFinal {
			slog.Warn("llm: GenerateResponse with no content and is_final=false, skipping")
		}
		return nil
	}
}

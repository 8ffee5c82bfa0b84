package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Chunk) []Chunk {
	var out []Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestStubProvider_ReturnsResponsesInOrder(t *testing.T) {
	p := NewStubProvider(
		StubResponse{Calls: []ToolCallChunk{{CallID: "1", Name: "echo", Arguments: `{"text":"hi"}`}}},
		StubResponse{Text: "done"},
	)

	ch, err := p.Generate(context.Background(), &GenerateInput{})
	require.NoError(t, err)
	chunks := drain(ch)
	require.Len(t, chunks, 1)
	toolCall, ok := chunks[0].(*ToolCallChunk)
	require.True(t, ok)
	assert.Equal(t, "echo", toolCall.Name)

	ch, err = p.Generate(context.Background(), &GenerateInput{})
	require.NoError(t, err)
	chunks = drain(ch)
	require.Len(t, chunks, 1)
	text, ok := chunks[0].(*TextChunk)
	require.True(t, ok)
	assert.Equal(t, "done", text.Content)
}

func TestStubProvider_RepeatsFinalResponseOnceQueueDrains(t *testing.T) {
	p := NewStubProvider(StubResponse{Text: "only"})

	for i := 0; i < 3; i++ {
		ch, err := p.Generate(context.Background(), &GenerateInput{})
		require.NoError(t, err)
		chunks := drain(ch)
		require.Len(t, chunks, 1)
		text, ok := chunks[0].(*TextChunk)
		require.True(t, ok)
		assert.Equal(t, "only", text.Content)
	}
}

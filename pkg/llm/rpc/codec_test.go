package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_RoundTripsGenerateRequest(t *testing.T) {
	var codec jsonCodec

	req := NewGenerateRequest(
		"thread-1", "frame-1",
		[]ConversationMessage{{Role: "user", Content: "hello"}},
		[]ToolDefinition{{Name: "echo"}},
		"gpt-test", 0,
	)

	data, err := codec.Marshal(req)
	require.NoError(t, err)

	var out GenerateRequest
	require.NoError(t, codec.Unmarshal(data, &out))

	assert.Equal(t, req.ThreadID, out.ThreadID)
	assert.Equal(t, req.Messages, out.Messages)
	require.NotNil(t, out.RequestedAt)
}

func TestJSONCodec_RoundTripsGenerateResponse_OneofVariant(t *testing.T) {
	var codec jsonCodec

	resp := &GenerateResponse{ToolCall: &ToolCallContent{CallID: "1", Name: "echo", Arguments: "{}"}}
	data, err := codec.Marshal(resp)
	require.NoError(t, err)

	var out GenerateResponse
	require.NoError(t, codec.Unmarshal(data, &out))

	require.NotNil(t, out.ToolCall)
	assert.Nil(t, out.Text)
	assert.Equal(t, "echo", out.ToolCall.Name)
}

func TestJSONCodec_Name(t *testing.T) {
	var codec jsonCodec
	assert.Equal(t, "json", codec.Name())
}

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitial(t *testing.T) {
	f := Initial("say hi", 10)

	assert.Equal(t, 0, f.Depth)
	assert.Equal(t, PhaseInitial, f.Phase)
	assert.Equal(t, "", f.ParentFrameID)
	assert.Equal(t, 10, f.MaxIterations)
	require.Len(t, f.Messages, 1)
	assert.Equal(t, RoleUser, f.Messages[0].Role)
	assert.Equal(t, "say hi", f.Messages[0].Content)
}

func TestNextFrame_LinksParent(t *testing.T) {
	root := Initial("say hi", 10)
	next := root.NextFrame([]Message{{Role: RoleAssistant, Content: "hello"}})

	assert.Equal(t, root.FrameID, next.ParentFrameID)
	assert.Equal(t, root.Depth+1, next.Depth)
	assert.Equal(t, PhaseRecursion, next.Phase)
}

func TestWithToolResults_TracksErrorCountAndHistory(t *testing.T) {
	f := Initial("find bugs", 10)
	f = f.WithLLMResponse("searching", []ToolCall{{ID: "1", Name: "search"}})

	withErr := f.WithToolResults([]ToolResult{{ToolCallID: "1", IsError: true}}, true)
	assert.Equal(t, 1, withErr.ErrorCount)
	assert.Equal(t, []string{"search"}, withErr.ToolCallHistory)

	withoutErr := f.WithToolResults([]ToolResult{{ToolCallID: "1"}}, false)
	assert.Equal(t, 0, withoutErr.ErrorCount)
}

func TestRollingWindowsAreBounded(t *testing.T) {
	f := Initial("loop", 100)
	for i := 0; i < DefaultLastOutputsSize+5; i++ {
		f = f.WithLLMResponse("output", nil)
	}
	assert.Len(t, f.LastOutputs, DefaultLastOutputsSize)
}

func TestImmutability_OriginalUnaffectedByMutationOfCopy(t *testing.T) {
	root := Initial("say hi", 10)
	derived := root.WithPhase(PhaseCompleted)
	derived.Messages[0].Content = "mutated"

	assert.Equal(t, PhaseInitial, root.Phase)
	assert.Equal(t, "say hi", root.Messages[0].Content)
	assert.Equal(t, PhaseCompleted, derived.Phase)
}

func TestCheckpointRoundTrip(t *testing.T) {
	f := Initial("say hi", 10)
	f = f.WithLLMResponse("hello", []ToolCall{{ID: "1", Name: "search", Arguments: `{"q":"x"}`}})
	f = f.WithToolResults([]ToolResult{{ToolCallID: "1", Content: "ok"}}, false)

	data, err := f.ToCheckpoint()
	require.NoError(t, err)

	restored, err := FromCheckpoint(data)
	require.NoError(t, err)

	assert.Equal(t, f.FrameID, restored.FrameID)
	assert.Equal(t, f.Depth, restored.Depth)
	assert.Equal(t, f.Phase, restored.Phase)
	assert.Equal(t, f.Messages, restored.Messages)
	assert.Equal(t, f.LLMToolCalls, restored.LLMToolCalls)
	assert.Equal(t, f.ToolResults, restored.ToolResults)
	assert.Equal(t, f.Timestamp.UnixNano(), restored.Timestamp.UnixNano())
}

func TestFromCheckpoint_RejectsNewerSchema(t *testing.T) {
	_, err := FromCheckpoint([]byte(`{"schema_version": 999, "frame": {}}`))
	assert.Error(t, err)
}

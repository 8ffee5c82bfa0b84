package masking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recursiveagent/ttcore/pkg/frame"
)

func TestHook_AfterToolExecution_MasksContent(t *testing.T) {
	rules, err := DefaultRuleSet()
	require.NoError(t, err)
	h := NewHook(rules)

	result := frame.ToolResult{
		ToolCallID: "call-1",
		Content:    `{"password":"hunter2"}`,
	}

	masked, err := h.AfterToolExecution(context.Background(), frame.ExecutionFrame{}, result)
	require.NoError(t, err)
	assert.NotContains(t, masked.Content, "hunter2")
	assert.Equal(t, "call-1", masked.ToolCallID)
}

func TestHook_AfterToolExecution_LeavesCleanContentUntouched(t *testing.T) {
	rules, err := DefaultRuleSet()
	require.NoError(t, err)
	h := NewHook(rules)

	result := frame.ToolResult{Content: "42 files scanned, no issues found"}
	masked, err := h.AfterToolExecution(context.Background(), frame.ExecutionFrame{}, result)
	require.NoError(t, err)
	assert.Equal(t, "42 files scanned, no issues found", masked.Content)
}

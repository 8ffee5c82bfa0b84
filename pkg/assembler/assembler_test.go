package assembler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_FitsWithinBudget_ConcatenatesAll(t *testing.T) {
	a := NewAssembler(1000)
	snapshot, meta, err := a.Build([]Component{
		{Name: "system_instructions", Content: "be helpful", Priority: PriorityCritical},
		{Name: "rag_docs", Content: "some docs", Priority: PriorityLow},
	})
	require.NoError(t, err)
	assert.Contains(t, snapshot, "be helpful")
	assert.Contains(t, snapshot, "some docs")
	for _, d := range meta.Decisions {
		assert.True(t, d.Included)
		assert.False(t, d.Truncated)
	}
}

func TestBuild_OverBudget_TruncatesTruncatableAndExcludesRest(t *testing.T) {
	a := NewAssembler(20) // budget*0.9 = 18 tokens ≈ 72 chars

	big := strings.Repeat("x", 400)
	components := []Component{
		{Name: "system_instructions", Content: "core", Priority: PriorityCritical},
		{Name: "optional_notes", Content: big, Priority: PriorityOptional, Truncatable: true},
		{Name: "untruncatable_extra", Content: strings.Repeat("y", 400), Priority: PriorityLow, Truncatable: false},
	}

	_, meta, err := a.Build(components)
	require.NoError(t, err)

	byName := make(map[string]bool)
	truncated := make(map[string]bool)
	for _, d := range meta.Decisions {
		byName[d.Name] = d.Included
		truncated[d.Name] = d.Truncated
	}

	assert.True(t, byName["system_instructions"], "critical component always included")
	assert.True(t, truncated["optional_notes"] || !byName["optional_notes"], "optional notes truncated or excluded")
	assert.False(t, byName["untruncatable_extra"], "non-truncatable low-priority component excluded when over budget")
}

func TestBuild_CriticalOverflow_ReturnsContextOverflowError(t *testing.T) {
	a := NewAssembler(1)
	_, _, err := a.Build([]Component{
		{Name: "system_instructions", Content: strings.Repeat("z", 1000), Priority: PriorityCritical},
	})
	require.Error(t, err)
	var overflow *ContextOverflowError
	assert.True(t, errors.As(err, &overflow))
}

func TestBuild_PriorityThenInsertionOrder(t *testing.T) {
	a := NewAssembler(1000)
	snapshot, _, err := a.Build([]Component{
		{Name: "b", Content: "BBB", Priority: PriorityMedium},
		{Name: "a", Content: "AAA", Priority: PriorityHigh},
		{Name: "c", Content: "CCC", Priority: PriorityMedium},
	})
	require.NoError(t, err)
	assert.True(t, strings.Index(snapshot, "AAA") < strings.Index(snapshot, "BBB"))
	assert.True(t, strings.Index(snapshot, "BBB") < strings.Index(snapshot, "CCC"))
}

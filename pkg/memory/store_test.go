package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultImportanceScorer_RuleTable(t *testing.T) {
	scorer := NewDefaultImportanceScorer()
	assert.Equal(t, 0.9, scorer.Score(Entry{Kind: "error"}))
	assert.Equal(t, 0.9, scorer.Score(Entry{Kind: "whatever", IsError: true}))
	assert.Equal(t, 0.8, scorer.Score(Entry{Kind: "planning"}))
	assert.Equal(t, 0.75, scorer.Score(Entry{Kind: "tool_result"}))
	assert.Equal(t, 0.4, scorer.Score(Entry{Kind: "unknown"}))
}

func TestStore_Append_EvictsOldestOnL1Overflow(t *testing.T) {
	s := NewStore(NewDefaultImportanceScorer(), NewDefaultCompressor(), WithCapacities(2, 10))
	s.Append(Entry{ID: "a", Kind: "unknown", Timestamp: time.Now()})
	s.Append(Entry{ID: "b", Kind: "unknown", Timestamp: time.Now()})
	s.Append(Entry{ID: "c", Kind: "unknown", Timestamp: time.Now()})

	assert.Equal(t, []string{"b", "c"}, s.L1IDs())
	_, ok := s.Get("a")
	assert.False(t, ok, "evicted entry with no remaining tier reference should be purged from the arena")
}

func TestStore_Promote_MovesHighImportanceToL2(t *testing.T) {
	s := NewStore(NewDefaultImportanceScorer(), NewDefaultCompressor(), WithCapacities(10, 10))
	s.Append(Entry{ID: "err", Kind: "error", IsError: true, Timestamp: time.Now()})
	s.Append(Entry{ID: "chatter", Kind: "unknown", Timestamp: time.Now()})

	s.Promote()

	assert.Equal(t, []string{"chatter"}, s.L1IDs(), "below-threshold entry stays in L1")
	e, ok := s.Get("err")
	require.True(t, ok)
	assert.Equal(t, TierL2, e.Tier)
}

func TestStore_Promote_IsIdempotent(t *testing.T) {
	s := NewStore(NewDefaultImportanceScorer(), NewDefaultCompressor(), WithCapacities(10, 1))
	s.Append(Entry{ID: "e1", Kind: "error", IsError: true, Timestamp: time.Now()})
	s.Append(Entry{ID: "e2", Kind: "error", IsError: true, Timestamp: time.Now().Add(time.Second)})

	s.Promote()
	first := s.L3IDs()
	s.Promote()
	second := s.L3IDs()

	assert.Equal(t, first, second)
}

func TestDefaultCompressor_PreservesErrorsAndRepresentatives(t *testing.T) {
	c := NewDefaultCompressor()
	now := time.Now()
	items := []Entry{
		{ID: "1", Kind: "error", IsError: true, Content: "boom", Timestamp: now.Add(-3 * time.Minute)},
		{ID: "2", Kind: "tool_result", ToolName: "search", Content: "result A", Timestamp: now.Add(-2 * time.Minute)},
		{ID: "3", Kind: "tool_result", ToolName: "search", Content: "result B", Timestamp: now.Add(-1 * time.Minute)},
		{ID: "4", Kind: "chatter", Content: "most recent", Timestamp: now},
	}

	out, err := c.Compress(items, 1000)
	require.NoError(t, err)

	byID := make(map[string]Entry)
	for _, e := range out {
		byID[e.ID] = e
	}
	_, hasError := byID["1"]
	assert.True(t, hasError, "error record must be preserved verbatim")
	_, hasRepresentative := byID["2"]
	assert.True(t, hasRepresentative, "one representative of the search tool must survive")
	_, hasMostRecent := byID["4"]
	assert.True(t, hasMostRecent, "most recent item must be preserved")
}

package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileJournal_AppendReplay_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(Config{RootDir: dir, BatchSize: 2, FlushIntervalMillis: 50})
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	e1 := New("thread-1", EventIterationStart, "f1", 0, "", nil)
	e2 := New("thread-1", EventLLMDelta, "f1", 0, "hel", nil)
	e3 := New("thread-1", EventLLMDelta, "f1", 0, "lo", nil)

	require.NoError(t, j.Append(ctx, "thread-1", e1))
	require.NoError(t, j.Append(ctx, "thread-1", e2))
	require.NoError(t, j.Append(ctx, "thread-1", e3))

	events, err := j.Replay("thread-1", nil)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, e1.EventID, events[0].EventID)
	assert.Equal(t, e2.EventID, events[1].EventID)
	assert.Equal(t, e3.EventID, events[2].EventID)
}

func TestFileJournal_Replay_FiltersByKind(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(Config{RootDir: dir})
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.Append(ctx, "thread-1", New("thread-1", EventIterationStart, "f1", 0, "", nil)))
	require.NoError(t, j.Append(ctx, "thread-1", New("thread-1", EventToolResult, "f1", 0, "ok", nil)))

	events, err := j.Replay("thread-1", []EventKind{EventToolResult})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventToolResult, events[0].Type)
}

func TestFileJournal_Replay_UnknownThreadReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(Config{RootDir: dir})
	require.NoError(t, err)
	defer j.Close()

	events, err := j.Replay("never-seen", nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileJournal_ReplayAfterReopen_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	j1, err := NewFileJournal(Config{RootDir: dir})
	require.NoError(t, err)
	require.NoError(t, j1.Append(context.Background(), "thread-1", New("thread-1", EventAgentFinish, "f1", 0, "hello", nil)))
	require.NoError(t, j1.Close())

	j2, err := NewFileJournal(Config{RootDir: dir})
	require.NoError(t, err)
	defer j2.Close()

	events, err := j2.Replay("thread-1", nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventAgentFinish, events[0].Type)
}

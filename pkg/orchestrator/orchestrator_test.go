package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/hooks"
	"github.com/recursiveagent/ttcore/pkg/journal"
	"github.com/recursiveagent/ttcore/pkg/tool"
)

type noopHooks struct{}

func (noopHooks) BeforeToolExecution(_ context.Context, _ frame.ExecutionFrame, call tool.Call) (tool.Call, error) {
	return call, nil
}
func (noopHooks) AfterToolExecution(_ context.Context, _ frame.ExecutionFrame, result frame.ToolResult) frame.ToolResult {
	return result
}

type concurrencyTrackingTool struct {
	def     tool.Definition
	inFlt   *int32
	maxSeen *int32
	delay   time.Duration
}

func (c concurrencyTrackingTool) Definition() tool.Definition { return c.def }

func (c concurrencyTrackingTool) Invoke(ctx context.Context, _ string) (tool.Result, error) {
	n := atomic.AddInt32(c.inFlt, 1)
	for {
		seen := atomic.LoadInt32(c.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(c.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(c.delay)
	atomic.AddInt32(c.inFlt, -1)
	return tool.Result{Content: "ok"}, nil
}

func readTool(name string, inFlt, maxSeen *int32, delay time.Duration) tool.Tool {
	return concurrencyTrackingTool{
		def:     tool.Definition{Name: name, IsReadOnly: true},
		inFlt:   inFlt,
		maxSeen: maxSeen,
		delay:   delay,
	}
}

type slowWriteTool struct{ order *[]string }

func (slowWriteTool) Definition() tool.Definition {
	return tool.Definition{Name: "write_a", IsReadOnly: false}
}
func (t slowWriteTool) Invoke(_ context.Context, _ string) (tool.Result, error) {
	*t.order = append(*t.order, "write_a")
	return tool.Result{Content: "wrote"}, nil
}

type confirmTool struct{}

func (confirmTool) Definition() tool.Definition {
	return tool.Definition{Name: "dangerous", IsReadOnly: false, RequiresConfirmation: true}
}
func (confirmTool) Invoke(_ context.Context, _ string) (tool.Result, error) {
	return tool.Result{Content: "done"}, nil
}

type timeoutTool struct{}

func (timeoutTool) Definition() tool.Definition {
	return tool.Definition{Name: "slow", IsReadOnly: true}
}
func (timeoutTool) Invoke(ctx context.Context, _ string) (tool.Result, error) {
	<-ctx.Done()
	return tool.Result{}, ctx.Err()
}

func TestExecuteBatch_ReadsRunConcurrentlyBoundedBySemaphore(t *testing.T) {
	var inFlt, maxSeen int32
	registry := tool.NewRegistry(
		readTool("r1", &inFlt, &maxSeen, 20*time.Millisecond),
		readTool("r2", &inFlt, &maxSeen, 20*time.Millisecond),
		readTool("r3", &inFlt, &maxSeen, 20*time.Millisecond),
	)
	o := New(registry, noopHooks{})
	o.MaxParallelReads = 2

	calls := []tool.Call{
		{ID: "1", Name: "r1"},
		{ID: "2", Name: "r2"},
		{ID: "3", Name: "r3"},
	}

	outcome, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, nil, nil)
	require.NoError(t, err)
	assert.False(t, outcome.Interrupted)
	assert.Len(t, outcome.Results, 3)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxSeen), int32(2), "never more than MaxParallelReads reads in flight")
}

func TestExecuteBatch_WritesRunAfterReadsBarrier(t *testing.T) {
	var order []string
	var inFlt, maxSeen int32
	registry := tool.NewRegistry(
		readTool("r1", &inFlt, &maxSeen, 10*time.Millisecond),
		slowWriteTool{order: &order},
	)
	o := New(registry, noopHooks{})

	calls := []tool.Call{
		{ID: "1", Name: "r1"},
		{ID: "2", Name: "write_a"},
	}
	outcome, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, nil, nil)
	require.NoError(t, err)
	require.False(t, outcome.Interrupted)
	assert.Equal(t, []string{"write_a"}, order)
}

func TestExecuteBatch_UnconfirmedConfirmationRequired_Interrupts(t *testing.T) {
	registry := tool.NewRegistry(confirmTool{})
	o := New(registry, noopHooks{})

	calls := []tool.Call{{ID: "1", Name: "dangerous"}}
	outcome, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, nil, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Interrupted)
	assert.True(t, outcome.RequiresUserInput)
}

func TestExecuteBatch_ConfirmedConfirmationRequired_Runs(t *testing.T) {
	registry := tool.NewRegistry(confirmTool{})
	o := New(registry, noopHooks{})

	calls := []tool.Call{{ID: "1", Name: "dangerous"}}
	outcome, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, map[string]bool{"1": true}, nil)
	require.NoError(t, err)
	assert.False(t, outcome.Interrupted)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "done", outcome.Results[0].Content)
}

func TestExecuteBatch_ToolTimeout_ProducesTimeoutErrorResult(t *testing.T) {
	registry := tool.NewRegistry(timeoutTool{})
	o := New(registry, noopHooks{})
	o.ToolTimeout = 5 * time.Millisecond

	calls := []tool.Call{{ID: "1", Name: "slow"}}
	outcome, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, nil, nil)
	require.NoError(t, err)
	require.False(t, outcome.Interrupted)
	require.Len(t, outcome.Results, 1)
	assert.True(t, outcome.Results[0].IsError)
	assert.Equal(t, "tool_timeout", outcome.Results[0].ErrorKind)
}

func TestExecuteBatch_UnregisteredTool_ProducesUnknownToolErrorResult(t *testing.T) {
	registry := tool.NewRegistry()
	o := New(registry, noopHooks{})

	calls := []tool.Call{{ID: "1", Name: "does-not-exist"}}
	outcome, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, nil, nil)
	require.NoError(t, err)
	require.False(t, outcome.Interrupted)
	require.Len(t, outcome.Results, 1)
	assert.True(t, outcome.Results[0].IsError)
	assert.Equal(t, "unknown_tool", outcome.Results[0].ErrorKind)
}

type skippingHooks struct{ noopHooks }

func (skippingHooks) BeforeToolExecution(_ context.Context, _ frame.ExecutionFrame, call tool.Call) (tool.Call, error) {
	return call, &hooks.SkipToolError{Reason: "not needed"}
}

func TestExecuteBatch_SkipToolError_SynthesizesNonErrorResult(t *testing.T) {
	registry := tool.NewRegistry(confirmTool{})
	o := New(registry, skippingHooks{})

	calls := []tool.Call{{ID: "1", Name: "dangerous"}}
	outcome, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, map[string]bool{"1": true}, nil)
	require.NoError(t, err)
	require.False(t, outcome.Interrupted)
	require.Len(t, outcome.Results, 1)
	assert.False(t, outcome.Results[0].IsError)
	assert.Contains(t, outcome.Results[0].Content, "skipped: not needed")
}

func TestExecuteBatch_EmitsJournalEvents(t *testing.T) {
	registry := tool.NewRegistry(confirmTool{})
	o := New(registry, noopHooks{})

	var kinds []journal.EventKind
	calls := []tool.Call{{ID: "1", Name: "dangerous"}}
	_, err := o.ExecuteBatch(context.Background(), "thread", "frame", 0, calls, map[string]bool{"1": true}, func(e journal.Event) {
		kinds = append(kinds, e.Type)
	})
	require.NoError(t, err)
	assert.Contains(t, kinds, journal.EventToolExecutionStart)
	assert.Contains(t, kinds, journal.EventToolResult)
	assert.Contains(t, kinds, journal.EventToolCallsComplete)
}

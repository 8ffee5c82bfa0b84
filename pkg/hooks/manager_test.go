package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/tool"
)

type taggingHook struct {
	NoopHook
	tag string
}

func (h taggingHook) BeforeIterationStart(_ context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error) {
	f.Messages = append(f.Messages, frame.Message{Role: frame.RoleSystem, Content: h.tag})
	return f, nil
}

type failingHook struct {
	NoopHook
	calls int
}

func (h *failingHook) BeforeContextAssembly(_ context.Context, f frame.ExecutionFrame) (frame.ExecutionFrame, error) {
	h.calls++
	return f, errors.New("boom")
}

type interruptingHook struct {
	NoopHook
}

func (interruptingHook) BeforeToolExecution(_ context.Context, _ frame.ExecutionFrame, call tool.Call) (tool.Call, error) {
	return call, &InterruptError{Reason: "needs approval", RequiresUserInput: true}
}

func TestManager_ChainsInRegistrationOrder(t *testing.T) {
	m := NewManager(taggingHook{tag: "first"}, taggingHook{tag: "second"})
	f := frame.Initial("hi", 10)
	out := m.BeforeIterationStart(context.Background(), f)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "first", out.Messages[0].Content)
	assert.Equal(t, "second", out.Messages[1].Content)
}

func TestManager_BypassesHookAfterError(t *testing.T) {
	fh := &failingHook{}
	m := NewManager(fh)
	f := frame.Initial("hi", 10)

	m.BeforeContextAssembly(context.Background(), f)
	m.BeforeContextAssembly(context.Background(), f)

	assert.Equal(t, 1, fh.calls, "hook is bypassed for the remainder of the run after its first error")
}

func TestManager_BeforeToolExecution_PropagatesInterruptError(t *testing.T) {
	m := NewManager(interruptingHook{})
	f := frame.Initial("hi", 10)

	_, err := m.BeforeToolExecution(context.Background(), f, tool.Call{ID: "1", Name: "memo_store"})
	require.Error(t, err)
	var interrupt *InterruptError
	assert.True(t, errors.As(err, &interrupt))
	assert.Equal(t, "needs approval", interrupt.Reason)
}

func TestManager_NoHooks_IsIdentity(t *testing.T) {
	m := NewManager()
	f := frame.Initial("hi", 10)
	out := m.BeforeIterationStart(context.Background(), f)
	assert.Equal(t, f.Messages, out.Messages)
}

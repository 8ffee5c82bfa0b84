package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StartMarksThreadActive(t *testing.T) {
	r := NewRegistry()
	ctx := r.Start(context.Background(), "thread-1")
	defer r.Finish("thread-1")

	assert.True(t, r.Active("thread-1"))
	assert.Contains(t, r.Running(), "thread-1")
	assert.NoError(t, ctx.Err())
}

func TestRegistry_CancelStopsTheDerivedContext(t *testing.T) {
	r := NewRegistry()
	ctx := r.Start(context.Background(), "thread-1")
	defer r.Finish("thread-1")

	require.NoError(t, r.Cancel("thread-1"))
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestRegistry_CancelUnknownThreadReturnsError(t *testing.T) {
	r := NewRegistry()
	err := r.Cancel("does-not-exist")
	assert.Error(t, err)
}

func TestRegistry_FinishRemovesEntry(t *testing.T) {
	r := NewRegistry()
	r.Start(context.Background(), "thread-1")
	r.Finish("thread-1")

	assert.False(t, r.Active("thread-1"))
	assert.Empty(t, r.Running())
}

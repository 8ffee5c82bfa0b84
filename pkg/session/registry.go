// Package session tracks in-flight engine threads so a host process can
// cancel a running thread by ID without holding a reference to its
// context.CancelFunc itself. Grounded on the teacher's pkg/session/manager.go:
// same sync.RWMutex-guarded map-by-ID shape, rescoped from owning full
// conversation state (tarsy's Session held the message history itself)
// down to tracking only what the engine doesn't already journal — a
// thread is live exactly as long as it has an entry here, and its
// conversation state lives in the event journal instead (pkg/journal),
// not in this package.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Entry describes one in-flight thread.
type Entry struct {
	ThreadID  string
	StartedAt time.Time
	Cancel    context.CancelFunc
}

// Registry tracks the cancel functions of currently-running threads.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Start registers threadID as running and returns a context derived from
// ctx that Cancel(threadID) will cancel. Replaces any prior entry for the
// same threadID (a Resume of an already-tracked thread takes over it).
func (r *Registry) Start(ctx context.Context, threadID string) context.Context {
	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.entries[threadID] = &Entry{ThreadID: threadID, StartedAt: time.Now(), Cancel: cancel}
	r.mu.Unlock()

	return runCtx
}

// Finish removes threadID from the registry once its run has ended,
// whether by completion, error, or cancellation.
func (r *Registry) Finish(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, threadID)
}

// Cancel cancels the running thread's context. Returns an error if
// threadID is not currently tracked as running.
func (r *Registry) Cancel(threadID string) error {
	r.mu.RLock()
	entry, ok := r.entries[threadID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("session: thread %q is not running", threadID)
	}
	entry.Cancel()
	return nil
}

// Active reports whether threadID currently has a run in progress.
func (r *Registry) Active(threadID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[threadID]
	return ok
}

// Running returns the thread IDs currently tracked as in-flight.
func (r *Registry) Running() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

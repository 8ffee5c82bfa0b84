package journal

import "sync"

// Subscribers is an in-process event fan-out: every phase emits events
// consumed by the journal, the hook manager, and stream subscribers (spec
// §2). It is grounded on the subscribe/broadcast mechanics of the
// teacher's events.ConnectionManager, stripped of the WebSocket/Postgres
// transport that module has no use for here (see DESIGN.md).
type Subscribers struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Event
	next int
}

// NewSubscribers creates an empty broadcaster.
func NewSubscribers() *Subscribers {
	return &Subscribers{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers a buffered channel for every event published under
// threadID. Call the returned function to unsubscribe and release the
// channel.
func (s *Subscribers) Subscribe(threadID string, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	s.mu.Lock()
	if s.subs[threadID] == nil {
		s.subs[threadID] = make(map[int]chan Event)
	}
	id := s.next
	s.next++
	s.subs[threadID][id] = ch
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if m, ok := s.subs[threadID]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(s.subs, threadID)
			}
		}
		close(ch)
	}
	return ch, unsubscribe
}

// Publish fans e out to every subscriber of e.ThreadID. Slow subscribers
// are dropped-from rather than allowed to block the publisher: a full
// channel simply skips that subscriber for this event (event delivery to
// stream subscribers is best-effort; the journal remains authoritative).
func (s *Subscribers) Publish(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subs[e.ThreadID] {
		select {
		case ch <- e:
		default:
		}
	}
}

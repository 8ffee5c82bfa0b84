package memory

import (
	"context"
	"sort"
)

// Promote moves every L1 entry at or above the promotion threshold into
// L2 (inserted in importance order), then compresses L2 overflow into L3
// summaries. Idempotent: re-running with no new L1 entries changes
// nothing, since already-promoted entries are no longer present in L1
// (spec §4.2.1).
func (s *Store) Promote() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var remainingL1 []string
	for _, id := range s.l1 {
		e, ok := s.entries[id]
		if !ok {
			continue
		}
		if e.Importance >= s.promoteAt {
			s.promoteToL2Locked(id)
			continue
		}
		remainingL1 = append(remainingL1, id)
	}
	s.l1 = remainingL1

	s.compressL2OverflowLocked()
}

// PromoteAsync performs the same L1→L2→L3 work as Promote, then embeds
// any newly produced L3 summaries into the external vector index (spec
// §4.2.1: promote_async is the authoritative promotion path per spec §9's
// resolution of the promote_tasks/promote_tasks_async ambiguity).
func (s *Store) PromoteAsync(ctx context.Context) error {
	s.Promote()

	if s.vectorIndex == nil {
		return nil
	}

	s.mu.Lock()
	l3 := append([]string(nil), s.l3...)
	s.mu.Unlock()

	for _, id := range l3 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		e, ok := s.Get(id)
		if !ok {
			continue
		}
		if err := s.vectorIndex.Embed(e.ID, e.Content); err != nil {
			return err
		}
	}
	return nil
}

// promoteToL2Locked moves id from L1 bookkeeping (caller already excluded
// it from remainingL1) into L2, keeping L2 sorted ascending by importance
// so the lowest-importance entry is always at index 0 for eviction.
func (s *Store) promoteToL2Locked(id string) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	e.Tier = TierL2
	s.entries[id] = e
	s.l2 = append(s.l2, id)
	sort.Slice(s.l2, func(i, j int) bool {
		return s.entries[s.l2[i]].Importance < s.entries[s.l2[j]].Importance
	})
}

// compressL2OverflowLocked compresses only the L2 entries beyond
// l2Capacity (the lowest-importance ones, since l2 is kept sorted
// ascending) into L3 summaries via the configured Compressor — this is
// what keeps L2 bounded while still giving overflowing items a chance to
// survive as a summary rather than being dropped outright (spec §4.2.1:
// Compressor.compress contract). Caller must hold s.mu.
func (s *Store) compressL2OverflowLocked() {
	if len(s.l2) <= s.l2Capacity {
		return
	}

	overflowCount := len(s.l2) - s.l2Capacity
	overflowIDs := s.l2[:overflowCount]
	s.l2 = s.l2[overflowCount:]

	items := make([]Entry, 0, len(overflowIDs))
	for _, id := range overflowIDs {
		if e, ok := s.entries[id]; ok {
			items = append(items, e)
		}
	}

	targetTokens := 0
	for _, it := range items {
		targetTokens += EstimateTokens(it.Content)
	}
	targetTokens = targetTokens / 2 // compression halves the token footprint by default

	summaries, err := s.compressor.Compress(items, targetTokens)
	if err == nil {
		for _, sum := range summaries {
			sum.Tier = TierL3
			s.entries[sum.ID] = sum
			if !contains(s.l3, sum.ID) {
				s.l3 = append(s.l3, sum.ID)
			}
		}
	}

	for _, id := range overflowIDs {
		s.purgeIfUnreferenced(id)
	}

	if len(s.l3) > DefaultL3Capacity {
		overflow := len(s.l3) - DefaultL3Capacity
		for _, id := range s.l3[:overflow] {
			s.purgeIfUnreferenced(id)
		}
		s.l3 = s.l3[overflow:]
	}
}

package memory

import "sync"

const (
	DefaultL1Capacity           = 50
	DefaultL2Capacity           = 100
	DefaultL2PromotionThreshold = 0.6
	DefaultL3Capacity           = 50
)

// VectorIndex is the external, unbounded L4 backend (spec §3.3: "Vector
// index, unbounded (external backend)"). Concrete vector-store adapters
// are out of scope for this module (spec §1); callers inject one.
type VectorIndex interface {
	Embed(id string, content string) error
}

// Store is the single arena owning entry bytes by ID; tiers below hold
// only IDs. This is the concrete fix for the unbounded-index defect spec
// §9 calls out: when Evict removes the last tier reference to an ID, the
// arena entry is purged too.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry

	l1 []string // FIFO ring, oldest first
	l2 []string // priority order maintained by importance, ascending
	l3 []string

	l1Capacity int
	l2Capacity int

	scorer      ImportanceScorer
	compressor  Compressor
	promoteAt   float64
	vectorIndex VectorIndex
}

// Option configures a Store at construction.
type Option func(*Store)

// WithCapacities overrides the L1/L2 ring/queue sizes.
func WithCapacities(l1, l2 int) Option {
	return func(s *Store) {
		if l1 > 0 {
			s.l1Capacity = l1
		}
		if l2 > 0 {
			s.l2Capacity = l2
		}
	}
}

// WithPromotionThreshold overrides the L1→L2 importance cutoff.
func WithPromotionThreshold(threshold float64) Option {
	return func(s *Store) { s.promoteAt = threshold }
}

// WithVectorIndex wires an external L4 backend; without one, PromoteAsync
// skips the embedding step and only performs L2→L3 compression.
func WithVectorIndex(vi VectorIndex) Option {
	return func(s *Store) { s.vectorIndex = vi }
}

// NewStore builds a Store with the spec's default capacities and rule-based
// scorer/compressor, customizable via Option.
func NewStore(scorer ImportanceScorer, compressor Compressor, opts ...Option) *Store {
	if scorer == nil {
		scorer = NewDefaultImportanceScorer()
	}
	if compressor == nil {
		compressor = NewDefaultCompressor()
	}
	s := &Store{
		entries:    make(map[string]Entry),
		l1Capacity: DefaultL1Capacity,
		l2Capacity: DefaultL2Capacity,
		promoteAt:  DefaultL2PromotionThreshold,
		scorer:     scorer,
		compressor: compressor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a new raw entry to L1, scoring its importance and evicting
// the oldest L1 entry if the ring is full.
func (s *Store) Append(e Entry) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Tier = TierL1
	if e.Importance == 0 {
		e.Importance = s.scorer.Score(e)
	}
	s.entries[e.ID] = e
	s.l1 = append(s.l1, e.ID)

	if len(s.l1) > s.l1Capacity {
		evictedID := s.l1[0]
		s.l1 = s.l1[1:]
		s.purgeIfUnreferenced(evictedID)
	}
	return e
}

// Get returns an entry by ID if it is still referenced by any tier.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// L1IDs, L2IDs, L3IDs return the current contents of each tier, oldest/
// lowest-importance first respectively.
func (s *Store) L1IDs() []string { return s.snapshot(s.l1) }
func (s *Store) L2IDs() []string { return s.snapshot(s.l2) }
func (s *Store) L3IDs() []string { return s.snapshot(s.l3) }

func (s *Store) snapshot(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), ids...)
}

// purgeIfUnreferenced removes id from the arena once no tier slice
// mentions it. Caller must hold s.mu.
func (s *Store) purgeIfUnreferenced(id string) {
	if contains(s.l1, id) || contains(s.l2, id) || contains(s.l3, id) {
		return
	}
	delete(s.entries, id)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

package memory

// ImportanceScorer assigns an importance in [0,1] to an entry, driving L1
// → L2 promotion eligibility (spec §3.3). Pluggable so a caller can
// substitute a learned or task-specific scorer.
type ImportanceScorer interface {
	Score(e Entry) float64
}

// DefaultImportanceScorer implements the rule-based table of spec §3.3:
// error → 0.9, planning → 0.8, tool-result → 0.75, default → 0.4.
// Grounded on the named-registry-of-implementations pattern in the
// teacher's pkg/masking/service.go, narrowed here to a simple lookup
// table since no registration/discovery is needed for four fixed rules.
type DefaultImportanceScorer struct {
	rules map[string]float64
}

// NewDefaultImportanceScorer builds the scorer with spec's default rule
// table. The returned value can be mutated via SetRule for callers who
// want to add or override kinds without replacing the whole scorer.
func NewDefaultImportanceScorer() *DefaultImportanceScorer {
	return &DefaultImportanceScorer{
		rules: map[string]float64{
			"error":       0.9,
			"planning":    0.8,
			"tool_result": 0.75,
		},
	}
}

// SetRule overrides (or adds) the importance assigned to entries of the
// given kind.
func (s *DefaultImportanceScorer) SetRule(kind string, importance float64) {
	s.rules[kind] = importance
}

// Score returns the rule-table importance for e.Kind, or 0.4 (spec's
// default fallback) when the kind has no explicit rule. An IsError entry
// always scores 0.9 regardless of Kind, since error records must survive
// compression verbatim (spec §4.2.1).
func (s *DefaultImportanceScorer) Score(e Entry) float64 {
	if e.IsError {
		return 0.9
	}
	if v, ok := s.rules[e.Kind]; ok {
		return v
	}
	return 0.4
}

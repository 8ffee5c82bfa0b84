// Package assembler implements the priority-budget context builder of C2:
// it composes named, prioritized text components into a single block
// under a hard token budget, recording exactly what it did with each
// component. Grounded on the ordered strings.Builder section composition
// in the teacher's pkg/agent/prompt.PromptBuilder
// (buildInvestigationUserMessage), generalized from a fixed section order
// into a priority-then-insertion queue with truncation and exclusion.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/recursiveagent/ttcore/pkg/frame"
	"github.com/recursiveagent/ttcore/pkg/memory"
)

// Priority bands recommended by spec §3.4.
const (
	PriorityCritical = 100
	PriorityHigh     = 90
	PriorityMedium   = 70
	PriorityLow      = 50
	PriorityOptional = 30
)

// DefaultTokenBufferRatio is the safety margin applied to the budget
// before the assembler falls back to truncation/exclusion (spec §6.6).
const DefaultTokenBufferRatio = 0.9

// Component is a named, prioritized chunk of text destined for the LLM
// context (spec §3.4).
type Component struct {
	Name         string
	Content      string
	Priority     int
	Truncatable  bool
	EstimatedTok int // cached estimate; computed from Content if zero
}

func (c Component) tokens() int {
	if c.EstimatedTok > 0 {
		return c.EstimatedTok
	}
	return memory.EstimateTokens(c.Content)
}

// ContextOverflowError is raised when critical components alone exceed
// the budget (spec §4.2.2 invariant: critical components are never
// truncated or excluded).
type ContextOverflowError struct {
	CriticalTokens int
	Budget         int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("assembler: critical components require %d tokens, exceeding budget %d",
		e.CriticalTokens, e.Budget)
}

// Assembler builds context snapshots from a set of components.
type Assembler struct {
	MaxTokens    int
	BufferRatio  float64
}

// NewAssembler returns an Assembler with the given hard token budget and
// spec's default buffer ratio.
func NewAssembler(maxTokens int) *Assembler {
	return &Assembler{MaxTokens: maxTokens, BufferRatio: DefaultTokenBufferRatio}
}

// Build implements the exact 4-step algorithm of spec §4.2.2.
func (a *Assembler) Build(components []Component) (string, frame.ContextMetadata, error) {
	budget := int(float64(a.MaxTokens) * a.effectiveBufferRatio())

	ordered := stablePrioritySort(components)

	total := 0
	for _, c := range ordered {
		total += c.tokens()
	}

	// Step 2: everything fits — concatenate as-is.
	if total <= budget {
		decisions := make([]frame.ComponentDecision, 0, len(ordered))
		var b strings.Builder
		for i, c := range ordered {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(c.Content)
			decisions = append(decisions, frame.ComponentDecision{
				Name: c.Name, Included: true, FinalTokens: c.tokens(), Reason: "fits within budget",
			})
		}
		return b.String(), frame.ContextMetadata{TotalTokens: total, Decisions: decisions}, nil
	}

	// Step 3: greedy inclusion with truncation/exclusion.
	criticalTokens := 0
	for _, c := range ordered {
		if c.Priority >= PriorityCritical {
			criticalTokens += c.tokens()
		}
	}
	if criticalTokens > budget {
		return "", frame.ContextMetadata{}, &ContextOverflowError{CriticalTokens: criticalTokens, Budget: budget}
	}

	var b strings.Builder
	decisions := make([]frame.ComponentDecision, 0, len(ordered))
	used := 0
	wroteAny := false

	for _, c := range ordered {
		remaining := budget - used
		tok := c.tokens()

		switch {
		case tok <= remaining:
			if wroteAny {
				b.WriteString("\n\n")
			}
			b.WriteString(c.Content)
			wroteAny = true
			used += tok
			decisions = append(decisions, frame.ComponentDecision{
				Name: c.Name, Included: true, FinalTokens: tok, Reason: "fits within remaining budget",
			})

		case c.Priority >= PriorityCritical:
			// Critical components are never truncated or excluded; having
			// passed the aggregate check above, they must still fit here
			// because they are processed first in priority order.
			if wroteAny {
				b.WriteString("\n\n")
			}
			b.WriteString(c.Content)
			wroteAny = true
			used += tok
			decisions = append(decisions, frame.ComponentDecision{
				Name: c.Name, Included: true, FinalTokens: tok, Reason: "critical: included over budget",
			})

		case c.Truncatable && remaining > 0:
			truncated := truncateToTokens(c.Content, remaining)
			if wroteAny {
				b.WriteString("\n\n")
			}
			b.WriteString(truncated)
			wroteAny = true
			finalTok := memory.EstimateTokens(truncated)
			used += finalTok
			decisions = append(decisions, frame.ComponentDecision{
				Name: c.Name, Included: true, Truncated: true, FinalTokens: finalTok,
				Reason: "truncated to fit remaining budget",
			})

		default:
			decisions = append(decisions, frame.ComponentDecision{
				Name: c.Name, Included: false, Reason: "excluded: insufficient remaining budget",
			})
		}
	}

	return b.String(), frame.ContextMetadata{TotalTokens: used, Decisions: decisions}, nil
}

func (a *Assembler) effectiveBufferRatio() float64 {
	if a.BufferRatio <= 0 {
		return DefaultTokenBufferRatio
	}
	return a.BufferRatio
}

// stablePrioritySort orders components priority-descending,
// insertion-preserving among ties (spec §4.2.2).
func stablePrioritySort(components []Component) []Component {
	ordered := append([]Component(nil), components...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return ordered
}

// truncateToTokens returns a prefix of content sized to roughly
// budgetTokens, with an explicit truncation marker appended.
func truncateToTokens(content string, budgetTokens int) string {
	const marker = " …[truncated]"
	budgetChars := budgetTokens * 4
	if budgetChars <= 0 {
		return marker
	}
	if len(content) <= budgetChars {
		return content
	}
	return content[:budgetChars] + marker
}

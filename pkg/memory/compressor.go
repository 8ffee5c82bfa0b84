package memory

import (
	"fmt"
	"sort"
	"strings"
)

// Compressor turns a batch of L2 entries into L3 summaries whose combined
// token count fits target_tokens (spec §4.2.1). Grounded on the shape of
// the teacher's MCP-result summarization prompt pair
// (pkg/agent/prompt/builder.go's BuildMCPSummarizationSystemPrompt /
// BuildMCPSummarizationUserPrompt) generalized from "ask the LLM to
// shrink one big tool result" to "apply an in-process strategy across
// promoted memory entries." It is an interface so an LLM-backed
// implementation can be substituted without touching promotion code.
type Compressor interface {
	Compress(items []Entry, targetTokens int) ([]Entry, error)
}

// DefaultCompressor preserves every error verbatim, at least one
// representative of each distinct tool name, and the most recent item by
// timestamp; everything else is concatenated into one truncated summary
// entry sized to whatever of the budget remains.
type DefaultCompressor struct{}

// NewDefaultCompressor returns the in-process, non-LLM compressor.
func NewDefaultCompressor() *DefaultCompressor {
	return &DefaultCompressor{}
}

func (c *DefaultCompressor) Compress(items []Entry, targetTokens int) ([]Entry, error) {
	if len(items) == 0 {
		return nil, nil
	}

	preserved := make(map[string]Entry)
	toolRepresentative := make(map[string]Entry)
	var mostRecent Entry
	haveMostRecent := false

	for _, it := range items {
		if it.IsError {
			preserved[it.ID] = it
		}
		if it.ToolName != "" {
			if _, ok := toolRepresentative[it.ToolName]; !ok {
				toolRepresentative[it.ToolName] = it
			}
		}
		if !haveMostRecent || it.Timestamp.After(mostRecent.Timestamp) {
			mostRecent = it
			haveMostRecent = true
		}
	}
	if haveMostRecent {
		preserved[mostRecent.ID] = mostRecent
	}
	for _, rep := range toolRepresentative {
		preserved[rep.ID] = rep
	}

	result := make([]Entry, 0, len(preserved)+1)
	usedTokens := 0
	var summarized []Entry

	for _, it := range items {
		if p, ok := preserved[it.ID]; ok {
			summary := Entry{
				ID:         p.ID,
				Tier:       TierL3,
				Kind:       p.Kind,
				ToolName:   p.ToolName,
				Content:    p.Content,
				IsError:    p.IsError,
				Importance: p.Importance,
				Timestamp:  p.Timestamp,
			}
			result = append(result, summary)
			usedTokens += EstimateTokens(summary.Content)
			continue
		}
		summarized = append(summarized, it)
	}

	if len(summarized) > 0 {
		remaining := targetTokens - usedTokens
		if remaining < 0 {
			remaining = 0
		}
		summary := summarizeRemainder(summarized, remaining)
		result = append(result, summary)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// summarizeRemainder concatenates the given entries' content into a
// single L3 entry and truncates it to roughly fit budgetTokens.
func summarizeRemainder(items []Entry, budgetTokens int) Entry {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%s: %s", it.Kind, it.Content)
	}
	text := b.String()

	budgetChars := budgetTokens * 4
	if budgetChars > 0 && len(text) > budgetChars {
		text = text[:budgetChars] + " …[truncated]"
	}

	latest := items[0]
	for _, it := range items {
		if it.Timestamp.After(latest.Timestamp) {
			latest = it
		}
	}

	return Entry{
		ID:        latest.ID + "-summary",
		Tier:      TierL3,
		Kind:      "summary",
		Content:   text,
		Timestamp: latest.Timestamp,
	}
}

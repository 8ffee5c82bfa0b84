package engine

import (
	"fmt"
	"strings"
)

// ResultAnalysis is the lightweight post-tool-batch analysis of spec
// §4.5.1.
type ResultAnalysis struct {
	HasData            bool
	HasErrors          bool
	SuggestsCompletion bool
	CompletenessScore  float64
}

var (
	dataKeywords       = []string{"data", "found", "retrieved", "table", "schema"}
	errorKeywords      = []string{"error", "failed", "exception", "not found"}
	completionKeywords = []string{"complete", "finished", "done", "ready"}
)

// AnalyzeResults implements spec §4.5.1's result_analysis over the
// concatenated text of a tool batch's results.
func AnalyzeResults(text string, anyResultIsError bool) ResultAnalysis {
	lower := strings.ToLower(text)

	a := ResultAnalysis{
		HasData:            containsAny(lower, dataKeywords),
		HasErrors:          containsAny(lower, errorKeywords) || anyResultIsError,
		SuggestsCompletion: containsAny(lower, completionKeywords),
	}

	score := 0.0
	if a.HasData {
		score += 0.3
	}
	if containsAny(lower, dataKeywords) || containsAny(lower, errorKeywords) {
		score += 0.4
	}
	if a.SuggestsCompletion {
		score += 0.5
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	a.CompletenessScore = score
	return a
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// TaskHandler is one link of the feedback-guidance chain (spec §4.5.1).
type TaskHandler interface {
	CanHandle(originalTask string) bool
	GenerateGuidance(originalTask string, analysis ResultAnalysis, depth int) string // "" = no guidance
}

// HandlerChain tries each handler in order; the first one that can
// handle the task and returns non-empty guidance wins. If none do, the
// embedded DefaultTaskHandler supplies guidance so every batch gets a
// feedback message (spec §4.5.1: "a default handler produces one of
// three messages").
type HandlerChain struct {
	Handlers []TaskHandler
	Default  TaskHandler
}

// NewHandlerChain builds a chain ending in DefaultTaskHandler.
func NewHandlerChain(handlers ...TaskHandler) *HandlerChain {
	return &HandlerChain{Handlers: handlers, Default: DefaultTaskHandler{}}
}

// Guidance returns the first matching handler's non-empty guidance, or
// the default handler's guidance if none matched.
func (c *HandlerChain) Guidance(originalTask string, analysis ResultAnalysis, depth int) string {
	for _, h := range c.Handlers {
		if h.CanHandle(originalTask) {
			if g := h.GenerateGuidance(originalTask, analysis, depth); g != "" {
				return g
			}
		}
	}
	return c.Default.GenerateGuidance(originalTask, analysis, depth)
}

// DefaultTaskHandler implements spec §4.5.1's default: completion
// instruction (suggests_completion or depth ≥ 6), retry instruction
// (has_errors), or continuation instruction otherwise.
type DefaultTaskHandler struct{}

// DefaultCompletionDepth is the depth at which the default handler
// switches to urging completion regardless of analysis (spec §4.5.1).
const DefaultCompletionDepth = 6

func (DefaultTaskHandler) CanHandle(string) bool { return true }

func (DefaultTaskHandler) GenerateGuidance(_ string, analysis ResultAnalysis, depth int) string {
	switch {
	case analysis.SuggestsCompletion || depth >= DefaultCompletionDepth:
		return "The tool results suggest the task may be complete. If you have enough information, provide your final answer now."
	case analysis.HasErrors:
		return "The previous tool call(s) reported an error. Consider adjusting your approach and retrying, or choose a different tool."
	default:
		return fmt.Sprintf("Continue working toward the task (iteration depth %d). Use the tool results above to decide your next step.", depth)
	}
}

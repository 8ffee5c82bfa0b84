package engine

import (
	"fmt"

	"github.com/recursiveagent/ttcore/pkg/frame"
)

// Default thresholds (spec §6.6).
const (
	DefaultRecursionDuplicateThreshold = 3
	DefaultRecursionLoopWindow         = 5
	DefaultRecursionErrorRateThreshold = 0.5
	DefaultRecursionWarningRatio       = 0.8
)

// TerminationReason names the predicate that fired (spec §3, recursion_terminated content).
type TerminationReason string

const (
	ReasonMaxIterations   TerminationReason = "max_iterations"
	ReasonDuplicateTools  TerminationReason = "duplicate_tools"
	ReasonLoopDetected    TerminationReason = "loop_detected"
	ReasonErrorThreshold  TerminationReason = "error_threshold"
)

// RecursionMonitor implements Phase 0: the four termination predicates of
// spec §4.5, plus the 80%-of-firing soft-warning rule. Grounded on the
// teacher's agent.IterationState (pkg/agent/iteration.go), which tracked
// a single "should abort on timeouts" predicate over a failure window;
// generalized here to four independent predicates, each able to fire or
// soft-warn.
type RecursionMonitor struct {
	DuplicateThreshold int
	LoopWindow         int
	ErrorRateThreshold float64
	WarningRatio       float64
}

// NewRecursionMonitor builds a monitor with spec-default thresholds.
func NewRecursionMonitor() *RecursionMonitor {
	return &RecursionMonitor{
		DuplicateThreshold: DefaultRecursionDuplicateThreshold,
		LoopWindow:         DefaultRecursionLoopWindow,
		ErrorRateThreshold: DefaultRecursionErrorRateThreshold,
		WarningRatio:       DefaultRecursionWarningRatio,
	}
}

// Verdict is Phase 0's outcome: either termination (Fired) or a set of
// soft warnings to append as system messages.
type Verdict struct {
	Fired    bool
	Reason   TerminationReason
	Warnings []string
}

// Evaluate checks every predicate for firing before it considers any
// soft warnings: a later predicate that fires must still terminate the
// run even when an earlier one only came close, so all four firing
// checks run first and warnings are only collected once none of them
// fired.
func (m *RecursionMonitor) Evaluate(f frame.ExecutionFrame) Verdict {
	if f.MaxIterations <= 0 || f.Depth >= f.MaxIterations {
		return Verdict{Fired: true, Reason: ReasonMaxIterations}
	}

	threshold := m.duplicateThreshold()
	dupesFired, dupesClose := duplicateTail(f.ToolCallHistory, threshold)
	if dupesFired {
		return Verdict{Fired: true, Reason: ReasonDuplicateTools}
	}

	window := m.loopWindow()
	loopFired, loopClose := periodicRepetition(f.LastOutputs, window)
	if loopFired {
		return Verdict{Fired: true, Reason: ReasonLoopDetected}
	}

	rate := errorRate(f.ErrorCount, f.Depth)
	errThreshold := m.errorRateThreshold()
	if rate >= errThreshold {
		return Verdict{Fired: true, Reason: ReasonErrorThreshold}
	}

	warningRatio := m.warningRatio()
	var warnings []string
	if f.MaxIterations > 0 {
		ratio := float64(f.Depth) / float64(f.MaxIterations)
		if ratio >= warningRatio && ratio < 1 {
			warnings = append(warnings, fmt.Sprintf(
				"approaching iteration limit: %d/%d iterations used", f.Depth, f.MaxIterations,
			))
		}
	}
	if dupesClose {
		warnings = append(warnings, "tool call history is approaching the duplicate-call limit")
	}
	if loopClose {
		warnings = append(warnings, "recent outputs are approaching a repetitive pattern")
	}
	if rate >= errThreshold*warningRatio {
		warnings = append(warnings, fmt.Sprintf(
			"error rate %.2f is approaching the termination threshold %.2f", rate, errThreshold,
		))
	}

	return Verdict{Warnings: warnings}
}

func (m *RecursionMonitor) duplicateThreshold() int {
	if m.DuplicateThreshold > 0 {
		return m.DuplicateThreshold
	}
	return DefaultRecursionDuplicateThreshold
}

func (m *RecursionMonitor) loopWindow() int {
	if m.LoopWindow > 0 {
		return m.LoopWindow
	}
	return DefaultRecursionLoopWindow
}

func (m *RecursionMonitor) errorRateThreshold() float64 {
	if m.ErrorRateThreshold > 0 {
		return m.ErrorRateThreshold
	}
	return DefaultRecursionErrorRateThreshold
}

func (m *RecursionMonitor) warningRatio() float64 {
	if m.WarningRatio > 0 {
		return m.WarningRatio
	}
	return DefaultRecursionWarningRatio
}

// duplicateTail reports whether the last n entries of history are all
// identical (fired) or the last n-1 are (close to firing).
func duplicateTail(history []string, n int) (fired, close bool) {
	if n <= 0 || len(history) < n {
		if n > 0 && len(history) == n-1 && n > 1 && allSame(history) {
			return false, true
		}
		return false, false
	}
	tail := history[len(history)-n:]
	if allSame(tail) {
		return true, false
	}
	if n > 1 {
		shorter := history[len(history)-(n-1):]
		if allSame(shorter) {
			return false, true
		}
	}
	return false, false
}

func allSame(xs []string) bool {
	if len(xs) == 0 {
		return false
	}
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

// periodicRepetition reports whether the trailing window of outputs
// contains a repetition with period ≤ 2 (e.g. A,B,A,B or A,A,A), or is
// one observation away from doing so.
func periodicRepetition(outputs []string, window int) (fired, close bool) {
	if window <= 0 || len(outputs) > window {
		window = min(window, len(outputs))
	}
	tail := outputs
	if len(outputs) > window && window > 0 {
		tail = outputs[len(outputs)-window:]
	}
	if hasPeriodicRepeat(tail) {
		return true, false
	}
	if len(tail) >= 3 && hasPeriodicRepeat(tail[:len(tail)-1]) {
		return false, true
	}
	return false, false
}

func hasPeriodicRepeat(xs []string) bool {
	n := len(xs)
	for period := 1; period <= 2; period++ {
		if n < period*2 {
			continue
		}
		matches := true
		for i := 0; i < n-period; i++ {
			if xs[i] != xs[i+period] {
				matches = false
				break
			}
		}
		if matches {
			return true
		}
	}
	return false
}

func errorRate(errCount, depth int) float64 {
	return float64(errCount) / float64(depth+1)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

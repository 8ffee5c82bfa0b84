package journal

import (
	"encoding/json"

	"github.com/recursiveagent/ttcore/pkg/frame"
)

// Reconstructor folds a thread's event history back into an ExecutionFrame
// (spec §4.1: Reconstructor.reconstruct). It is the read path that backs
// crash recovery and resume().
type Reconstructor struct {
	// Compressor, when non-nil, is applied to any step whose strategy was
	// externalized, enabling reconstruct_with_new_strategy's post-hoc
	// policy upgrades (spec §4.1). The reconstructor only needs the
	// narrow shape it uses here, so it is expressed as a function type
	// rather than importing pkg/memory, keeping C1 independent of C2.
	Recompress func(summary string) string
}

// NewReconstructor returns a Reconstructor with no recompression strategy.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{}
}

// Reconstruct folds events in order into a single frame plus metadata
// about the fold (current depth/phase at the point folding stopped).
func (r *Reconstructor) Reconstruct(events []Event) (frame.ExecutionFrame, error) {
	return r.reconstructUpTo(events, -1)
}

// ReconstructAtIteration stops folding at the n-th recursion boundary
// (spec §4.1: reconstruct_at_iteration).
func (r *Reconstructor) ReconstructAtIteration(events []Event, n int) (frame.ExecutionFrame, error) {
	return r.reconstructUpTo(events, n)
}

// ReconstructWithNewStrategy re-runs summary compression with a different
// compressor while otherwise folding identically (spec §4.1:
// reconstruct_with_new_strategy).
func (r *Reconstructor) ReconstructWithNewStrategy(events []Event, recompress func(string) string) (frame.ExecutionFrame, error) {
	old := r.Recompress
	r.Recompress = recompress
	defer func() { r.Recompress = old }()
	return r.Reconstruct(events)
}

// recursionBoundaryMetadata is the shape reconstructUpTo expects inside an
// EventRecursion's Metadata, set by the engine when it emits that event.
type recursionBoundaryMetadata struct {
	Messages []frame.Message `json:"messages"`
}

func (r *Reconstructor) reconstructUpTo(events []Event, stopAfterIteration int) (frame.ExecutionFrame, error) {
	var current frame.ExecutionFrame
	started := false
	boundary := 0

	for _, e := range events {
		if !started {
			current = frame.Initial("", 0)
			current.FrameID = e.FrameID
			current.Depth = e.Depth
			started = true
		}

		switch e.Type {
		case EventIterationStart:
			if msgs := decodeRecursionMessages(e); msgs != nil {
				current.Messages = msgs
			}
			if mi := decodeMaxIterations(e); mi > 0 {
				current.MaxIterations = mi
			}
		case EventPhaseStart, EventPhaseEnd, EventContextAssemblyStart:
			current = current.WithPhase(frame.PhaseContextAssembly)
		case EventContextAssemblyComplete:
			meta := frame.ContextMetadata{}
			current = current.WithContext(e.Content, meta)
		case EventLLMComplete:
			current = current.WithLLMResponse(e.Content, current.LLMToolCalls)
		case EventLLMToolCalls:
			var calls []frame.ToolCall
			if len(e.Metadata) > 0 {
				if raw, ok := e.Metadata["tool_calls"]; ok {
					calls = decodeToolCalls(raw)
				}
			}
			current = current.WithLLMResponse(current.LLMResponse, calls)
		case EventToolResult, EventToolError:
			tr := decodeToolResult(e)
			current = current.WithToolResults(append(current.ToolResults, tr), tr.IsError)
		case EventRecursion:
			boundary++
			if stopAfterIteration >= 0 && boundary > stopAfterIteration {
				return current, nil
			}
			msgs := decodeRecursionMessages(e)
			current = current.NextFrame(msgs)
		case EventRecursionTerminated, EventMaxIterationsReached:
			current = current.WithPhase(frame.PhaseError)
		case EventAgentFinish:
			current = current.WithPhase(frame.PhaseCompleted)
		case EventError:
			current = current.WithPhase(frame.PhaseError)
		}
	}

	if r.Recompress != nil && current.ContextSnapshot != "" {
		current = current.WithContext(r.Recompress(current.ContextSnapshot), current.ContextMetadata)
	}

	return current, nil
}

func decodeToolCalls(raw any) []frame.ToolCall {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var calls []frame.ToolCall
	if err := json.Unmarshal(data, &calls); err != nil {
		return nil
	}
	return calls
}

func decodeToolResult(e Event) frame.ToolResult {
	tr := frame.ToolResult{
		Content: e.Content,
		IsError: e.Type == EventToolError,
	}
	if v, ok := e.Metadata["tool_call_id"]; ok {
		tr.ToolCallID = toStr(v)
	}
	if v, ok := e.Metadata["error_kind"]; ok {
		tr.ErrorKind = toStr(v)
	}
	return tr
}

func decodeRecursionMessages(e Event) []frame.Message {
	raw, ok := e.Metadata["messages"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var msgs []frame.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil
	}
	return msgs
}

func decodeMaxIterations(e Event) int {
	v, ok := e.Metadata["max_iterations"]
	if !ok {
		return 0
	}
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return 0
	}
	return n
}

func toStr(v any) string {
	s, _ := v.(string)
	return s
}

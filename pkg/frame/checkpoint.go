package frame

import (
	"encoding/json"
	"fmt"
)

// CheckpointSchemaVersion is bumped whenever the wire shape of a
// checkpoint changes in a way old readers cannot ignore.
const CheckpointSchemaVersion = 1

// checkpointEnvelope is the self-describing, versioned wrapper spec §4.1
// requires from to_checkpoint/from_checkpoint. Readers ignore unknown
// fields encoded in the frame payload (spec §6.5 forward-compatibility).
type checkpointEnvelope struct {
	SchemaVersion int             `json:"schema_version"`
	Frame         json.RawMessage `json:"frame"`
}

// wireFrame is the JSON projection of ExecutionFrame. It exists separately
// from ExecutionFrame so that field renames on the in-memory type never
// change the wire format without an explicit version bump.
type wireFrame struct {
	FrameID         string            `json:"frame_id"`
	ParentFrameID   string            `json:"parent_frame_id"`
	Depth           int               `json:"depth"`
	Phase           Phase             `json:"phase"`
	Messages        []Message         `json:"messages"`
	ContextSnapshot string            `json:"context_snapshot"`
	ContextMetadata ContextMetadata   `json:"context_metadata"`
	LLMResponse     string            `json:"llm_response"`
	LLMToolCalls    []ToolCall        `json:"llm_tool_calls"`
	ToolResults     []ToolResult      `json:"tool_results"`
	MaxIterations   int               `json:"max_iterations"`
	ToolCallHistory []string          `json:"tool_call_history"`
	ErrorCount      int               `json:"error_count"`
	LastOutputs     []string          `json:"last_outputs"`
	TimestampUnixNS int64             `json:"timestamp_unix_ns"`
}

// ToCheckpoint produces a self-describing, versioned serialization of f
// (spec §4.1: frame.to_checkpoint). The round trip
// FromCheckpoint(f.ToCheckpoint()) == f is a spec-mandated invariant (§8).
func (f ExecutionFrame) ToCheckpoint() ([]byte, error) {
	wf := wireFrame{
		FrameID:         f.FrameID,
		ParentFrameID:   f.ParentFrameID,
		Depth:           f.Depth,
		Phase:           f.Phase,
		Messages:        f.Messages,
		ContextSnapshot: f.ContextSnapshot,
		ContextMetadata: f.ContextMetadata,
		LLMResponse:     f.LLMResponse,
		LLMToolCalls:    f.LLMToolCalls,
		ToolResults:     f.ToolResults,
		MaxIterations:   f.MaxIterations,
		ToolCallHistory: f.ToolCallHistory,
		ErrorCount:      f.ErrorCount,
		LastOutputs:     f.LastOutputs,
		TimestampUnixNS: f.Timestamp.UnixNano(),
	}
	payload, err := json.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("frame: marshal checkpoint payload: %w", err)
	}
	env := checkpointEnvelope{SchemaVersion: CheckpointSchemaVersion, Frame: payload}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("frame: marshal checkpoint envelope: %w", err)
	}
	return out, nil
}

// FromCheckpoint reconstructs an ExecutionFrame from bytes produced by
// ToCheckpoint. Unknown envelope or payload fields are silently ignored.
func FromCheckpoint(data []byte) (ExecutionFrame, error) {
	var env checkpointEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ExecutionFrame{}, fmt.Errorf("frame: unmarshal checkpoint envelope: %w", err)
	}
	if env.SchemaVersion > CheckpointSchemaVersion {
		return ExecutionFrame{}, fmt.Errorf("frame: checkpoint schema version %d is newer than supported %d",
			env.SchemaVersion, CheckpointSchemaVersion)
	}
	var wf wireFrame
	if err := json.Unmarshal(env.Frame, &wf); err != nil {
		return ExecutionFrame{}, fmt.Errorf("frame: unmarshal checkpoint payload: %w", err)
	}
	return ExecutionFrame{
		FrameID:         wf.FrameID,
		ParentFrameID:   wf.ParentFrameID,
		Depth:           wf.Depth,
		Phase:           wf.Phase,
		Messages:        wf.Messages,
		ContextSnapshot: wf.ContextSnapshot,
		ContextMetadata: wf.ContextMetadata,
		LLMResponse:     wf.LLMResponse,
		LLMToolCalls:    wf.LLMToolCalls,
		ToolResults:     wf.ToolResults,
		MaxIterations:   wf.MaxIterations,
		ToolCallHistory: wf.ToolCallHistory,
		ErrorCount:      wf.ErrorCount,
		LastOutputs:     wf.LastOutputs,
		Timestamp:       unixNanoToTime(wf.TimestampUnixNS),
	}, nil
}

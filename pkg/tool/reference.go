package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// EchoTool is a read-only reference tool: it echoes its "text" argument
// back verbatim. Grounded on the teacher's agent.StubToolExecutor
// canned-response pattern, extended with the read-only/confirmation
// flags that stub never needed.
type EchoTool struct{}

func (EchoTool) Definition() Definition {
	return Definition{
		Name:             "echo",
		Description:      "Echoes back the given text. Read-only, side-effect free.",
		ParametersSchema: `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		IsReadOnly:       true,
	}
}

func (EchoTool) Invoke(_ context.Context, arguments string) (Result, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return Result{IsError: true, ErrorKind: "invalid_arguments", Content: fmt.Sprintf("echo: invalid arguments: %s", err)}, nil
	}
	return Result{Content: args.Text}, nil
}

// MemoStore is a side-effecting reference tool: it stores a short memo
// string in process memory, keyed by "key". It requires confirmation,
// demonstrating the HITL path through the orchestrator/hook manager.
type MemoStore struct {
	mu     sync.Mutex
	memos  map[string]string
}

// NewMemoStore returns an empty MemoStore.
func NewMemoStore() *MemoStore {
	return &MemoStore{memos: make(map[string]string)}
}

func (m *MemoStore) Definition() Definition {
	return Definition{
		Name:                 "memo_store",
		Description:          "Stores a memo string under a key. Side-effecting; requires confirmation.",
		ParametersSchema:     `{"type":"object","properties":{"key":{"type":"string"},"value":{"type":"string"}},"required":["key","value"]}`,
		IsReadOnly:           false,
		RequiresConfirmation: true,
	}
}

func (m *MemoStore) Invoke(_ context.Context, arguments string) (Result, error) {
	var args struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return Result{IsError: true, ErrorKind: "invalid_arguments", Content: fmt.Sprintf("memo_store: invalid arguments: %s", err)}, nil
	}
	if args.Key == "" {
		return Result{IsError: true, ErrorKind: "invalid_arguments", Content: "memo_store: key is required"}, nil
	}

	m.mu.Lock()
	m.memos[args.Key] = args.Value
	m.mu.Unlock()

	return Result{Content: fmt.Sprintf("stored memo %q", args.Key)}, nil
}

// Get returns a previously stored memo, for tests and demos.
func (m *MemoStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.memos[key]
	return v, ok
}

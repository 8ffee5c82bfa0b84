// Package tool defines the Tool contract consumed by the orchestrator
// (C3) and two small reference implementations used by tests and the
// cmd/ttcore demo. Concrete tool implementations (filesystem, shell,
// HTTP, MCP) are out of scope for this module (spec §1); see DESIGN.md
// for why the teacher's MCP client is not wired in here.
package tool

import "context"

// Definition describes a tool to the LLM and to the orchestrator's
// classifier (spec §6.4). IsReadOnly/RequiresConfirmation are the fields
// the teacher's agent.ToolDefinition never needed — see DESIGN.md for the
// grounding of this departure.
type Definition struct {
	Name                 string
	Description          string
	ParametersSchema     string // JSON Schema, as a raw string
	IsReadOnly           bool
	RequiresConfirmation bool
}

// Call is a structured tool invocation request produced by the LLM
// (spec §3.5).
type Call struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// Result is the outcome of invoking a tool (spec §3.5).
type Result struct {
	Content         string
	IsError         bool
	ErrorKind       string
	ExecutionTimeMS int64
}

// Tool is the consumed interface of spec §6.4.
type Tool interface {
	Definition() Definition
	Invoke(ctx context.Context, arguments string) (Result, error)
}

// Registry resolves tool names to their Definition/Tool and is the
// fail-safe boundary spec §3.5 requires: an unknown tool defaults to
// non-read-only classification.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools, keyed by name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Definition().Name] = t
	}
	return r
}

// Lookup returns the tool registered under name, if any.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns every registered tool's Definition, for inclusion
// in the LLM provider's tool list.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// IsReadOnly reports whether name is registered as read-only. Unknown
// tools default to false (non-read-only / fail-safe), per spec §3.5.
func (r *Registry) IsReadOnly(name string) bool {
	t, ok := r.tools[name]
	if !ok {
		return false
	}
	return t.Definition().IsReadOnly
}

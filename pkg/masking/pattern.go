// Package masking scrubs secrets out of tool results before they reach
// the LLM or the journal (spec §4.4 hook 7: AfterToolExecution).
// Grounded on the teacher's pkg/masking: the same two-phase strategy
// (structural maskers first, then a regex sweep) and the same
// fail-closed error handling, re-scoped from per-MCP-server masking
// config down to a single rule set applied to every tool result — this
// module has no MCP server registry to key per-server config off of
// (spec §1 Non-goals exclude multi-agent federation wiring).
package masking

import (
	"fmt"
	"regexp"
)

// CompiledRule holds a pre-compiled regex rule with its replacement,
// mirroring the teacher's CompiledPattern (pkg/masking/pattern.go).
type CompiledRule struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// RuleSet is the resolved set of structural maskers and compiled regex
// rules applied, in order, to a tool result.
type RuleSet struct {
	Maskers []Masker
	Rules   []*CompiledRule
}

// builtinPatterns mirrors the teacher's built-in pattern table
// (config.GetBuiltinConfig().MaskingPatterns), trimmed to credential
// shapes that show up in arbitrary tool output rather than
// Kubernetes-manifest-specific fields.
var builtinPatterns = []struct {
	name, pattern, replacement string
}{
	{"aws_access_key", `AKIA[0-9A-Z]{16}`, "***AWS_ACCESS_KEY***"},
	{"bearer_token", `(?i)bearer\s+[a-z0-9._-]{20,}`, "Bearer ***REDACTED***"},
	{"generic_api_key", `(?i)(api[_-]?key|apikey)["':=\s]+[a-z0-9_\-]{16,}`, "$1=***REDACTED***"},
	{"private_key_block", `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`, "***PRIVATE_KEY_REDACTED***"},
	{"password_assignment", `(?i)(password|passwd|pwd)["':=\s]+\S{4,}`, "$1=***REDACTED***"},
}

// DefaultRuleSet compiles the built-in regex patterns plus the
// structural maskers this module registers. An error here means the
// built-in table above itself is broken, since every pattern is a
// compile-time constant.
func DefaultRuleSet() (*RuleSet, error) {
	rs := &RuleSet{Maskers: []Masker{&JSONSecretFieldMasker{}}}
	for _, p := range builtinPatterns {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			return nil, fmt.Errorf("masking: built-in pattern %q: %w", p.name, err)
		}
		rs.Rules = append(rs.Rules, &CompiledRule{Name: p.name, Regex: re, Replacement: p.replacement})
	}
	return rs, nil
}

// Apply runs every structural masker (when it claims the content), then
// every regex rule, against content.
func (rs *RuleSet) Apply(content string) string {
	masked := content
	for _, m := range rs.Maskers {
		if m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}
	for _, rule := range rs.Rules {
		masked = rule.Regex.ReplaceAllString(masked, rule.Replacement)
	}
	return masked
}

package masking

import (
	"encoding/json"
	"strings"
)

// MaskedFieldValue replaces a masked JSON field's value.
const MaskedFieldValue = "***REDACTED***"

// sensitiveFieldNames are JSON object keys whose values are redacted
// wherever they appear, at any nesting depth. Matched case-insensitively
// since tool output field casing varies by source (camelCase API
// responses, snake_case config dumps, SCREAMING_CASE env dumps).
var sensitiveFieldNames = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"api_key":       true,
	"apikey":        true,
	"private_key":   true,
	"client_secret": true,
}

// JSONSecretFieldMasker walks a parsed JSON tool result and redacts the
// value of any object field whose name matches sensitiveFieldNames,
// regardless of depth. Grounded on the teacher's KubernetesSecretMasker
// (pkg/masking/kubernetes_secret.go): same parse-walk-reserialize shape,
// same defensive "return original on parse error" contract, generalized
// from "mask data/stringData under kind: Secret" to "mask any field
// named like a credential" — this module has no Kubernetes resources to
// key off of, so the field-name match takes the place of the kind check.
type JSONSecretFieldMasker struct{}

// Name returns the unique identifier for this masker.
func (m *JSONSecretFieldMasker) Name() string { return "json_secret_field" }

// AppliesTo is a cheap pre-check: only attempt the full parse when the
// content looks like a JSON object or array.
func (m *JSONSecretFieldMasker) AppliesTo(data string) bool {
	trimmed := strings.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// Mask parses data as JSON, redacts sensitive field values at any
// nesting depth, and re-serializes. Returns the original data unchanged
// on any parse or serialization error.
func (m *JSONSecretFieldMasker) Mask(data string) string {
	var parsed any
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return data
	}

	redacted, changed := redactValue(parsed)
	if !changed {
		return data
	}

	out, err := json.Marshal(redacted)
	if err != nil {
		return data
	}
	return string(out)
}

func redactValue(v any) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		changed := false
		for key, val := range t {
			if sensitiveFieldNames[strings.ToLower(key)] {
				if _, isString := val.(string); isString {
					t[key] = MaskedFieldValue
					changed = true
					continue
				}
			}
			if nested, nestedChanged := redactValue(val); nestedChanged {
				t[key] = nested
				changed = true
			}
		}
		return t, changed
	case []any:
		changed := false
		for i, item := range t {
			if nested, nestedChanged := redactValue(item); nestedChanged {
				t[i] = nested
				changed = true
			}
		}
		return t, changed
	default:
		return v, false
	}
}

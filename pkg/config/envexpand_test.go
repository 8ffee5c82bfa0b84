package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: "api_key: ${API_KEY}",
			env:   map[string]string{"API_KEY": "secret123"},
			want:  "api_key: secret123",
		},
		{
			name:  "bare substitution",
			input: "root: $JOURNAL_ROOT",
			env:   map[string]string{"JOURNAL_ROOT": "/var/ttcore"},
			want:  "root: /var/ttcore",
		},
		{
			name:  "multiple substitutions in one line",
			input: "addr: ${HOST}:${PORT}",
			env:   map[string]string{"HOST": "example.com", "PORT": "443"},
			want:  "addr: example.com:443",
		},
		{
			name:  "missing variable expands to empty",
			input: "endpoint: ${MISSING_VAR}",
			env:   map[string]string{},
			want:  "endpoint: ",
		},
		{
			name:  "no substitution when no variables",
			input: "static: value",
			env:   map[string]string{"UNUSED": "value"},
			want:  "static: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(result))
		})
	}
}

func TestExpandEnvWithEmptyInput(t *testing.T) {
	result := ExpandEnv([]byte(""))
	assert.Equal(t, "", string(result))
}

func TestExpandEnvPreservesOriginalWhenNoVariables(t *testing.T) {
	input := "key: value\nnested:\n  field: string\n"
	result := ExpandEnv([]byte(input))
	assert.Equal(t, input, string(result))
}

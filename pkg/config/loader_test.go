package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultMaxContextTokens, cfg.MaxContextTokens)
	assert.Equal(t, "localhost:50051", cfg.LLM.Address)
}

func TestLoad_OverlayOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
max_iterations: 10
max_parallel_read_tools: 2
llm:
  address: "llm-sidecar:9000"
  model: "claude"
`
	writeFile(t, filepath.Join(dir, configFileName), yaml)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 2, cfg.MaxParallelReadTools)
	assert.Equal(t, "llm-sidecar:9000", cfg.LLM.Address)
	assert.Equal(t, "claude", cfg.LLM.Model)
	// Unset fields keep the default.
	assert.Equal(t, DefaultMaxContextTokens, cfg.MaxContextTokens)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TTCORE_LLM_ADDR", "10.0.0.5:50051")
	writeFile(t, filepath.Join(dir, configFileName), `
llm:
  address: "${TTCORE_LLM_ADDR}"
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:50051", cfg.LLM.Address)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), "max_iterations: [unclosed")

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_RejectsOutOfRangeValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), "token_buffer_ratio: 1.5\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoad_DerivesDurationsFromMillis(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, configFileName), "tool_timeout_ms: 45000\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(45_000), cfg.ToolTimeout.Milliseconds())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

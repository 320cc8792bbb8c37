package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memora.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "mock", cfg.DefaultModel)
	assert.Equal(t, 30, cfg.MaxSteps)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Tool.Std())
	assert.Equal(t, BackendFile, cfg.Checkpoint.Backend)
	assert.True(t, cfg.Tools.Shell.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	t.Setenv("MEMORA_TEST_KEY", "sk-secret")

	path := writeConfig(t, `
default_model: llama3
max_steps: 12
timeouts:
  tool: 5s
log:
  level: debug
checkpoint:
  backend: sqlite
tools:
  shell:
    enabled: false
models:
  llama3:
    provider: ollama
    model: llama3
    description: Local Llama 3
    stream: true
  gpt:
    provider: openai
    model: gpt-4o-mini
    api_key: ${MEMORA_TEST_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "llama3", cfg.DefaultModel)
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Tool.Std())
	assert.Equal(t, 2*time.Minute, cfg.Timeouts.Planner.Std(), "absent keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, BackendSQLite, cfg.Checkpoint.Backend)
	assert.False(t, cfg.Tools.Shell.Enabled)
	assert.True(t, cfg.Tools.File.Enabled)
	assert.Equal(t, "sk-secret", cfg.Models["gpt"].APIKey)
	assert.True(t, cfg.Models["llama3"].Stream)
	assert.Equal(t, []string{"gpt", "llama3", "mock"}, cfg.ModelIDs())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed yaml", content: "max_steps: [1,"},
		{name: "bad duration", content: "timeouts:\n  tool: soon\n"},
		{name: "wrong type", content: "max_steps: many\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MEMORA_A", "alpha")

	assert.Equal(t, "x alpha y", ExpandEnv("x ${MEMORA_A} y"))
	assert.Equal(t, "key: ", ExpandEnv("key: ${MEMORA_UNSET_VARIABLE}"))
	assert.Equal(t, "$MEMORA_A stays", ExpandEnv("$MEMORA_A stays"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "negative steps", mutate: func(c *Config) { c.MaxSteps = -1 }, wantErr: "max_steps"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeouts.Writer = Duration(-time.Second) }, wantErr: "timeouts.writer"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "backend", mutate: func(c *Config) { c.Checkpoint.Backend = "redis" }, wantErr: "checkpoint.backend"},
		{name: "file dir", mutate: func(c *Config) { c.Checkpoint.Dir = "" }, wantErr: "checkpoint.dir"},
		{name: "no models", mutate: func(c *Config) { c.Models = nil }, wantErr: "at least one model"},
		{name: "provider", mutate: func(c *Config) {
			c.Models["x"] = ModelConfig{Provider: "skynet", Model: "t800"}
		}, wantErr: `models.x: unknown provider "skynet"`},
		{name: "model name", mutate: func(c *Config) {
			c.Models["x"] = ModelConfig{Provider: ProviderOpenAI}
		}, wantErr: "models.x: model cannot be empty"},
		{name: "default model", mutate: func(c *Config) { c.DefaultModel = "gpt" }, wantErr: `default_model "gpt"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurationMarshal(t *testing.T) {
	out, err := Duration(90 * time.Second).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", out)
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-example")

	cfg, err := Load("../memora.example.yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sk-example", cfg.Models["gpt4o-mini"].APIKey)
	assert.Equal(t, ProviderDashScope, cfg.Models["qwen3-30b"].Provider)
	assert.Contains(t, cfg.ModelIDs(), "llama3")
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memora"
	"github.com/hupe1980/memora/checkpoint"
	"github.com/hupe1980/memora/config"
	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/testutil"
	"github.com/hupe1980/memora/model"
)

// writeConfig creates an offline configuration with a file checkpoint store
// below dir and returns its path.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := fmt.Sprintf(`
default_model: mock
log:
  level: error
trace:
  console: false
checkpoint:
  backend: file
  dir: %s
tools:
  shell:
    enabled: false
  file:
    enabled: false
models:
  backup:
    provider: mock
    description: second mock
`, filepath.Join(dir, "checkpoints"))
	path := filepath.Join(dir, "memora.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "memora")
	assert.Contains(t, out, "state machine")

	var names []string
	for _, c := range NewRootCommand().Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "chat", "models", "checkpoint", "serve"})
}

func TestRunCommand(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())

	out, err := execute(t, "", "--config", cfg, "run", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Final answer:")
	assert.Contains(t, out, "Mock response to: User question:\nhello")
	assert.NotContains(t, out, "Resume with")
}

func TestRunCommand_RequiresGoal(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())

	_, err := execute(t, "", "--config", cfg, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal or --agent-id")
}

func TestRunCommand_UnknownModel(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())

	out, err := execute(t, "", "--config", cfg, "run", "--model", "nope", "--agent-id", "a1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ended in state ERROR")
	assert.Contains(t, out, "Resume with: memora run --agent-id a1")
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memora.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_model: missing\n"), 0o644))

	_, err := execute(t, "", "--config", path, "run", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestModelsCommand(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())

	out, err := execute(t, "", "--config", cfg, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "mock *")
	assert.Contains(t, out, "second mock")
}

func TestCheckpointCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	store, err := checkpoint.NewFileStore(func(o *checkpoint.FileOptions) { o.Dir = filepath.Join(dir, "checkpoints") })
	require.NoError(t, err)
	cp := testutil.NewCheckpointBuilder("agent-7").
		Goal("count files").
		Model("mock").
		CompletedTask("t1", "list files", "3 files").
		PendingTask("t2", "count them").
		Cursor(1).
		Failed("boom", core.StateToolCalling).
		Build()
	require.NoError(t, store.Save(context.Background(), cp))

	out, err := execute(t, "", "--config", cfg, "checkpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "agent-7")
	assert.Contains(t, out, "ERROR")

	out, err = execute(t, "", "--config", cfg, "checkpoint", "show", "agent-7")
	require.NoError(t, err)
	assert.Contains(t, out, "Goal:    count files")
	assert.Contains(t, out, "Error:   boom (in TOOL_CALLING)")
	assert.Contains(t, out, "> [t2] count them (pending)")

	out, err = execute(t, "", "--config", cfg, "checkpoint", "show", "--json", "agent-7")
	require.NoError(t, err)
	var decoded core.Checkpoint
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "agent-7", decoded.AgentID)

	_, err = execute(t, "", "--config", cfg, "checkpoint", "show", "missing")
	require.Error(t, err)

	out, err = execute(t, "", "--config", cfg, "checkpoint", "clear", "agent-7")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared agent-7")

	out, err = execute(t, "", "--config", cfg, "checkpoint", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No checkpoints found")
}

func TestChatCommand(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())

	out, err := execute(t, "hello\n\nswitch 9\nswitch backup\nquit\n", "--config", cfg, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Model: mock")
	assert.Contains(t, out, "Mock response to: User question:\nhello")
	assert.Contains(t, out, "no model number 9")
	assert.Contains(t, out, "Switched to backup")
	assert.Contains(t, out, "Bye!")
}

func TestChatCommand_SwitchPrompt(t *testing.T) {
	cfg := writeConfig(t, t.TempDir())

	out, err := execute(t, "switch\n1\n", "--config", cfg, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] backup")
	assert.Contains(t, out, "Switched to backup")
}

func TestResolveModel(t *testing.T) {
	entries := []model.Entry{{ID: "a"}, {ID: "b"}}

	tests := []struct {
		choice  string
		want    string
		wantErr bool
	}{
		{"a", "a", false},
		{" b ", "b", false},
		{"2", "b", false},
		{"0", "", true},
		{"3", "", true},
		{"c", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.choice, func(t *testing.T) {
			got, err := resolveModel(entries, tt.choice)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Checkpoint.Backend = config.BackendMemory
	cfg.Trace.Console = false
	cfg.Tools.Shell.Enabled = false
	cfg.Tools.File.Enabled = false
	cfg.Log.Level = "error"
	cfg.Models["backup"] = config.ModelConfig{Provider: config.ProviderMock}

	m, err := memora.FromConfig(cfg)
	require.NoError(t, err)
	return NewHandler(m)
}

func TestHandler_Models(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var models []ModelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 2)
	assert.Equal(t, "mock", models[0].ID)
	assert.True(t, models[0].Default)
	assert.Equal(t, "backup", models[1].ID)
}

func TestHandler_ModelsWithoutRouter(t *testing.T) {
	m, err := memora.New(func(o *memora.Options) {
		o.Planner = testutil.NewScriptedPlanner(`{"type":"final","content":"done"}`)
		o.Writer = &testutil.StubWriter{Answer: "written"}
	})
	require.NoError(t, err)
	h := NewHandler(m)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"goal":"hello","agent_id":"web-1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"output":"written"`)
}

func TestHandler_Run(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"goal":"hello","agent_id":"web-1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "web-1", resp.AgentID)
	assert.Equal(t, string(core.StateDone), resp.State)
	assert.Contains(t, resp.Output, "Mock response to")
	assert.Empty(t, resp.Error)
}

func TestHandler_RunErrors(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/run", strings.NewReader(`{"goal":"x","model":"nope"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(core.StateError), resp.State)
	assert.NotEmpty(t, resp.Error)
}

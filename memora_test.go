package memora

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memora/config"
	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/internal/testutil"
	"github.com/hupe1980/memora/model"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Checkpoint.Backend = config.BackendMemory
	cfg.Trace.Console = false
	cfg.Tools.Shell.Enabled = false
	cfg.Tools.File.Root = t.TempDir()
	cfg.Log.Level = "error"
	return cfg
}

func TestFromConfig_RunsWithMockModel(t *testing.T) {
	m, err := FromConfig(offlineConfig(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Close()) }()

	res := m.RunWithResult(context.Background(), "hello", "", "")
	require.True(t, res.OK(), res.Output)
	assert.True(t, strings.HasPrefix(res.Output, "Mock response to: User question:\nhello"), res.Output)
	assert.NotEmpty(t, res.AgentID)

	exists, err := m.Store().Exists(context.Background(), res.AgentID)
	require.NoError(t, err)
	assert.False(t, exists, "completed runs clear their checkpoint")
}

func TestFromConfig_RegistersTools(t *testing.T) {
	m, err := FromConfig(offlineConfig(t))
	require.NoError(t, err)

	names := m.Tools().Names()
	assert.Contains(t, names, "file")
	assert.Contains(t, names, "device_info")
	assert.NotContains(t, names, "shell")
}

func TestFromConfig_Models(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Models["backup"] = config.ModelConfig{Provider: config.ProviderMock, Description: "second mock"}

	m, err := FromConfig(cfg)
	require.NoError(t, err)

	var ids []string
	for _, e := range m.Models() {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"mock", "backup"}, ids)
	assert.Equal(t, "mock", m.Router().Default())
	assert.Equal(t, "mock", m.DefaultModel())
}

func TestFromConfig_InvalidConfig(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.DefaultModel = "missing"

	_, err := FromConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewModel_UnknownProvider(t *testing.T) {
	_, err := NewModel("x", config.ModelConfig{Provider: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewModel_OpenAICompatible(t *testing.T) {
	m, err := NewModel("local", config.ModelConfig{Provider: config.ProviderOllama, Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "llama3", m.Info().Name)
	assert.Equal(t, config.ProviderOllama, m.Info().Provider)
}

func TestOpenStore_Backends(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t)

	cfg.Checkpoint.Backend = config.BackendFile
	cfg.Checkpoint.Dir = filepath.Join(dir, "cp")
	store, err := OpenStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), testutil.NewCheckpointBuilder("a1").Build()))
	_, err = os.Stat(filepath.Join(dir, "cp"))
	require.NoError(t, err)

	cfg.Checkpoint.Backend = config.BackendSQLite
	cfg.Checkpoint.DBPath = filepath.Join(dir, "cp.db")
	store, err = OpenStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, store.(interface{ Close() error }).Close())

	cfg.Checkpoint.Backend = "tape"
	_, err = OpenStore(cfg, nil)
	require.Error(t, err)
}

func TestRun_JSONLTrace(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t)
	cfg.Trace.JSONLDir = dir

	m, err := FromConfig(cfg)
	require.NoError(t, err)

	out := m.Run(context.Background(), "hello", "mock", "agent-1")
	require.NotEmpty(t, out)

	data, err := os.ReadFile(filepath.Join(dir, "agent-1.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), string(core.EventWriterOutput))
}

func TestNew_RequiresRouter(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	m, err := New(func(o *Options) {
		o.Planner = testutil.NewScriptedPlanner(`{"type":"final","content":"done"}`)
		o.Writer = &testutil.StubWriter{Answer: "written"}
	})
	require.NoError(t, err)
	assert.Equal(t, "written", m.Run(context.Background(), "goal", "", "a1"))
	assert.Nil(t, m.Models())
	assert.Nil(t, m.Router())
	assert.Empty(t, m.DefaultModel())
}

func TestNew_OnDeltaReceivesRoles(t *testing.T) {
	router := model.NewRouter()
	require.NoError(t, router.Register(model.Entry{ID: "m", Stream: true, Model: model.NewMockModel("m").Script(`{"type":"final","content":"ok"}`, "answer")}))

	var roles []string
	m, err := New(func(o *Options) {
		o.Router = router
		o.OnDelta = func(role, _ string) {
			if len(roles) == 0 || roles[len(roles)-1] != role {
				roles = append(roles, role)
			}
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", m.Run(context.Background(), "goal", "m", "a1"))
	assert.Equal(t, []string{"planner", "writer"}, roles)
}

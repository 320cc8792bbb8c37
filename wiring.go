package memora

import (
	"fmt"
	"io"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/memora/checkpoint"
	"github.com/hupe1980/memora/checkpoint/sqlite"
	"github.com/hupe1980/memora/config"
	"github.com/hupe1980/memora/core"
	"github.com/hupe1980/memora/logging"
	"github.com/hupe1980/memora/model"
	"github.com/hupe1980/memora/model/anthropic"
	"github.com/hupe1980/memora/model/openai"
	"github.com/hupe1980/memora/tool"
	"github.com/hupe1980/memora/tool/file"
	"github.com/hupe1980/memora/tool/shell"
)

// FromConfig builds a Memora from a validated configuration. optFns run
// after the configuration was applied and may override any of it.
func FromConfig(cfg *config.Config, optFns ...func(o *Options)) (*Memora, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := NewLogger(cfg)

	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	tools, err := NewToolRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	m, err := New(append([]func(o *Options){func(o *Options) {
		o.Router = router
		o.Tools = tools
		o.Store = store
		o.Logger = logger
		o.ConsoleTrace = cfg.Trace.Console
		o.JSONLDir = cfg.Trace.JSONLDir
		o.MaxSteps = cfg.MaxSteps
		o.ToolTimeout = cfg.Timeouts.Tool.Std()
		o.PlannerTimeout = cfg.Timeouts.Planner.Std()
		o.WriterTimeout = cfg.Timeouts.Writer.Std()
		o.RetryFailed = cfg.RetryFailed
	}}, optFns...)...)
	if err != nil {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return m, nil
}

// NewLogger creates the structured logger described by cfg.Log.
func NewLogger(cfg *config.Config) *logging.MemoraLogger {
	return logging.NewSlogLogger(cfg.LogLevel(), cfg.Log.Format, false)
}

// NewRouter registers every configured model and selects the default.
func NewRouter(cfg *config.Config) (*model.Router, error) {
	router := model.NewRouter()
	for _, id := range cfg.ModelIDs() {
		mc := cfg.Models[id]
		m, err := NewModel(id, mc)
		if err != nil {
			return nil, err
		}
		if err := router.Register(model.Entry{
			ID:          id,
			Description: mc.Description,
			Provider:    mc.Provider,
			Name:        mc.Model,
			Stream:      mc.Stream,
			Model:       m,
		}); err != nil {
			return nil, err
		}
	}
	if cfg.DefaultModel != "" {
		if err := router.SetDefault(cfg.DefaultModel); err != nil {
			return nil, err
		}
	}
	return router, nil
}

// NewModel creates the provider adapter for one configured model.
func NewModel(id string, mc config.ModelConfig) (model.Model, error) {
	switch mc.Provider {
	case config.ProviderMock:
		name := mc.Model
		if name == "" {
			name = id
		}
		return model.NewMockModel(name), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(mc.Model)
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
			if mc.Temperature > 0 {
				o.Temperature = mc.Temperature
			}
			if mc.MaxTokens > 0 {
				o.MaxTokens = mc.MaxTokens
			}
		}), nil
	case config.ProviderOpenAI, config.ProviderOllama, config.ProviderGoAPI, config.ProviderDashScope, config.ProviderGemini:
		return openai.NewModel(func(o *openai.Options) {
			o.Model = mc.Model
			o.Provider = mc.Provider
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
			if o.BaseURL == "" {
				o.BaseURL = config.DefaultBaseURLs[mc.Provider]
			}
			if o.APIKey == "" && mc.Provider == config.ProviderOllama {
				o.APIKey = "ollama"
			}
			if mc.Temperature > 0 {
				o.Temperature = mc.Temperature
			}
			if mc.MaxTokens > 0 {
				o.MaxCompletionTokens = mc.MaxTokens
			}
		}), nil
	default:
		return nil, fmt.Errorf("model %s: unknown provider %q", id, mc.Provider)
	}
}

// NewToolRegistry registers the enabled built-in tools.
func NewToolRegistry(cfg *config.Config, logger logging.Logger) (*tool.Registry, error) {
	registry := tool.NewRegistry(func(o *tool.RegistryOptions) { o.Logger = logger })

	if sc := cfg.Tools.Shell; sc.Enabled {
		if err := registry.Register(shell.New(func(o *shell.Options) {
			if len(sc.Allowed) > 0 {
				o.Allowed = sc.Allowed
			}
			if len(sc.Forbidden) > 0 {
				o.Forbidden = sc.Forbidden
			}
			if sc.Timeout > 0 {
				o.Timeout = sc.Timeout.Std()
			}
			o.Dir = sc.Dir
		})); err != nil {
			return nil, err
		}
	}
	if fc := cfg.Tools.File; fc.Enabled {
		if err := registry.Register(file.New(func(o *file.Options) {
			o.Root = fc.Root
			o.ReadOnly = fc.ReadOnly
		})); err != nil {
			return nil, err
		}
	}
	if cfg.Tools.DeviceInfo {
		if err := registry.Register(tool.NewDeviceInfoTool()); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// OpenStore opens the configured checkpoint backend.
func OpenStore(cfg *config.Config, logger logging.Logger) (core.CheckpointStore, error) {
	switch cfg.Checkpoint.Backend {
	case config.BackendMemory:
		return checkpoint.NewInMemoryStore(), nil
	case config.BackendSQLite:
		store, err := sqlite.New(func(o *sqlite.Options) {
			o.Path = cfg.Checkpoint.DBPath
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendFile, "":
		store, err := checkpoint.NewFileStore(func(o *checkpoint.FileOptions) {
			o.Dir = cfg.Checkpoint.Dir
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}
}

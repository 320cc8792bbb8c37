// Package config loads the memora YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/memora/logging"
)

// Supported model providers. All providers except anthropic and mock are
// served through the OpenAI compatible client.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderGoAPI     = "goapi"
	ProviderDashScope = "dashscope"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Checkpoint backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultBaseURLs are used when an OpenAI compatible provider has no base_url.
var DefaultBaseURLs = map[string]string{
	ProviderOllama:    "http://localhost:11434/v1",
	ProviderGoAPI:     "https://api.getgoapi.com/v1",
	ProviderDashScope: "https://dashscope.aliyuncs.com/compatible-mode/v1",
	ProviderGemini:    "https://generativelanguage.googleapis.com/v1beta/openai/",
}

var knownProviders = map[string]bool{
	ProviderOpenAI:    true,
	ProviderAnthropic: true,
	ProviderOllama:    true,
	ProviderGoAPI:     true,
	ProviderDashScope: true,
	ProviderGemini:    true,
	ProviderMock:      true,
}

// Duration is a time.Duration written as a Go duration string ("30s", "2m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Std returns the value as time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TimeoutsConfig bounds blocking collaborator calls.
type TimeoutsConfig struct {
	Tool    Duration `yaml:"tool"`
	Planner Duration `yaml:"planner"`
	Writer  Duration `yaml:"writer"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is json or text
	Format string `yaml:"format"`
}

// TraceConfig selects trace listeners.
type TraceConfig struct {
	// Console prints one line per event to stdout
	Console bool `yaml:"console"`
	// JSONLDir, when set, receives one <agent>.jsonl file per run
	JSONLDir string `yaml:"jsonl_dir"`
}

// CheckpointConfig selects the checkpoint store.
type CheckpointConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	DBPath  string `yaml:"db_path"`
}

// ShellToolConfig configures the shell tool.
type ShellToolConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Allowed   []string `yaml:"allowed"`
	Forbidden []string `yaml:"forbidden"`
	Timeout   Duration `yaml:"timeout"`
	Dir       string   `yaml:"dir"`
}

// FileToolConfig configures the file tool.
type FileToolConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Root     string `yaml:"root"`
	ReadOnly bool   `yaml:"read_only"`
}

// ToolsConfig enables the built-in tools.
type ToolsConfig struct {
	Shell      ShellToolConfig `yaml:"shell"`
	File       FileToolConfig  `yaml:"file"`
	DeviceInfo bool            `yaml:"device_info"`
}

// ModelConfig describes one routed model.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Description string  `yaml:"description"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Stream      bool    `yaml:"stream"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// Config is the complete memora configuration.
type Config struct {
	// DefaultModel is used when a run names no model
	DefaultModel string `yaml:"default_model"`

	// MaxSteps bounds the handled states per run (0 = unlimited)
	MaxSteps int `yaml:"max_steps"`

	// RetryFailed resumes failed runs at the state that failed
	RetryFailed bool `yaml:"retry_failed"`

	Timeouts   TimeoutsConfig         `yaml:"timeouts"`
	Log        LogConfig              `yaml:"log"`
	Trace      TraceConfig            `yaml:"trace"`
	Checkpoint CheckpointConfig       `yaml:"checkpoint"`
	Tools      ToolsConfig            `yaml:"tools"`
	Models     map[string]ModelConfig `yaml:"models"`
}

// DefaultConfig returns a Config with sensible default values. It routes
// to an offline mock model until real models are configured.
func DefaultConfig() *Config {
	return &Config{
		DefaultModel: "mock",
		MaxSteps:     30,
		Timeouts: TimeoutsConfig{
			Tool:    Duration(30 * time.Second),
			Planner: Duration(2 * time.Minute),
			Writer:  Duration(2 * time.Minute),
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		Trace: TraceConfig{Console: true},
		Checkpoint: CheckpointConfig{
			Backend: BackendFile,
			Dir:     ".memora/checkpoints",
			DBPath:  ".memora/checkpoints.db",
		},
		Tools: ToolsConfig{
			Shell:      ShellToolConfig{Enabled: true, Timeout: Duration(10 * time.Second)},
			File:       FileToolConfig{Enabled: true},
			DeviceInfo: true,
		},
		Models: map[string]ModelConfig{
			"mock": {Provider: ProviderMock, Model: "mock", Description: "Offline echo model"},
		},
	}
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// ExpandEnv replaces ${VAR} with the value of the environment variable VAR.
// Unset variables expand to the empty string.
func ExpandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// Load loads configuration from path, merged over the defaults.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := Parse([]byte(ExpandEnv(string(data))), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from data keep their value.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// ModelIDs returns the configured model ids in sorted order.
func (c *Config) ModelIDs() []string {
	ids := make([]string, 0, len(c.Models))
	for id := range c.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.LogLevel {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be >= 0, got %d", c.MaxSteps)
	}

	for name, d := range map[string]Duration{
		"timeouts.tool":       c.Timeouts.Tool,
		"timeouts.planner":    c.Timeouts.Planner,
		"timeouts.writer":     c.Timeouts.Writer,
		"tools.shell.timeout": c.Tools.Shell.Timeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be >= 0, got %v", name, d.Std())
		}
	}

	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("invalid log.level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log.format %q, must be json or text", c.Log.Format)
	}

	switch c.Checkpoint.Backend {
	case BackendFile:
		if c.Checkpoint.Dir == "" {
			return errors.New("checkpoint.dir cannot be empty for the file backend")
		}
	case BackendSQLite:
		if c.Checkpoint.DBPath == "" {
			return errors.New("checkpoint.db_path cannot be empty for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid checkpoint.backend %q, must be one of: file, sqlite, memory", c.Checkpoint.Backend)
	}

	if len(c.Models) == 0 {
		return errors.New("at least one model must be configured")
	}
	for _, id := range c.ModelIDs() {
		m := c.Models[id]
		if !knownProviders[m.Provider] {
			return fmt.Errorf("models.%s: unknown provider %q", id, m.Provider)
		}
		if m.Provider != ProviderMock && m.Model == "" {
			return fmt.Errorf("models.%s: model cannot be empty", id)
		}
		if m.MaxTokens < 0 {
			return fmt.Errorf("models.%s: max_tokens must be >= 0, got %d", id, m.MaxTokens)
		}
	}
	if _, ok := c.Models[c.DefaultModel]; !ok {
		return fmt.Errorf("default_model %q is not configured (available: %s)", c.DefaultModel, strings.Join(c.ModelIDs(), ", "))
	}

	return nil
}

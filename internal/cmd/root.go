package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/memora"
	"github.com/hupe1980/memora/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// DefaultConfigPath is read when --config is not given. A missing file
// yields the built-in defaults.
const DefaultConfigPath = "memora.yaml"

// NewRootCommand creates and returns the root cobra command for memora
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memora",
		Short: "Crash-resumable agent loop orchestrator",
		Long: `Memora drives a planner, tools and a writer through a checkpointed
state machine to answer a goal.

Every transition is persisted before the next step runs, so an
interrupted run continues where it stopped when started again with the
same agent id.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", DefaultConfigPath, "Path to config file")
	cmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewChatCommand())
	cmd.AddCommand(NewModelsCommand())
	cmd.AddCommand(NewCheckpointCommand())
	cmd.AddCommand(NewServeCommand())

	return cmd
}

// loadConfig reads the config file named by --config and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = DefaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}

	return cfg, nil
}

// newMemora builds the façade from the command's configuration. Console
// trace output follows the command's output writer.
func newMemora(cmd *cobra.Command, optFns ...func(o *memora.Options)) (*memora.Memora, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	m, err := memora.FromConfig(cfg, append([]func(o *memora.Options){func(o *memora.Options) {
		o.ConsoleWriter = cmd.OutOrStdout()
	}}, optFns...)...)
	if err != nil {
		return nil, nil, err
	}

	return m, cfg, nil
}

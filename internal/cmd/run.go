package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/memora"
	"github.com/hupe1980/memora/orchestrator"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <goal>...",
		Short: "Run a goal to completion",
		Long: `Run a goal through the planner, tool and writer loop and print the answer.

All arguments are joined into the goal. Passing --agent-id of an
interrupted run resumes it from its last checkpoint; the stored goal is
used and the goal argument may be omitted.

Examples:
  memora run "What is the hostname of this machine?"
  memora run --model gpt4 "Summarize README.md"
  memora run --agent-id 3f2a...          # resume an interrupted run
  memora run --agent-id 3f2a... --retry-failed`,
		RunE: runCommand,
	}

	cmd.Flags().String("model", "", "Model id to use (default: configured default model)")
	cmd.Flags().String("agent-id", "", "Agent id of the run; reuse it to resume")
	cmd.Flags().Bool("retry-failed", false, "Resume a failed run at the state that failed")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	modelID, _ := cmd.Flags().GetString("model")
	agentID, _ := cmd.Flags().GetString("agent-id")
	retry, _ := cmd.Flags().GetBool("retry-failed")

	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal == "" && agentID == "" {
		return fmt.Errorf("a goal or --agent-id is required")
	}

	m, _, err := newMemora(cmd, func(o *memora.Options) {
		if retry {
			o.RetryFailed = true
		}
	})
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := m.RunWithResult(ctx, goal, modelID, agentID)
	printResult(cmd, res)

	if !res.OK() {
		return fmt.Errorf("run %s ended in state %s", res.AgentID, res.State)
	}
	return nil
}

func printResult(cmd *cobra.Command, res orchestrator.Result) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)

	bold.Fprintln(out, "\nFinal answer:")
	fmt.Fprintln(out, res.Output)

	if res.Interrupted || !res.OK() {
		gray.Fprintf(out, "\nResume with: memora run --agent-id %s\n", res.AgentID)
	}
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/memora/core"
)

// NewCheckpointCommand creates the 'memora checkpoint' command group
func NewCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and remove stored checkpoints",
		Long: `Inspect and remove the checkpoints of unfinished runs.

A checkpoint exists for every run that was interrupted or failed. Completed
runs clear their checkpoint.`,
	}

	cmd.AddCommand(newCheckpointListCommand())
	cmd.AddCommand(newCheckpointShowCommand())
	cmd.AddCommand(newCheckpointClearCommand())

	return cmd
}

func newCheckpointListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agent ids with a stored checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := newMemora(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			store := m.Store()
			lister, ok := store.(core.CheckpointLister)
			if !ok {
				return fmt.Errorf("checkpoint store %T cannot list checkpoints", store)
			}

			ids, err := lister.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list checkpoints: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No checkpoints found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT ID\tSTATE\tSTEPS\tUPDATED\tGOAL")
			for _, id := range ids {
				cp, err := store.LoadLatest(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(w, "%s\t?\t\t\t%v\n", id, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", id, cp.State, cp.Steps, cp.Timestamp.Local().Format(time.DateTime), truncate(cp.Goal, 60))
			}
			return w.Flush()
		},
	}
}

func newCheckpointShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Show the stored checkpoint of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newMemora(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			cp, err := m.Store().LoadLatest(cmd.Context(), args[0])
			if errors.Is(err, core.ErrCheckpointNotFound) {
				return fmt.Errorf("no checkpoint for agent %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("load checkpoint: %w", err)
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cp)
			}

			printCheckpoint(cmd.OutOrStdout(), cp)
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print the raw checkpoint as JSON")

	return cmd
}

func newCheckpointClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <agent-id>...",
		Short: "Delete stored checkpoints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newMemora(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			for _, id := range args {
				if err := m.Store().Clear(cmd.Context(), id); err != nil {
					return fmt.Errorf("clear %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", id)
			}
			return nil
		},
	}
}

// printCheckpoint formats a checkpoint for humans
func printCheckpoint(w io.Writer, cp *core.Checkpoint) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "=== Checkpoint %s ===\n\n", cp.AgentID)
	fmt.Fprintf(w, "State:   %s\n", cp.State)
	fmt.Fprintf(w, "Goal:    %s\n", cp.Goal)
	fmt.Fprintf(w, "Model:   %s\n", cp.ModelID)
	fmt.Fprintf(w, "Steps:   %d\n", cp.Steps)
	fmt.Fprintf(w, "Updated: %s\n", cp.Timestamp.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Events:  %d\n", len(cp.TraceEvents))

	if cp.State == core.StateError {
		red.Fprintf(w, "Error:   %s (in %s)\n", cp.Error, cp.FailedState)
	}

	if len(cp.Tasks) > 0 {
		cyan.Fprintln(w, "\nTasks:")
		for i, t := range cp.Tasks {
			marker := " "
			if i == cp.CurrentTaskIndex {
				marker = ">"
			}
			fmt.Fprintf(w, "%s [%s] %s (%s)\n", marker, t.ID, t.Goal, t.Status)
			if t.Result != "" {
				gray.Fprintf(w, "    %s\n", truncate(t.Result, 100))
			}
		}
	}

	if len(cp.ExecutionHistory) > 0 {
		cyan.Fprintln(w, "\nHistory:")
		for _, h := range cp.ExecutionHistory {
			fmt.Fprintln(w, h)
		}
	}

	if action, err := cp.Action(); err == nil && action != nil {
		cyan.Fprintln(w, "\nPending action:")
		fmt.Fprintf(w, "%s\n", string(cp.CurrentAction))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

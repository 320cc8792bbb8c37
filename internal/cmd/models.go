package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewModelsCommand creates the 'memora models' command
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := newMemora(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			def := m.DefaultModel()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPROVIDER\tMODEL\tSTREAM\tDESCRIPTION")
			for _, e := range m.Models() {
				id := e.ID
				if id == def {
					id += " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", id, e.Provider, e.Name, e.Stream, e.Description)
			}
			return w.Flush()
		},
	}
}

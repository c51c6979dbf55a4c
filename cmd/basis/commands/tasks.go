package commands

import "github.com/spf13/cobra"

func (c *CLI) newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Tasks(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

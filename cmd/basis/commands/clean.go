package commands

import (
	"github.com/spf13/cobra"

	"go.trai.ch/basis/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetBool("cache")
			return c.app.Clean(cmd.Context(), app.CleanOptions{Cache: cache})
		},
	}

	cmd.Flags().BoolP("cache", "c", false, "Also remove the build cache")

	return cmd
}

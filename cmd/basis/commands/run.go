package commands

import (
	"github.com/spf13/cobra"

	"go.trai.ch/basis/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [tasks...]",
		Short: "Run tasks and their prerequisites",
		Long:  "Run tasks and their prerequisites once. Without tasks the default task runs.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noCache, _ := cmd.Flags().GetBool("no-cache")
			jobs, _ := cmd.Flags().GetInt("jobs")

			return c.app.Run(cmd.Context(), args, app.RunOptions{
				NoCache:    noCache,
				Jobs:       jobs,
				OutputMode: outputMode(cmd),
			})
		},
	}
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the build cache and force execution")
	cmd.Flags().IntP("jobs", "j", 1, "Number of tasks run at once")
	addOutputFlags(cmd)
	return cmd
}

package commands

import (
	"github.com/spf13/cobra"

	"go.trai.ch/basis/internal/app"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [tasks...]",
		Short: "Rebuild on change and reload connected browsers",
		Long: "Run the tasks, then re-run the tasks of every watch rule whose files change " +
			"and reload the browsers connected to the reload server.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noInitial, _ := cmd.Flags().GetBool("no-initial")
			noCache, _ := cmd.Flags().GetBool("no-cache")
			noReload, _ := cmd.Flags().GetBool("no-reload")
			jobs, _ := cmd.Flags().GetInt("jobs")
			addr, _ := cmd.Flags().GetString("addr")
			proxy, _ := cmd.Flags().GetString("proxy")

			return c.app.Watch(cmd.Context(), args, app.WatchOptions{
				NoInitial:  noInitial,
				NoCache:    noCache,
				Jobs:       jobs,
				Addr:       addr,
				Proxy:      proxy,
				NoReload:   noReload,
				OutputMode: outputMode(cmd),
			})
		},
	}
	cmd.Flags().Bool("no-initial", false, "Skip the initial run and only react to changes")
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the build cache and force execution")
	cmd.Flags().Bool("no-reload", false, "Do not start the reload server")
	cmd.Flags().IntP("jobs", "j", 1, "Number of tasks run at once")
	cmd.Flags().String("addr", "", "Address of the reload server (default from basis.yaml)")
	cmd.Flags().String("proxy", "", "URL of the development site to proxy (default from basis.yaml)")
	addOutputFlags(cmd)
	return cmd
}

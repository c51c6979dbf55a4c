// Package commands implements the CLI commands for the basis theme build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go.trai.ch/basis/internal/app"
	"go.trai.ch/basis/internal/build"
)

// CLI represents the command line interface for basis.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, targetNames []string, opts app.RunOptions) error
	Watch(ctx context.Context, targetNames []string, opts app.WatchOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
	Tasks(ctx context.Context, w io.Writer) error
	Init(ctx context.Context, opts app.InitOptions) error
	MediaServe(ctx context.Context, opts app.MediaServeOptions) error
	MediaAdd(ctx context.Context, opts app.MediaAddOptions) (int64, error)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "basis",
		Short:         "Build the assets of a WordPress theme",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newTasksCmd())
	rootCmd.AddCommand(c.newInitCmd())
	rootCmd.AddCommand(c.newMediaCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// addOutputFlags registers the rendering flags shared by run and watch.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, pretty, linear, or json")
	cmd.Flags().Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
}

func outputMode(cmd *cobra.Command) string {
	if ci, _ := cmd.Flags().GetBool("ci"); ci {
		return "linear"
	}
	mode, _ := cmd.Flags().GetString("output-mode")
	return mode
}

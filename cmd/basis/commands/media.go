package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.trai.ch/basis/internal/app"
)

func (c *CLI) newMediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Serve and manage theme attachments",
	}
	cmd.AddCommand(c.newMediaServeCmd())
	cmd.AddCommand(c.newMediaAddCmd())
	return cmd
}

func (c *CLI) newMediaServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer attachment URL lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			return c.app.MediaServe(cmd.Context(), app.MediaServeOptions{Addr: addr})
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from basis.yaml)")
	return cmd
}

func (c *CLI) newMediaAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			mime, _ := cmd.Flags().GetString("mime")

			id, err := c.app.MediaAdd(cmd.Context(), app.MediaAddOptions{
				URL:      args[0],
				Title:    title,
				MimeType: mime,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().String("title", "", "Attachment title (default: file name)")
	cmd.Flags().String("mime", "", "Mime type (default: from the file extension)")
	return cmd
}

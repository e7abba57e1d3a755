package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/tracker/internal/mcp"
)

var mcpAuthor string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP client read and update issues in the configured data
directory. Configure it with:

  {
    "mcpServers": {
      "tracker": { "command": "tracker", "args": ["mcp"] }
    }
  }

Available tools: tracker_list_issues, tracker_get_issue, tracker_create_issue,
tracker_add_comment, tracker_update_state, tracker_import_issues`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol.
		ui.Out = ui.ErrOut

		a, err := getDeps(cmd.Context())
		if err != nil {
			return err
		}
		by := mcpAuthor
		if by == "" {
			by = a.cfg.Bootstrap.AdminUser
		}
		return mcp.NewServer(a.tracker, by, buildVersion).ServeStdio(cmd.Context())
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAuthor, "author", "", "Author recorded on issues and comments (default bootstrap.admin_user)")
	rootCmd.AddCommand(mcpCmd)
}

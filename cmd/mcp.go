package cmd

import (
	"github.com/spf13/cobra"

	"playground/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve playground tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		return mcpserver.New(a.orch, Version, a.logger).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

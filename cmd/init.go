package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"playground/config"
	"playground/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize playground configuration for current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		workspacePath, err := workspace.DetectWorkspace()
		if err != nil {
			return err
		}
		if err := workspace.EnsureStateDir(workspacePath); err != nil {
			return err
		}
		if err := config.SaveLocalConfig(workspacePath, config.DefaultConfig()); err != nil {
			return fmt.Errorf("save local config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized playground for %s\n", workspacePath)
		fmt.Fprintln(cmd.OutOrStdout(), "Created project-specific configuration with default settings")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"playground/tui"
)

// Version is stamped at build time.
var Version = "dev"

var (
	verbose         bool
	modelFlag       string
	continueSession bool
	threadID        string
)

var rootCmd = &cobra.Command{
	Use:   "playground",
	Short: "Playground is a chat-driven Nuxt code generator",
	Long: `Playground is a chat-driven code generator for Nuxt 3 projects.
Describe a component, composable or style and the assistant decides when to
generate a file, which is streamed into a virtual project you can preview,
export or keep chatting about.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive terminal interface",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{withThreads: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.resume(ctx, threadID, continueSession); err != nil {
		return err
	}
	err = tui.StartTUI(ctx, a.orch, a.bus)
	if saveErr := a.save(context.WithoutCancel(ctx)); saveErr != nil {
		a.logger.Warn().Err(saveErr).Msg("failed to save thread")
	}
	return err
}

// Execute runs the root command, cancelling on interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Override the configured model (provider:model)")

	for _, c := range []*cobra.Command{rootCmd, tuiCmd, chatCmd, serveCmd} {
		c.Flags().BoolVarP(&continueSession, "continue", "c", false, "Continue from the latest thread")
		c.Flags().StringVarP(&threadID, "thread", "t", "", "Continue from a specific thread ID")
	}

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(configCmd)
}

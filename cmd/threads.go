package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"playground/internal/threads"
	"playground/workspace"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Manage saved chat threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved threads, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThreads(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		list, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No threads found.")
			fmt.Fprintln(out, "Start one with: playground chat")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Title, t.Messages, t.Ts.Format("2006-01-02 15:04"))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out, "\nUsage:")
		fmt.Fprintln(out, "  playground chat --continue     # Continue from latest thread")
		fmt.Fprintln(out, "  playground chat --thread ID    # Continue from specific thread")
		return nil
	},
}

var threadsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a saved thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThreads(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		t, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", t.Title, t.Ts.Format("2006-01-02 15:04"))
		for _, m := range t.Messages {
			fmt.Fprintf(out, "\n%s\n%s\n", promptStyle.Render(m.Role+":"), m.Content)
		}
		return nil
	},
}

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openThreads(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted thread %s\n", args[0])
		return nil
	},
}

// openThreads opens the thread store without building an orchestrator, so
// listing works without LLM credentials.
func openThreads(cmd *cobra.Command) (threads.Store, error) {
	workspacePath, cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return threads.Open(cmd.Context(), cfg.ThreadStore, workspace.ThreadsDir(workspacePath), cfg.DatabaseURL)
}

func init() {
	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsShowCmd)
	threadsCmd.AddCommand(threadsDeleteCmd)
	rootCmd.AddCommand(threadsCmd)
}

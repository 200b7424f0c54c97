package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var showCode bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal, line by line",
	Long: `Chat with the assistant in a plain terminal session.

Commands:
  /files          list generated files
  /cat <path>     print a generated file
  /export [dir]   export generated files (a directory, or "s3")
  /quit           leave the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{withThreads: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.resume(ctx, threadID, continueSession); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		defer newPrinter(out).attach(a.bus)()

		err = runChat(ctx, a, cmd.InOrStdin(), out)
		if saveErr := a.save(context.WithoutCancel(ctx)); saveErr != nil {
			a.logger.Warn().Err(saveErr).Msg("failed to save thread")
		} else if a.thread != nil {
			fmt.Fprintln(out, dimStyle.Render("thread saved: "+a.thread.ID))
		}
		return err
	},
}

// runChat reads one message per line until EOF, /quit or cancellation.
func runChat(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := chatCommand(ctx, a, line, out)
			if err != nil {
				fmt.Fprintln(out, errStyle.Render("Error: "+err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		err := a.orch.SendMessage(ctx, line, chunkWriter(out, showCode))
		fmt.Fprintln(out)
		if err := turnError(err); err != nil {
			fmt.Fprintln(out, errStyle.Render("Error: "+err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := a.save(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("failed to save thread")
		}
	}
}

func chatCommand(ctx context.Context, a *app, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/files":
		files := a.orch.Store().Files()
		if len(files) == 0 {
			fmt.Fprintln(out, "No files generated yet.")
			return false, nil
		}
		for _, f := range files {
			fmt.Fprintf(out, "  %s (%dB)\n", f.Filepath(), len(f.Content()))
		}
	case "/cat":
		if len(fields) < 2 {
			return false, errors.New("usage: /cat <path>")
		}
		f, ok := a.orch.Store().Get(fields[1])
		if !ok {
			return false, fmt.Errorf("no such file: %s", fields[1])
		}
		fmt.Fprintln(out, f.Content())
	case "/export":
		target := ""
		if len(fields) > 1 {
			target = fields[1]
		}
		n, err := a.export(ctx, target)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, noticeStyle.Render(fmt.Sprintf("exported %d files", n)))
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

func init() {
	chatCmd.Flags().BoolVar(&showCode, "show-code", true, "Stream generated code to the terminal")
	rootCmd.AddCommand(chatCmd)
}

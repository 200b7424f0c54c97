package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	generateOut    string
	generateExport string
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Send one message and write any generated file",
	Long: `Send a single message. If the assistant generates a file it is streamed
into --out (or kept in memory) and optionally exported with --export.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{sandboxDir: generateOut})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		defer newPrinter(out).attach(a.bus)()

		prompt := strings.Join(args, " ")
		if err := a.orch.SendMessage(ctx, prompt, chunkWriter(out, showCode && generateOut == "")); err != nil {
			return err
		}
		fmt.Fprintln(out)

		if gen, ok := a.orch.LastGeneration(); ok && gen.Err != nil {
			return gen.Err
		}
		if a.orch.Store().Len() == 0 {
			return nil
		}
		printChanges(out, a, 0)

		if generateExport != "" {
			n, err := a.export(ctx, generateExport)
			if err != nil {
				return errors.Join(errors.New("export failed"), err)
			}
			fmt.Fprintln(out, noticeStyle.Render(fmt.Sprintf("exported %d files", n)))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Write generated files into this directory as they stream")
	generateCmd.Flags().StringVar(&generateExport, "export", "", `Export afterwards to a directory or "s3"`)
	generateCmd.Flags().BoolVar(&showCode, "show-code", true, "Stream generated code to the terminal")
	rootCmd.AddCommand(generateCmd)
}

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"playground/internal/events"
	"playground/internal/markdown"
	"playground/internal/preview"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the live preview API and websocket",
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
		renderer, err := markdown.NewRenderer(markdown.DefaultCacheSize)
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = a.cfg.PreviewAddr
		}
		// save after every turn
		defer a.bus.Subscribe(func(ev events.Event) {
			if busy, _ := ev.Data.(bool); busy {
				return
			}
			if err := a.save(context.WithoutCancel(ctx)); err != nil {
				a.logger.Warn().Err(err).Msg("failed to save thread")
			}
		}, events.BusyChanged)()

		return preview.New(a.orch, a.bus, renderer, a.logger).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config preview_addr)")
	rootCmd.AddCommand(serveCmd)
}

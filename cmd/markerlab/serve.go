package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markerlab/markerlab/internal/dispatcher"
	"github.com/markerlab/markerlab/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the review HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(runCtx, false)
			if err != nil {
				return err
			}
			defer a.close()
			log := a.logs.Logger()

			d, err := dispatcher.NewWithMeter(log, a.otel.Meter("markerlab/dispatcher"))
			if err != nil {
				return fmt.Errorf("failed to create dispatcher: %w", err)
			}
			a.manager.RegisterHandlers(d)

			if addr == "" {
				addr = a.settings.ServerAddr
			}
			srv := server.New(server.Config{
				Addr:       addr,
				Service:    a.manager,
				Dispatcher: d,
				Keys:       dispatcher.DefaultKeyBindings().Merge(a.settings.Keys),
				Health:     a.stash.Healthcheck,
				Logger:     log,
			})

			// Warm the tag cache in the background; requests load it on demand otherwise.
			_, _ = d.Dispatch(dispatcher.Event{Command: ":TAGS:REFRESH:", Timestamp: time.Now()})

			errCh := make(chan error, 1)
			go func() {
				log.Info("Listening", "addr", addr)
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-runCtx.Done():
			}

			log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/basiceq/internal/cli"
	httpAdapter "github.com/aretw0/basiceq/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the equalizer session and exposes presets, band gains and a live event stream over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		app, err := openApp(sigCtx, cmd, true)
		if err != nil {
			return err
		}
		defer func() {
			sigCtx.Cancel()
			app.Close()
		}()

		opts := []httpAdapter.Option{httpAdapter.WithLogger(app.Logger)}
		if app.Registry != nil {
			opts = append(opts, httpAdapter.WithMetrics(app.Registry))
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", app.Config.HTTP.Port),
			Handler:           httpAdapter.NewHandler(app.Session, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting basiceq server", "address", srv.Addr, "backend", app.Config.Backend.Kind)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			sigCtx.Cancel()
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			app.Logger.Info("Start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			app.Logger.Info("basiceq server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
}

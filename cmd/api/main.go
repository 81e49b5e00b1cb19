package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "geomood",
		Short:         "Geolocated mood map backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		&cobra.Command{
			Use:   "today",
			Short: "Print today's moods as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runToday(cmd.Context(), configPath, cmd.OutOrStdout())
			},
		},
	)
	return root
}

func runServe(ctx context.Context, configPath string) error {
	app, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              app.cfg.Server.Addr,
		Handler:           app.handler,
		ReadHeaderTimeout: app.cfg.Server.ReadHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("geomood API listening", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		app.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("shutdown error", "error", err)
		}
	}
	return nil
}

func runToday(ctx context.Context, configPath string, out io.Writer) error {
	app, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	moods, err := app.svc.TodaysMoods(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(moods)
}

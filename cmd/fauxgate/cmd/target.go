package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/fauxgate/config"
	"github.com/jmcleod/fauxgate/target"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Start the sample target application",
	Long: `Runs the sample upstream application on the host and port the
configuration file assigns to it, so the proxy can be exercised end to end
without a real application behind it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		app, name, err := selectApp(cfg)
		if err != nil {
			return err
		}

		handler, err := target.New(cfg, name)
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", app.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("target app failed: %w", err)
				return
			}
			done <- nil
		}()

		fmt.Printf("Sample target app %q listening on port %d\n", name, app.Port)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		case err := <-done:
			return err
		}
	},
}

func init() {
	targetCmd.Flags().StringVar(&appName, "app", "", "name of the upstream app to run")
	rootCmd.AddCommand(targetCmd)
}

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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/fauxgate/config"
	"github.com/jmcleod/fauxgate/gate"
	"github.com/jmcleod/fauxgate/proxy"
	bboltstorage "github.com/jmcleod/fauxgate/storage/bbolt"
	"github.com/jmcleod/fauxgate/storage/memory"
)

var (
	appName string
	dataDir string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the authentication proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		app, name, err := selectApp(cfg)
		if err != nil {
			return err
		}

		logger := newLogger()

		var users gate.UserDirectory
		if dataDir != "" {
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			dir, err := bboltstorage.NewDirectoryFromFile(dataDir+"/users.db", nil)
			if err != nil {
				return fmt.Errorf("failed to open user directory: %w", err)
			}
			defer dir.Close()
			if err := dir.Seed(cfg.Users); err != nil {
				return fmt.Errorf("failed to seed user directory: %w", err)
			}
			users = dir
		} else {
			users = memory.NewDirectory(cfg.Users)
		}

		pipeline := gate.New(cfg.Settings(), app.Routes(), users, gate.WithLogger(logger))

		var proxyOpts []proxy.Option
		if cfg.Proxy.SetXProxiedBy {
			proxyOpts = append(proxyOpts, proxy.WithXProxiedBy())
		}
		proxySrv, err := proxy.New(pipeline, app.Addr(), logger, proxyOpts...)
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(chimiddleware.Recoverer)
		r.Get("/fauxgate/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Handle("/*", proxySrv)

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Proxy.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Proxying %s on port %d (app: %s)\n", app.Addr(), cfg.Proxy.Port, name)

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

// selectApp picks the upstream app to serve: the --app flag when given,
// otherwise the sole configured app.
func selectApp(cfg *config.Config) (config.UpstreamApp, string, error) {
	if appName != "" {
		app, ok := cfg.UpstreamApps[appName]
		if !ok {
			return config.UpstreamApp{}, "", fmt.Errorf("upstream app %q is not configured", appName)
		}
		return app, appName, nil
	}
	if len(cfg.UpstreamApps) != 1 {
		return config.UpstreamApp{}, "", fmt.Errorf("multiple upstream apps configured, choose one with --app")
	}
	for name, app := range cfg.UpstreamApps {
		return app, name, nil
	}
	return config.UpstreamApp{}, "", fmt.Errorf("no upstream apps configured")
}

func init() {
	serverCmd.Flags().StringVar(&appName, "app", "", "name of the upstream app to proxy")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "", "persist user lockout state under this directory (default: in-memory)")
	rootCmd.AddCommand(serverCmd)
}

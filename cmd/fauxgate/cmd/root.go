package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version is the release version stamped into the banner.
const Version = "0.3.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "fauxgate",
	Short: "fauxgate simulates an SSO session gateway in front of a web application",
	Long: `fauxgate is a reverse proxy that mimics a commercial SSO/session gateway:
cookie-based session issuance, login-form interception, path-based access
control and account lockout. Applications built against the real gateway can
be developed and tested against fauxgate instead.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

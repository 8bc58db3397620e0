package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "gateauth",
	Short: "Session authentication gate for the admin dashboard",
	Long: `gateauth serves the dashboard login, logout and app listing routes,
backed by a shared Redis session store, and provides operator tooling for
password hashes and session revocation.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gateauth.yaml", "Path to the YAML, TOML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func newLogger(cmd *cobra.Command) *log.Logger {
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "gateauth",
		ReportTimestamp: true,
	})
	if lvl, err := log.ParseLevel(logLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("unknown log level, using info", "level", logLevel)
	}
	return logger
}

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"parley/internal/app"
)

var (
	flagServerURL string
	flagDataDir   string
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Terminal client for the Parley chat backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.RunClient(app.Config{
			ServerURL: flagServerURL,
			DataDir:   flagDataDir,
			LogLevel:  flagLogLevel,
		})
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version and check for a newer release",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parley v%s\n", app.Version)
		if newer, latest, err := app.CheckForUpdate(); err == nil && newer {
			fmt.Printf("A newer release is available: v%s (run `parley update`)\n", latest)
		}
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download and install the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.SelfUpdate(cmd.OutOrStdout())
	},
}

func init() {
	// .env is optional; environment and flags win over it.
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServerURL, "server", envOrDefault("PARLEY_SERVER", "http://localhost:5001"), "backend base URL")
	flags.StringVar(&flagDataDir, "data-dir", os.Getenv("PARLEY_DATA_DIR"), "directory for the session database and log file")
	flags.StringVar(&flagLogLevel, "log-level", envOrDefault("PARLEY_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd, updateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

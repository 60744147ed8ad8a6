// Command rehber runs the contacts server and its maintenance tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rehber/rehber/internal/config"
	"github.com/rehber/rehber/internal/util/logger"
)

var version = "development"

var (
	configPath string
	logLevel   string
	dataDir    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "rehber",
	Short:         "Personal contacts manager",
	Long:          "Rehber keeps an address book in a local JSON file and serves it to the desktop UI.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.InitLogger(logger.DefaultConfig())

		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dataDir != "" {
			loaded.DataDir = dataDir
		}
		if logLevel != "" {
			loaded.Logger.Level = logLevel
		}
		logger.ReplaceGlobal(&logger.Config{Level: loaded.Logger.Level, Encoding: loaded.Logger.Encoding})

		if loaded.Remote.Enabled() {
			remote, err := config.NewRemoteLoader(cmd.Context(), loaded.Remote.Region)
			if err != nil {
				return err
			}
			if err := config.ApplyRemote(cmd.Context(), loaded, remote); err != nil {
				return fmt.Errorf("remote config: %w", err)
			}
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/app-config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")

	rootCmd.AddCommand(serveCmd, phoneCmd, exportCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

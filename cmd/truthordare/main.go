// truthordare runs the Truth or Dare prompt engine, either as an HTTP game
// server or as an interactive terminal game.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jxucoder/truthordare/internal/config"
	"github.com/jxucoder/truthordare/internal/logging"
)

var (
	version    = "dev"
	serverURL  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "truthordare",
	Short: "Truth or Dare prompt engine",
	Long: `truthordare deals truth and challenge prompts for party, couple,
family and solo games.

  truthordare play                      Play in the terminal
  truthordare serve                     Start the game server
  truthordare manual                    Show the user manual
  truthordare content show [mode]       List the loaded prompts
  truthordare content import <file>     Import a JSON or YAML prompt pack
  truthordare status <id>               Show a session on a running server`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("TOD_SERVER", "http://localhost:7080"), "game server URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("TOD_CONFIG", ""), "optional YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig reads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

// contentDB returns the content database to read from: the configured one,
// or the default one in the data dir if an import created it.
func contentDB(cfg *config.Config) string {
	if cfg.ContentDB != "" {
		return cfg.ContentDB
	}
	if _, err := os.Stat(cfg.DefaultContentDB()); err == nil {
		return cfg.DefaultContentDB()
	}
	return ""
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	truthordare "github.com/jxucoder/truthordare"
	"github.com/jxucoder/truthordare/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the game server",
	Long:  "Start the HTTP API that hosts game sessions and streams their state.",
	RunE:  runServe,
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Describe the configuration environment variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		help, err := config.Help()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), help)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(envCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg.ContentDB = contentDB(cfg)
	app, err := truthordare.NewBuilder().
		WithConfig(*cfg).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	return app.Start(ctx)
}

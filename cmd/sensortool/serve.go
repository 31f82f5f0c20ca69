package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/api"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/config"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API serving classification results over the loaded dataset.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if cfg.Dataset.Path == "" {
		return fmt.Errorf("no dataset configured (set dataset.path)")
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ds, err := dataset.LoadCSV(log, cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("building profile registry: %w", err)
	}

	srv := api.NewServer(log, &cfg.API, ds, reg, cfg.Analysis.DefaultProfile)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down API server")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	return nil
}

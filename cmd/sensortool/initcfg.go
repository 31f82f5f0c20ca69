package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/config"
)

var initOutput string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initOutput, "output", "config.yaml",
		"Path to write the configuration to")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initOutput); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", initOutput)
	}

	example, err := config.Example()
	if err != nil {
		return err
	}

	if err := os.WriteFile(initOutput, example, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", initOutput, err)
	}

	log.WithField("path", initOutput).Info("Configuration written")

	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/config"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
)

var jobsDataset string

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the job identifiers present in the dataset",
	RunE:  runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.Flags().StringVar(&jobsDataset, "dataset", "",
		"Dataset CSV path (overrides the configured path)")
}

func runJobs(cmd *cobra.Command, args []string) error {
	datasetPath := jobsDataset

	if datasetPath == "" {
		if cfgFile == "" {
			return fmt.Errorf("config file is required (use --config or --dataset)")
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		datasetPath = cfg.Dataset.Path
	}

	if datasetPath == "" {
		return fmt.Errorf("no dataset configured (set dataset.path or use --dataset)")
	}

	ds, err := dataset.LoadCSV(log, datasetPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	for _, job := range ds.Jobs() {
		fmt.Println(job)
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/config"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/report"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/store"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/upload"
)

const (
	analyzeConcurrency = 4
	knownJobsLimit     = 10
)

var (
	analyzeJobs    []string
	analyzeProfile string
	analyzeDataset string
	analyzeSave    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify one or more jobs and write reports",
	Long: `Load the measurement dataset, classify the given jobs against a
threshold profile, and write CSV (and optionally Markdown) reports.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringSliceVar(&analyzeJobs, "job", nil,
		"Job identifier to analyze (comma-separated or repeated flag)")
	analyzeCmd.Flags().StringVar(&analyzeProfile, "profile", "",
		"Threshold profile name (defaults to the configured default)")
	analyzeCmd.Flags().StringVar(&analyzeDataset, "dataset", "",
		"Dataset CSV path (overrides the configured path)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false,
		"Persist results to the configured database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	if len(analyzeJobs) == 0 {
		return fmt.Errorf("at least one --job is required")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	datasetPath := cfg.Dataset.Path
	if analyzeDataset != "" {
		datasetPath = analyzeDataset
	}

	if datasetPath == "" {
		return fmt.Errorf("no dataset configured (set dataset.path or use --dataset)")
	}

	profileName := cfg.Analysis.DefaultProfile
	if analyzeProfile != "" {
		profileName = analyzeProfile
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	ds, err := dataset.LoadCSV(log, datasetPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("building profile registry: %w", err)
	}

	gen := report.NewGenerator(log, cfg.Report.ResultsDir)
	if err := gen.Start(); err != nil {
		return err
	}

	var st store.Store

	if analyzeSave {
		st = store.NewStore(log, &cfg.API.Database)
		if err := st.Start(ctx); err != nil {
			return fmt.Errorf("starting store: %w", err)
		}

		defer func() { _ = st.Stop() }()
	}

	var uploader upload.Uploader

	if s3 := cfg.Upload.S3; s3 != nil && s3.Enabled {
		uploader, err = upload.NewS3Uploader(log, s3)
		if err != nil {
			return fmt.Errorf("creating uploader: %w", err)
		}

		if err := uploader.Preflight(ctx); err != nil {
			return fmt.Errorf("upload preflight: %w", err)
		}
	}

	// Report generation is independent per job; persistence is serialized
	// so concurrent jobs never interleave partial writes.
	var storeMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyzeConcurrency)

	for _, jobKey := range analyzeJobs {
		g.Go(func() error {
			return analyzeOne(
				gctx, cfg, ds, reg, gen, st, uploader, &storeMu, jobKey, profileName,
			)
		})
	}

	return g.Wait()
}

func analyzeOne(
	ctx context.Context,
	cfg *config.Config,
	ds *dataset.Dataset,
	reg *classify.Registry,
	gen *report.Generator,
	st store.Store,
	uploader upload.Uploader,
	storeMu *sync.Mutex,
	jobKey, profileName string,
) error {
	jobReport, err := classify.AnalyzeJob(ds, jobKey, reg, profileName)
	if err != nil {
		// An unknown job is recoverable: report it and keep classifying
		// the remaining jobs instead of cancelling the group.
		if classify.IsNotFound(err) {
			log.WithFields(logrus.Fields{
				"job":        jobKey,
				"known_jobs": dataset.TruncateList(ds.Jobs(), knownJobsLimit),
			}).Error("Job not found in dataset")

			return nil
		}

		return err
	}

	log.WithFields(logrus.Fields{
		"job":       jobKey,
		"profile":   profileName,
		"serials":   jobReport.Summary.TotalSerials,
		"passed":    jobReport.Summary.Passed,
		"failed":    jobReport.Summary.Failed,
		"anomalies": len(jobReport.Anomalies),
	}).Info("Job classified")

	csvPath, err := gen.WriteCSV(jobReport)
	if err != nil {
		return fmt.Errorf("writing CSV for job %q: %w", jobKey, err)
	}

	paths := []string{csvPath}

	if cfg.Report.Markdown {
		mdPath, err := gen.WriteMarkdown(jobReport)
		if err != nil {
			return fmt.Errorf("writing markdown for job %q: %w", jobKey, err)
		}

		paths = append(paths, mdPath)
	}

	if st != nil {
		storeMu.Lock()
		_, err := st.SaveReport(ctx, jobReport, csvPath)
		storeMu.Unlock()

		if err != nil {
			return fmt.Errorf("saving run for job %q: %w", jobKey, err)
		}
	}

	if uploader != nil {
		if err := uploader.UploadReport(ctx, jobKey, paths...); err != nil {
			return fmt.Errorf("uploading reports for job %q: %w", jobKey, err)
		}
	}

	return nil
}

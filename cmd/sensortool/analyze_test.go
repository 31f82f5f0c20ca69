package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAnalyze writes a one-job dataset and a minimal config, points the
// package flag state at them, and restores everything on cleanup.
func setupAnalyze(t *testing.T, jobs []string, profile string) string {
	t.Helper()

	dir := t.TempDir()
	resultsDir := filepath.Join(dir, "results")

	datasetPath := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(datasetPath, []byte(
		"Job #,Serial Number,Channel,Test,0,90,120\n"+
			"258.1,SN1,A,1,1.0,2.0,2.5\n",
	), 0o644))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"dataset:\n"+
			"  path: "+datasetPath+"\n"+
			"report:\n"+
			"  results_dir: "+resultsDir+"\n"+
			"  markdown: false\n",
	), 0o644))

	prevLog := log
	log = logrus.New()
	log.SetOutput(io.Discard)

	prevCfgFile := cfgFile
	prevJobs := analyzeJobs
	prevProfile := analyzeProfile
	prevDataset := analyzeDataset
	prevSave := analyzeSave

	cfgFile = configPath
	analyzeJobs = jobs
	analyzeProfile = profile
	analyzeDataset = ""
	analyzeSave = false

	t.Cleanup(func() {
		log = prevLog
		cfgFile = prevCfgFile
		analyzeJobs = prevJobs
		analyzeProfile = prevProfile
		analyzeDataset = prevDataset
		analyzeSave = prevSave
	})

	return resultsDir
}

func TestRunAnalyze_UnknownJobIsNotFatal(t *testing.T) {
	resultsDir := setupAnalyze(t, []string{"999", "258.1"}, "")

	require.NoError(t, runAnalyze(analyzeCmd, nil))

	// The known job still gets its report even though an earlier job key
	// did not resolve.
	written, err := filepath.Glob(
		filepath.Join(resultsDir, "sensor_analysis_job_258.1_*.csv"))
	require.NoError(t, err)
	assert.Len(t, written, 1)

	missing, err := filepath.Glob(
		filepath.Join(resultsDir, "sensor_analysis_job_999_*.csv"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestRunAnalyze_UnknownProfileIsFatal(t *testing.T) {
	setupAnalyze(t, []string{"258.1"}, "nope")

	err := runAnalyze(analyzeCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

package classify

import (
	"fmt"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
)

// JobReport is the full output of one classification run: the per-serial
// table, its rollup, the advisory anomaly flags, and the per-time-point
// aggregates for charting.
type JobReport struct {
	JobKey     string                 `json:"job_key"`
	Profile    string                 `json:"profile"`
	Thresholds Profile                `json:"thresholds"`
	Serials    []SerialClassification `json:"serials"`
	Summary    Summary                `json:"summary"`
	Anomalies  []AnomalyFlag          `json:"anomalies"`
	TimePoints []TimePointStats       `json:"time_points"`
}

// AnalyzeJob runs resolution, aggregation and anomaly detection for one
// job key against one dataset snapshot. The run is pure computation
// over in-memory data; re-running with the same inputs yields identical
// output.
//
// An unresolvable job key returns an error satisfying IsNotFound. A job
// whose serials all lack 120s readings is NOT an error: the report simply
// has an empty table.
func AnalyzeJob(
	d *dataset.Dataset,
	jobKey string,
	reg *Registry,
	profileName string,
) (*JobReport, error) {
	profile, err := reg.Get(profileName)
	if err != nil {
		return nil, err
	}

	rows, err := ResolveJob(d, jobKey)
	if err != nil {
		return nil, fmt.Errorf("resolving job: %w", err)
	}

	table := Aggregate(rows, profile)

	return &JobReport{
		JobKey:     jobKey,
		Profile:    profileName,
		Thresholds: profile,
		Serials:    table,
		Summary:    Summarize(table),
		Anomalies:  DetectAnomalies(table, profile),
		TimePoints: TimePointSummary(rows),
	}, nil
}

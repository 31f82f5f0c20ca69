package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
)

// AnalysisRun is one persisted classification run for a job.
type AnalysisRun struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	JobKey       string    `gorm:"index;not null" json:"job_key"`
	Profile      string    `gorm:"not null" json:"profile"`
	TotalSerials int       `json:"total_serials"`
	Passed       int       `json:"passed"`
	Failed       int       `json:"failed"`
	DataMissing  int       `json:"data_missing"`
	PassRate     float64   `json:"pass_rate"`
	FailRate     float64   `json:"fail_rate"`
	ReportPath   string    `json:"report_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SerialResult is one serial's verdict within a run. The per-trial detail
// is stored as a JSON document; queries filter on the indexed columns.
type SerialResult struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	RunID        uint    `gorm:"index;not null" json:"run_id"`
	SerialNumber string  `gorm:"index;not null" json:"serial_number"`
	Channel      string  `json:"channel,omitempty"`
	StdDev120s   float64 `json:"std_dev_120s"`
	FinalStatus  string  `gorm:"index;not null" json:"final_status"`
	TestsJSON    string  `gorm:"type:text" json:"-"`
}

// AnomalyRecord is one advisory anomaly flag within a run.
type AnomalyRecord struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	RunID        uint   `gorm:"index;not null" json:"run_id"`
	SerialNumber string `gorm:"not null" json:"serial_number"`
	Channel      string `json:"channel,omitempty"`
	Kind         string `gorm:"not null" json:"kind"`
	Severity     string `gorm:"not null" json:"severity"`
	Message      string `json:"message"`
}

// Tests decodes the stored per-trial detail.
func (r *SerialResult) Tests() ([]classify.TestResult, error) {
	if r.TestsJSON == "" {
		return nil, nil
	}

	var tests []classify.TestResult
	if err := json.Unmarshal([]byte(r.TestsJSON), &tests); err != nil {
		return nil, fmt.Errorf("decoding tests for %s: %w", r.SerialNumber, err)
	}

	return tests, nil
}

// newSerialResult flattens one classification into a storable row.
func newSerialResult(runID uint, sc *classify.SerialClassification) (SerialResult, error) {
	tests, err := json.Marshal(sc.Tests)
	if err != nil {
		return SerialResult{}, fmt.Errorf("encoding tests for %s: %w", sc.SerialNumber, err)
	}

	return SerialResult{
		RunID:        runID,
		SerialNumber: sc.SerialNumber,
		Channel:      sc.Channel,
		StdDev120s:   sc.StdDev120s,
		FinalStatus:  string(sc.FinalStatus),
		TestsJSON:    string(tests),
	}, nil
}

// newAnomalyRecord flattens one anomaly flag into a storable row.
func newAnomalyRecord(runID uint, f *classify.AnomalyFlag) AnomalyRecord {
	return AnomalyRecord{
		RunID:        runID,
		SerialNumber: f.SerialNumber,
		Channel:      f.Channel,
		Kind:         string(f.Kind),
		Severity:     string(f.Severity),
		Message:      f.Message,
	}
}

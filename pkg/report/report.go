package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
)

// Generator writes analysis reports to the results directory.
type Generator struct {
	log logrus.FieldLogger
	dir string

	// now is swappable for deterministic file names in tests.
	now func() time.Time
}

// NewGenerator creates a report generator writing into dir.
func NewGenerator(log logrus.FieldLogger, dir string) *Generator {
	return &Generator{
		log: log.WithField("component", "report"),
		dir: dir,
		now: time.Now,
	}
}

// Start ensures the results directory exists.
func (g *Generator) Start() error {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return fmt.Errorf("creating results directory: %w", err)
	}

	return nil
}

// fileName builds a timestamped report file name for a job.
func (g *Generator) fileName(jobKey, ext string) string {
	return fmt.Sprintf(
		"sensor_analysis_job_%s_%s.%s",
		sanitizeJobKey(jobKey),
		g.now().Format("20060102_150405"),
		ext,
	)
}

// sanitizeJobKey makes a job key safe for use in a file name.
func sanitizeJobKey(jobKey string) string {
	r := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		" ", "_",
		":", "_",
	)

	return r.Replace(jobKey)
}

// formatReading renders a voltage for report output, blank when missing.
func formatReading(v *float64) string {
	if v == nil {
		return ""
	}

	return fmt.Sprintf("%.1f", *v)
}

// formatPct renders a percent change, blank when missing.
func formatPct(v *float64) string {
	if v == nil {
		return ""
	}

	return fmt.Sprintf("%.1f%%", *v)
}

// maxTests returns the widest trial count across the table. The CSV layout
// repeats the per-trial column group this many times.
func maxTests(serials []classify.SerialClassification) int {
	max := 0
	for i := range serials {
		if n := len(serials[i].Tests); n > max {
			max = n
		}
	}

	return max
}

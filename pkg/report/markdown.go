package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
)

// codeLegend maps classification codes to reader-facing descriptions.
var codeLegend = []struct {
	code classify.Code
	desc string
}{
	{classify.CodeFailedLow, "120s reading below the minimum"},
	{classify.CodeFailedHigh, "120s reading above the maximum"},
	{classify.CodeTolNegative, "percent change below tolerance"},
	{classify.CodeTolPositive, "percent change above tolerance"},
	{classify.CodeTestToTest, "test-to-test variation over the std dev limit"},
	{classify.CodeDataMissing, "no 120s reading recorded"},
}

// WriteMarkdown writes a human-readable summary next to the CSV report.
// Returns the written file path.
func (g *Generator) WriteMarkdown(report *classify.JobReport) (string, error) {
	path := filepath.Join(g.dir, g.fileName(report.JobKey, "md"))

	if err := os.WriteFile(path, []byte(renderMarkdown(report)), 0644); err != nil {
		return "", fmt.Errorf("writing markdown report: %w", err)
	}

	g.log.WithField("path", path).Info("Markdown report written")

	return path, nil
}

func renderMarkdown(report *classify.JobReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Sensor Analysis Report: Job %s\n\n", report.JobKey)

	fmt.Fprintf(&b, "## Thresholds\n\n")
	fmt.Fprintf(&b, "Profile: **%s**\n\n", report.Profile)
	fmt.Fprintf(&b, "| Limit | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| 120s minimum | %.2f V |\n", report.Thresholds.Min120s)
	fmt.Fprintf(&b, "| 120s maximum | %.2f V |\n", report.Thresholds.Max120s)
	fmt.Fprintf(&b, "| %%Chg minimum | %.2f%% |\n", report.Thresholds.MinPctChange)
	fmt.Fprintf(&b, "| %%Chg maximum | %.2f%% |\n", report.Thresholds.MaxPctChange)
	fmt.Fprintf(&b, "| Std dev limit | %.3f |\n\n", report.Thresholds.MaxStdDev)

	s := report.Summary
	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Serials analyzed: %d\n", s.TotalSerials)
	fmt.Fprintf(&b, "- Passed: %d\n", s.Passed)
	fmt.Fprintf(&b, "- Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "- Data missing: %d\n", s.DataMissing)
	fmt.Fprintf(&b, "- Pass rate: %.1f%%\n", s.PassRate)
	fmt.Fprintf(&b, "- Fail rate: %.1f%%\n\n", s.FailRate)

	if failed := classify.FilterByStatus(
		report.Serials, classify.CodeFailedLow, classify.CodeFailedHigh,
	); len(failed) > 0 {
		fmt.Fprintf(&b, "## Failed units\n\n")

		for i := range failed {
			fmt.Fprintf(&b, "- %s (channel %s): %s\n",
				failed[i].SerialNumber, failed[i].Channel, failed[i].FinalStatus)
		}

		fmt.Fprintf(&b, "\n")
	}

	if len(report.Anomalies) > 0 {
		fmt.Fprintf(&b, "## Anomalies\n\n")
		fmt.Fprintf(&b, "| Serial | Kind | Severity | Detail |\n|---|---|---|---|\n")

		for i := range report.Anomalies {
			a := &report.Anomalies[i]
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				a.SerialNumber, a.Kind, a.Severity, a.Message)
		}

		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Code legend\n\n")

	for _, entry := range codeLegend {
		fmt.Fprintf(&b, "- `%s`: %s\n", entry.code, entry.desc)
	}

	return b.String()
}

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
)

// WriteCSV writes the per-serial classification table in the layout the
// downstream LIMS import expects: fixed identity columns followed by one
// column group per trial. Returns the written file path.
func (g *Generator) WriteCSV(report *classify.JobReport) (string, error) {
	path := filepath.Join(g.dir, g.fileName(report.JobKey, "csv"))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)

	trials := maxTests(report.Serials)

	header := []string{"Serial Number", "Channel", "Pass/Fail", "120s(St.Dev.)"}
	for n := 1; n <= trials; n++ {
		header = append(header,
			fmt.Sprintf("0s(T%d)", n),
			fmt.Sprintf("90s(T%d)", n),
			fmt.Sprintf("120s(T%d)", n),
			fmt.Sprintf("%%Chg(T%d)", n),
			fmt.Sprintf("Status(T%d)", n),
		)
	}

	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	for i := range report.Serials {
		if err := w.Write(serialRecord(&report.Serials[i], trials)); err != nil {
			return "", fmt.Errorf("writing record for %s: %w", report.Serials[i].SerialNumber, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing report: %w", err)
	}

	g.log.WithFields(logrus.Fields{
		"job":     report.JobKey,
		"serials": len(report.Serials),
		"path":    path,
	}).Info("CSV report written")

	return path, nil
}

// serialRecord flattens one serial's classification into a CSV record.
// Serials with fewer trials than the widest one get empty trailing cells.
func serialRecord(sc *classify.SerialClassification, trials int) []string {
	record := []string{
		sc.SerialNumber,
		sc.Channel,
		string(sc.FinalStatus),
		fmt.Sprintf("%.3f", sc.StdDev120s),
	}

	for n := 0; n < trials; n++ {
		if n >= len(sc.Tests) {
			record = append(record, "", "", "", "", "")

			continue
		}

		tr := &sc.Tests[n]
		record = append(record,
			formatReading(tr.V0),
			formatReading(tr.V90),
			formatReading(tr.V120),
			formatPct(tr.PctChange),
			tr.Status,
		)
	}

	return record
}

package classify

import (
	"fmt"
	"math"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
)

// TestResult carries the per-test fields of one classified trial.
type TestResult struct {
	// Label is the ordinal T1..Tn within the serial, in input row order.
	Label string `json:"label"`

	V0   *float64 `json:"v0"`
	V90  *float64 `json:"v90"`
	V120 *float64 `json:"v120"`

	// PctChange is kept at full precision; display formatting is a
	// presentation concern.
	PctChange *float64 `json:"pct_change"`

	Status string `json:"status"`
	Codes  []Code `json:"codes"`
}

// SerialClassification is the engine's verdict for one sensor unit.
type SerialClassification struct {
	SerialNumber string       `json:"serial_number"`
	Channel      string       `json:"channel,omitempty"`
	StdDev120s   float64      `json:"std_dev_120s"`
	Tests        []TestResult `json:"tests"`
	FinalStatus  Code         `json:"final_status"`
}

// Aggregate groups the resolved job rows by serial number and reduces each
// group to a single classification. Serials without any valid 120s reading
// cannot be classified and are dropped. Group order follows first
// appearance in the input; row order within a group is preserved so the
// T1..Tn labels are stable.
func Aggregate(rows []dataset.Row, p Profile) []SerialClassification {
	var order []string

	groups := make(map[string][]dataset.Row, len(rows))

	for i := range rows {
		sn := rows[i].SerialNumber
		if _, ok := groups[sn]; !ok {
			order = append(order, sn)
		}

		groups[sn] = append(groups[sn], rows[i])
	}

	out := make([]SerialClassification, 0, len(order))

	for _, sn := range order {
		group := groups[sn]

		var v120s []float64

		for i := range group {
			if v := group[i].Reading(120); v != nil {
				v120s = append(v120s, *v)
			}
		}

		if len(v120s) == 0 {
			continue
		}

		sc := SerialClassification{
			SerialNumber: sn,
			Channel:      group[0].Channel,
			StdDev120s:   sampleStdDev(v120s),
			Tests:        make([]TestResult, 0, len(group)),
		}

		var accumulated []Code

		for i, row := range DeriveMetrics(group) {
			tc := ClassifyTest(row, p)

			sc.Tests = append(sc.Tests, TestResult{
				Label:     fmt.Sprintf("T%d", i+1),
				V0:        row.Reading(0),
				V90:       row.Reading(90),
				V120:      row.Reading(120),
				PctChange: row.PctChange90120,
				Status:    tc.Status,
				Codes:     tc.Codes,
			})

			accumulated = append(accumulated, tc.Codes...)
		}

		// Test-to-test variability is checked once per serial.
		if sc.StdDev120s > p.MaxStdDev {
			accumulated = append(accumulated, CodeTestToTest)
		}

		sc.FinalStatus = ResolveFinal(accumulated)

		out = append(out, sc)
	}

	return out
}

// sampleStdDev returns the sample standard deviation. A single value has
// zero deviation by convention rather than being undefined.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}

	return math.Sqrt(sq / float64(len(values)-1))
}

// Summary is the pass/fail rollup over a classification table. Tolerance
// and variability codes count as passing; units without data are excluded
// from the rate denominator entirely.
type Summary struct {
	TotalSerials int     `json:"total_serials"`
	Passed       int     `json:"passed"`
	Failed       int     `json:"failed"`
	DataMissing  int     `json:"data_missing"`
	PassRate     float64 `json:"pass_rate"`
	FailRate     float64 `json:"fail_rate"`
}

// Summarize computes the pass/fail rollup for a classification table.
func Summarize(table []SerialClassification) Summary {
	s := Summary{TotalSerials: len(table)}

	for i := range table {
		switch table[i].FinalStatus {
		case CodePass, CodeTolNegative, CodeTestToTest, CodeTolPositive:
			s.Passed++
		case CodeFailedLow, CodeFailedHigh:
			s.Failed++
		case CodeDataMissing:
			s.DataMissing++
		}
	}

	if counted := s.Passed + s.Failed; counted > 0 {
		s.PassRate = float64(s.Passed) / float64(counted) * 100
		s.FailRate = float64(s.Failed) / float64(counted) * 100
	}

	return s
}

// FilterByStatus returns the table rows whose final status is one of the
// given codes, preserving order. Display layers use this for status
// toggles; it never affects the authoritative table.
func FilterByStatus(table []SerialClassification, statuses ...Code) []SerialClassification {
	want := make(map[Code]struct{}, len(statuses))
	for _, c := range statuses {
		want[c] = struct{}{}
	}

	out := make([]SerialClassification, 0, len(table))

	for i := range table {
		if _, ok := want[table[i].FinalStatus]; ok {
			out = append(out, table[i])
		}
	}

	return out
}

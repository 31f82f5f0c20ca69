package classify

import (
	"sort"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
)

// TimePointStats is the descriptive summary of all readings at one time
// offset across a job subset. Chart layers consume this series.
type TimePointStats struct {
	Offset int     `json:"offset_s"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P5     float64 `json:"p5"`
	P95    float64 `json:"p95"`
}

// TimePointSummary aggregates readings per time offset over the given
// rows. Offsets with no present readings are omitted.
func TimePointSummary(rows []dataset.Row) []TimePointStats {
	out := make([]TimePointStats, 0, len(dataset.TimeOffsets))

	for _, offset := range dataset.TimeOffsets {
		var values []float64

		for i := range rows {
			if v := rows[i].Reading(offset); v != nil {
				values = append(values, *v)
			}
		}

		if len(values) == 0 {
			continue
		}

		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)

		var sum float64
		for _, v := range sorted {
			sum += v
		}

		out = append(out, TimePointStats{
			Offset: offset,
			Count:  len(values),
			Mean:   sum / float64(len(values)),
			StdDev: sampleStdDev(values),
			P5:     percentileFloat(sorted, 5),
			P95:    percentileFloat(sorted, 95),
		})
	}

	return out
}

// percentileFloat calculates the p-th percentile from sorted values using
// the nearest-rank method.
func percentileFloat(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}

	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return sorted[idx]
}

package classify

import (
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
)

// DerivedRow is a raw row plus its derived metrics.
type DerivedRow struct {
	dataset.Row

	// PctChange90120 is the 90s to 120s change relative to the 0s to 90s
	// rise, in percent. Nil when any operand is missing or the rise is zero.
	PctChange90120 *float64
}

// DeriveMetrics attaches the percent-change metric to each row.
func DeriveMetrics(rows []dataset.Row) []DerivedRow {
	out := make([]DerivedRow, len(rows))

	for i := range rows {
		out[i] = DerivedRow{
			Row:            rows[i],
			PctChange90120: pctChange(&rows[i]),
		}
	}

	return out
}

// pctChange computes (V120 - V90) / (V90 - V0) * 100. A zero denominator
// or missing operand yields nil, which downstream suppresses the tolerance
// checks for the row instead of failing it.
func pctChange(r *dataset.Row) *float64 {
	v0 := r.Reading(0)
	v90 := r.Reading(90)
	v120 := r.Reading(120)

	if v0 == nil || v90 == nil || v120 == nil {
		return nil
	}

	denom := *v90 - *v0
	if denom == 0 {
		return nil
	}

	pct := (*v120 - *v90) / denom * 100

	return &pct
}

package classify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
)

// ErrJobNotFound is returned when no dataset rows match a job key. It is a
// recoverable outcome: callers are expected to surface the known job
// identifiers (see Dataset.Jobs) rather than abort.
var ErrJobNotFound = errors.New("job not found")

// IsNotFound reports whether err is a job-resolution miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}

// ResolveJob returns the dataset rows belonging to the given job key,
// preserving dataset order. Operator-entered keys are inconsistently
// formatted, so resolution cascades through four tiers, each attempted
// only when the previous one matched nothing:
//
//  1. exact equality against the trimmed key
//  2. equality with the stored job id trimmed as well
//  3. prefix match, so a bare "258" matches "258.1" and "258.2"
//  4. case-insensitive prefix match
func ResolveJob(d *dataset.Dataset, jobKey string) ([]dataset.Row, error) {
	key := strings.TrimSpace(jobKey)
	rows := d.Rows()

	tiers := []func(jobID string) bool{
		func(jobID string) bool {
			return jobID == key
		},
		func(jobID string) bool {
			return strings.TrimSpace(jobID) == key
		},
		func(jobID string) bool {
			return strings.HasPrefix(strings.TrimSpace(jobID), key)
		},
		func(jobID string) bool {
			return strings.HasPrefix(
				strings.ToLower(strings.TrimSpace(jobID)),
				strings.ToLower(key),
			)
		},
	}

	for _, match := range tiers {
		var subset []dataset.Row

		for i := range rows {
			if match(rows[i].JobID) {
				subset = append(subset, rows[i])
			}
		}

		if len(subset) > 0 {
			return subset, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrJobNotFound, jobKey)
}

package classify

import "fmt"

// AnomalyKind names a secondary heuristic check.
type AnomalyKind string

// Anomaly kinds.
const (
	AnomalyHighVariability   AnomalyKind = "HighVariability"
	AnomalyLargeDelta        AnomalyKind = "LargeDelta"
	AnomalyInconsistentTests AnomalyKind = "InconsistentTests"
)

// Severity grades an anomaly flag.
type Severity string

// Severities.
const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
)

const (
	// stdDevAnomalyFactor scales the profile's variability limit; crossing
	// the scaled limit is a stronger signal than the TT code.
	stdDevAnomalyFactor = 2.0

	// deltaAnomalyVolts is the absolute 120s reading spread that flags a
	// unit, independent of the profile in use.
	deltaAnomalyVolts = 3.0
)

// AnomalyFlag is an advisory signal layered on top of the authoritative
// classification. Flags never alter a unit's final status.
type AnomalyFlag struct {
	SerialNumber string      `json:"serial_number"`
	Channel      string      `json:"channel,omitempty"`
	Kind         AnomalyKind `json:"kind"`
	Severity     Severity    `json:"severity"`
	Message      string      `json:"message"`
}

// DetectAnomalies runs the outlier heuristics over a classification table.
// Each check fires at most once per serial; flags are emitted in table
// order with checks in a fixed order, so output is deterministic.
func DetectAnomalies(table []SerialClassification, p Profile) []AnomalyFlag {
	var flags []AnomalyFlag

	for i := range table {
		sc := &table[i]

		if limit := p.MaxStdDev * stdDevAnomalyFactor; sc.StdDev120s > limit {
			flags = append(flags, AnomalyFlag{
				SerialNumber: sc.SerialNumber,
				Channel:      sc.Channel,
				Kind:         AnomalyHighVariability,
				Severity:     SeverityHigh,
				Message: fmt.Sprintf(
					"120s std dev %.3f V exceeds %.3f V (%gx profile limit)",
					sc.StdDev120s, limit, stdDevAnomalyFactor),
			})
		}

		if delta, ok := reading120Spread(sc); ok && delta > deltaAnomalyVolts {
			flags = append(flags, AnomalyFlag{
				SerialNumber: sc.SerialNumber,
				Channel:      sc.Channel,
				Kind:         AnomalyLargeDelta,
				Severity:     SeverityMedium,
				Message: fmt.Sprintf(
					"120s readings span %.3f V across tests (limit %.1f V)",
					delta, deltaAnomalyVolts),
			})
		}

		if hasInconsistentTests(sc) {
			flags = append(flags, AnomalyFlag{
				SerialNumber: sc.SerialNumber,
				Channel:      sc.Channel,
				Kind:         AnomalyInconsistentTests,
				Severity:     SeverityMedium,
				Message:      "repeated tests disagree: unit both passes and fails",
			})
		}
	}

	return flags
}

// reading120Spread returns max-min over the serial's present 120s readings.
func reading120Spread(sc *SerialClassification) (float64, bool) {
	var (
		lo, hi float64
		seen   bool
	)

	for i := range sc.Tests {
		v := sc.Tests[i].V120
		if v == nil {
			continue
		}

		if !seen {
			lo, hi = *v, *v
			seen = true

			continue
		}

		if *v < lo {
			lo = *v
		}

		if *v > hi {
			hi = *v
		}
	}

	return hi - lo, seen
}

// hasInconsistentTests reports whether the serial has at least one clean
// pass and at least one test with any failure code.
func hasInconsistentTests(sc *SerialClassification) bool {
	var passed, failed bool

	for i := range sc.Tests {
		if sc.Tests[i].Status == string(CodePass) {
			passed = true
		} else {
			failed = true
		}
	}

	return passed && failed
}

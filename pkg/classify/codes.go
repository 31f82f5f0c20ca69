package classify

import "sort"

// Code identifies a specific threshold rule violation.
type Code string

// Failure codes, from most to least severe under priority resolution.
const (
	CodeFailedLow   Code = "FL"  // 120s reading below minimum
	CodeFailedHigh  Code = "FH"  // 120s reading above maximum
	CodeTolNegative Code = "OT-" // percent change below tolerance
	CodeTestToTest  Code = "TT"  // 120s std dev across tests too high
	CodeTolPositive Code = "OT+" // percent change above tolerance
	CodeDataMissing Code = "DM"  // no 120s reading for the test
	CodePass        Code = "PASS"
)

// codePriority orders codes for final-status resolution. A catastrophic
// out-of-spec voltage must never be masked by a tolerance or variability
// code, and DM ranks last because an incomplete unit is not a verified
// failure.
var codePriority = map[Code]int{
	CodeFailedLow:   1,
	CodeFailedHigh:  2,
	CodeTolNegative: 3,
	CodeTestToTest:  4,
	CodeTolPositive: 5,
	CodeDataMissing: 6,
}

// unknownCodePriority ranks codes outside the table behind every known code.
const unknownCodePriority = 99

func priorityOf(c Code) int {
	if p, ok := codePriority[c]; ok {
		return p
	}

	return unknownCodePriority
}

// ResolveFinal reduces an accumulated code set to the single
// highest-priority code. An empty set resolves to PASS. Codes co-occurring
// with a higher-priority one are discarded; downstream pass/fail counts
// depend on this single-code reduction.
func ResolveFinal(codes []Code) Code {
	if len(codes) == 0 {
		return CodePass
	}

	best := codes[0]

	for _, c := range codes[1:] {
		if priorityOf(c) < priorityOf(best) {
			best = c
		}
	}

	return best
}

// StatusString renders a per-test code set for display: "PASS" when empty,
// otherwise the deduplicated codes sorted lexically and comma-joined.
func StatusString(codes []Code) string {
	if len(codes) == 0 {
		return string(CodePass)
	}

	uniq := dedupeCodes(codes)

	s := make([]string, len(uniq))
	for i, c := range uniq {
		s[i] = string(c)
	}

	out := s[0]
	for _, part := range s[1:] {
		out += "," + part
	}

	return out
}

// dedupeCodes returns the unique codes in lexical order.
func dedupeCodes(codes []Code) []Code {
	seen := make(map[Code]struct{}, len(codes))
	uniq := make([]Code, 0, len(codes))

	for _, c := range codes {
		if _, ok := seen[c]; ok {
			continue
		}

		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}

	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	return uniq
}

package classify

// TestClassification is the outcome of evaluating one derived row against
// a threshold profile.
type TestClassification struct {
	// Codes holds the unique failure codes in lexical order. Empty means
	// the test passed every criterion.
	Codes []Code

	// Status is "PASS" or the codes comma-joined, for display.
	Status string
}

// ClassifyTest evaluates a single test row. Each rule is independent; a
// row can accumulate several codes. DM is only set when the 120s reading
// is missing, which also suppresses FL/FH for that row. A missing percent
// change suppresses both tolerance checks.
func ClassifyTest(row DerivedRow, p Profile) TestClassification {
	var codes []Code

	if v120 := row.Reading(120); v120 != nil {
		if *v120 < p.Min120s {
			codes = append(codes, CodeFailedLow)
		}

		if *v120 > p.Max120s {
			codes = append(codes, CodeFailedHigh)
		}
	} else {
		codes = append(codes, CodeDataMissing)
	}

	if pct := row.PctChange90120; pct != nil {
		if *pct < p.MinPctChange {
			codes = append(codes, CodeTolNegative)
		}

		if *pct > p.MaxPctChange {
			codes = append(codes, CodeTolPositive)
		}
	}

	return TestClassification{
		Codes:  dedupeCodes(codes),
		Status: StatusString(codes),
	}
}

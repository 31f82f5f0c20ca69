package classify

import (
	"testing"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow(serial string, v0, v90, v120 *float64) dataset.Row {
	return dataset.Row{
		JobID:        "258",
		SerialNumber: serial,
		Channel:      "A",
		Readings: map[int]*float64{
			0:   v0,
			90:  v90,
			120: v120,
		},
	}
}

func standardProfile(t *testing.T) Profile {
	t.Helper()

	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	p, err := reg.Get(ProfileStandard)
	require.NoError(t, err)

	return p
}

func TestAggregate_MultiTestSerial(t *testing.T) {
	// Three trials for one unit: the first 120s reading fails low, and the
	// spread of {1.2, 1.8, 1.5} pushes std dev (~0.3) over the Standard
	// limit, adding TT. FL outranks TT in the final status.
	rows := []dataset.Row{
		testRow("SN1", dataset.Float(1.0), dataset.Float(1.1), dataset.Float(1.2)),
		testRow("SN1", dataset.Float(1.0), dataset.Float(1.6), dataset.Float(1.8)),
		testRow("SN1", dataset.Float(1.0), dataset.Float(1.4), dataset.Float(1.5)),
	}

	table := Aggregate(rows, standardProfile(t))
	require.Len(t, table, 1)

	sc := table[0]
	assert.Equal(t, "SN1", sc.SerialNumber)
	assert.Equal(t, "A", sc.Channel)
	assert.InDelta(t, 0.3, sc.StdDev120s, 0.01)
	assert.Greater(t, sc.StdDev120s, 0.3)
	assert.Equal(t, CodeFailedLow, sc.FinalStatus)

	require.Len(t, sc.Tests, 3)
	assert.Equal(t, "T1", sc.Tests[0].Label)
	assert.Equal(t, "T2", sc.Tests[1].Label)
	assert.Equal(t, "T3", sc.Tests[2].Label)
	assert.Equal(t, "FL", sc.Tests[0].Status)
	assert.Equal(t, "PASS", sc.Tests[1].Status)
	assert.Equal(t, "PASS", sc.Tests[2].Status)
}

func TestAggregate_SingleReadingNoTT(t *testing.T) {
	rows := []dataset.Row{
		testRow("SN1", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.5)),
	}

	table := Aggregate(rows, standardProfile(t))
	require.Len(t, table, 1)

	// One valid 120s reading: deviation is defined as zero, never TT.
	assert.Zero(t, table[0].StdDev120s)
	assert.Equal(t, CodePass, table[0].FinalStatus)
}

func TestAggregate_DropsSerialWithoutReadings(t *testing.T) {
	rows := []dataset.Row{
		testRow("SN1", dataset.Float(1.0), dataset.Float(2.0), nil),
		testRow("SN1", nil, nil, nil),
		testRow("SN2", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.5)),
	}

	table := Aggregate(rows, standardProfile(t))
	require.Len(t, table, 1)
	assert.Equal(t, "SN2", table[0].SerialNumber)
}

func TestAggregate_PartialMissingIsDM(t *testing.T) {
	// One missing and one present 120s reading: the serial stays in the
	// table, the missing trial is coded DM, and DM loses priority to the
	// passing trial... i.e. the final status reduces over {DM} only.
	rows := []dataset.Row{
		testRow("SN1", dataset.Float(1.0), dataset.Float(2.0), nil),
		testRow("SN1", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.5)),
	}

	table := Aggregate(rows, standardProfile(t))
	require.Len(t, table, 1)

	sc := table[0]
	assert.Equal(t, "DM", sc.Tests[0].Status)
	assert.Equal(t, "PASS", sc.Tests[1].Status)
	assert.Equal(t, CodeDataMissing, sc.FinalStatus)
}

func TestAggregate_GroupOrderAndInterleaving(t *testing.T) {
	// Groups appear in first-appearance order even when rows interleave,
	// and T labels follow input order within each group.
	rows := []dataset.Row{
		testRow("SN2", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.0)),
		testRow("SN1", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.1)),
		testRow("SN2", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.2)),
	}

	table := Aggregate(rows, standardProfile(t))
	require.Len(t, table, 2)
	assert.Equal(t, "SN2", table[0].SerialNumber)
	assert.Equal(t, "SN1", table[1].SerialNumber)

	require.Len(t, table[0].Tests, 2)
	require.NotNil(t, table[0].Tests[0].V120)
	assert.Equal(t, 2.0, *table[0].Tests[0].V120)
	assert.Equal(t, 2.2, *table[0].Tests[1].V120)
}

func TestAggregate_FinalStatusAlwaysSingleCode(t *testing.T) {
	// A unit failing low and out of tolerance reports only FL; the OT-
	// detail remains visible in the per-test status.
	rows := []dataset.Row{
		testRow("SN1", dataset.Float(1.0), dataset.Float(1.3), dataset.Float(1.2)),
	}

	p := standardProfile(t)

	table := Aggregate(rows, p)
	require.Len(t, table, 1)

	sc := table[0]
	assert.Equal(t, CodeFailedLow, sc.FinalStatus)
	assert.NotContains(t, string(sc.FinalStatus), ",")
	assert.Equal(t, "FL,OT-", sc.Tests[0].Status)
}

func TestAggregate_Idempotent(t *testing.T) {
	rows := []dataset.Row{
		testRow("SN1", dataset.Float(1.0), dataset.Float(1.1), dataset.Float(1.2)),
		testRow("SN1", dataset.Float(1.0), dataset.Float(1.6), dataset.Float(1.8)),
		testRow("SN2", dataset.Float(1.0), dataset.Float(2.0), nil),
		testRow("SN3", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.5)),
	}

	p := standardProfile(t)

	first := Aggregate(rows, p)
	second := Aggregate(rows, p)

	assert.Equal(t, first, second)
}

func TestSummarize(t *testing.T) {
	table := []SerialClassification{
		{SerialNumber: "A", FinalStatus: CodePass},
		{SerialNumber: "B", FinalStatus: CodeTolNegative},
		{SerialNumber: "C", FinalStatus: CodeTestToTest},
		{SerialNumber: "D", FinalStatus: CodeTolPositive},
		{SerialNumber: "E", FinalStatus: CodeFailedLow},
		{SerialNumber: "F", FinalStatus: CodeFailedHigh},
		{SerialNumber: "G", FinalStatus: CodeDataMissing},
		{SerialNumber: "H", FinalStatus: CodeDataMissing},
	}

	s := Summarize(table)

	assert.Equal(t, 8, s.TotalSerials)
	assert.Equal(t, 4, s.Passed)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 2, s.DataMissing)

	// DM units are excluded from the rate denominator.
	assert.InDelta(t, 66.67, s.PassRate, 0.01)
	assert.InDelta(t, 33.33, s.FailRate, 0.01)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Zero(t, s.TotalSerials)
	assert.Zero(t, s.PassRate)
	assert.Zero(t, s.FailRate)
}

func TestFilterByStatus(t *testing.T) {
	table := []SerialClassification{
		{SerialNumber: "A", FinalStatus: CodePass},
		{SerialNumber: "B", FinalStatus: CodeFailedLow},
		{SerialNumber: "C", FinalStatus: CodeDataMissing},
		{SerialNumber: "D", FinalStatus: CodeFailedLow},
	}

	got := FilterByStatus(table, CodeFailedLow)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].SerialNumber)
	assert.Equal(t, "D", got[1].SerialNumber)

	assert.Len(t, FilterByStatus(table, CodePass, CodeDataMissing), 2)
	assert.Empty(t, FilterByStatus(table, CodeFailedHigh))
}

func TestSampleStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{
			name:   "empty",
			values: nil,
			want:   0,
		},
		{
			name:   "single value has zero deviation",
			values: []float64{1.7},
			want:   0,
		},
		{
			name:   "known spread",
			values: []float64{1.2, 1.8, 1.5},
			want:   0.3,
		},
		{
			name:   "identical values",
			values: []float64{2.0, 2.0, 2.0},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, sampleStdDev(tt.values), 1e-9)
		})
	}
}

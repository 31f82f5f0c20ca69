package classify

import (
	"testing"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readingsRow(v0, v90, v120 *float64) dataset.Row {
	return dataset.Row{
		JobID:        "1",
		SerialNumber: "SN1",
		Readings: map[int]*float64{
			0:   v0,
			90:  v90,
			120: v120,
		},
	}
}

func TestDeriveMetrics_PctChange(t *testing.T) {
	tests := []struct {
		name    string
		v0      *float64
		v90     *float64
		v120    *float64
		want    *float64
		wantNil bool
	}{
		{
			name: "rise-relative change",
			v0:   dataset.Float(1.0),
			v90:  dataset.Float(2.0),
			v120: dataset.Float(2.5),
			want: dataset.Float(50.0),
		},
		{
			name: "negative change",
			v0:   dataset.Float(1.0),
			v90:  dataset.Float(3.0),
			v120: dataset.Float(2.8),
			want: dataset.Float(-10.0),
		},
		{
			name:    "zero denominator yields nil",
			v0:      dataset.Float(2.0),
			v90:     dataset.Float(2.0),
			v120:    dataset.Float(2.5),
			wantNil: true,
		},
		{
			name:    "missing v0 yields nil",
			v90:     dataset.Float(2.0),
			v120:    dataset.Float(2.5),
			wantNil: true,
		},
		{
			name:    "missing v90 yields nil",
			v0:      dataset.Float(1.0),
			v120:    dataset.Float(2.5),
			wantNil: true,
		},
		{
			name:    "missing v120 yields nil",
			v0:      dataset.Float(1.0),
			v90:     dataset.Float(2.0),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derived := DeriveMetrics([]dataset.Row{
				readingsRow(tt.v0, tt.v90, tt.v120),
			})
			require.Len(t, derived, 1)

			got := derived[0].PctChange90120
			if tt.wantNil {
				assert.Nil(t, got)

				return
			}

			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestDeriveMetrics_PreservesRows(t *testing.T) {
	rows := []dataset.Row{
		readingsRow(dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.5)),
		readingsRow(nil, nil, nil),
	}

	derived := DeriveMetrics(rows)
	require.Len(t, derived, 2)
	assert.Equal(t, "SN1", derived[0].SerialNumber)
	assert.NotNil(t, derived[0].PctChange90120)
	assert.Nil(t, derived[1].PctChange90120)
}

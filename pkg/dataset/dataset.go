package dataset

import (
	"fmt"
	"sort"
)

// TimeOffsets is the fixed set of measurement time offsets in seconds.
// Every row carries at most one voltage reading per offset.
var TimeOffsets = []int{0, 5, 15, 30, 60, 90, 120}

// Row is a single test observation for one sensor unit. JobID and
// SerialNumber are guaranteed non-empty by the loader; any reading may be
// missing, represented as a nil pointer.
type Row struct {
	JobID        string
	SerialNumber string
	Channel      string
	TestNumber   string
	Readings     map[int]*float64
}

// Reading returns the voltage at the given time offset, or nil if missing.
func (r *Row) Reading(offset int) *float64 {
	return r.Readings[offset]
}

// Dataset is an already-parsed table of raw test rows. It is treated as
// read-only by everything downstream of the loader.
type Dataset struct {
	rows []Row
}

// New creates a Dataset from parsed rows.
func New(rows []Row) *Dataset {
	return &Dataset{rows: rows}
}

// Rows returns the underlying rows in load order. Callers must not mutate
// the returned slice.
func (d *Dataset) Rows() []Row {
	return d.rows
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Jobs returns the distinct job identifiers, sorted.
func (d *Dataset) Jobs() []string {
	return d.distinct(func(r *Row) string { return r.JobID })
}

// Serials returns the distinct serial numbers, sorted.
func (d *Dataset) Serials() []string {
	return d.distinct(func(r *Row) string { return r.SerialNumber })
}

func (d *Dataset) distinct(key func(*Row) string) []string {
	seen := make(map[string]struct{}, len(d.rows))
	out := make([]string, 0, len(d.rows))

	for i := range d.rows {
		k := key(&d.rows[i])
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}

// Float returns a pointer to v. Convenience for building rows in tests and
// loaders.
func Float(v float64) *float64 {
	return &v
}

// TruncateList limits a diagnostic list to n entries, replacing the
// overflow with a count of what was cut.
func TruncateList(items []string, n int) []string {
	if len(items) <= n {
		return items
	}

	out := make([]string, n+1)
	copy(out, items[:n])
	out[n] = fmt.Sprintf("... and %d more", len(items)-n)

	return out
}

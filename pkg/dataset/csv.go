package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Column-name variants accepted for the job and serial columns. Exported
// datasets come from several LIMS exports with inconsistent headers; the
// loader normalizes them so the engine never probes column names.
var (
	jobColumnVariants = []string{
		"Job #", "Job#", "Job", "job", "job_number", "JobNumber", "Job Number",
	}
	serialColumnVariants = []string{
		"Serial Number", "Serial#", "Serial", "SerialNumber", "serial_number", "Serial #",
	}
	channelColumnVariants = []string{"Channel", "channel"}
	testColumnVariants    = []string{"Test #", "Test#", "Test", "test_number"}
)

// LoadCSV reads a sensor data CSV file from disk.
func LoadCSV(log logrus.FieldLogger, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := ReadCSV(log, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return ds, nil
}

// ReadCSV parses sensor data from r. The first record is the header row.
// Job and serial values are coerced to trimmed strings; readings that are
// empty or non-numeric become nil.
func ReadCSV(log logrus.FieldLogger, r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := newColumnMap(header)

	jobIdx, ok := cols.first(jobColumnVariants)
	if !ok {
		return nil, fmt.Errorf("no job column found (expected one of %s)",
			strings.Join(jobColumnVariants, ", "))
	}

	serialIdx, ok := cols.first(serialColumnVariants)
	if !ok {
		return nil, fmt.Errorf("no serial number column found (expected one of %s)",
			strings.Join(serialColumnVariants, ", "))
	}

	channelIdx, _ := cols.first(channelColumnVariants)
	testIdx, _ := cols.first(testColumnVariants)

	offsetIdx := make(map[int]int, len(TimeOffsets))

	for _, offset := range TimeOffsets {
		if idx, ok := cols.index(strconv.Itoa(offset)); ok {
			offsetIdx[offset] = idx
		}
	}

	var (
		rows    []Row
		skipped int
		line    = 1
	)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading record at line %d: %w", line+1, err)
		}

		line++

		row := Row{
			JobID:        strings.TrimSpace(field(record, jobIdx)),
			SerialNumber: strings.TrimSpace(field(record, serialIdx)),
			Readings:     make(map[int]*float64, len(offsetIdx)),
		}

		// The engine relies on non-empty job and serial values; rows
		// without them cannot be classified or resolved.
		if row.JobID == "" || row.SerialNumber == "" {
			skipped++

			continue
		}

		if channelIdx >= 0 {
			row.Channel = strings.TrimSpace(field(record, channelIdx))
		}

		if testIdx >= 0 {
			row.TestNumber = strings.TrimSpace(field(record, testIdx))
		}

		for offset, idx := range offsetIdx {
			row.Readings[offset] = parseReading(field(record, idx))
		}

		rows = append(rows, row)
	}

	if skipped > 0 {
		log.WithField("rows", skipped).
			Warn("Skipped rows without job or serial number")
	}

	ds := New(rows)

	log.WithFields(logrus.Fields{
		"rows":    ds.Len(),
		"jobs":    len(ds.Jobs()),
		"serials": len(ds.Serials()),
	}).Info("Dataset loaded")

	return ds, nil
}

// columnMap resolves header names to record indices.
type columnMap struct {
	byName map[string]int
}

func newColumnMap(header []string) *columnMap {
	m := make(map[string]int, len(header))

	for i, name := range header {
		m[strings.TrimSpace(name)] = i
	}

	return &columnMap{byName: m}
}

// index returns the record index for an exact column name.
func (c *columnMap) index(name string) (int, bool) {
	idx, ok := c.byName[name]

	return idx, ok
}

// first returns the index of the first matching variant, or -1.
func (c *columnMap) first(variants []string) (int, bool) {
	for _, v := range variants {
		if idx, ok := c.byName[v]; ok {
			return idx, true
		}
	}

	return -1, false
}

// field returns the idx-th value of record, or "" when the record is short.
func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}

	return record[idx]
}

// parseReading coerces a raw cell to a voltage. Empty and non-numeric
// values are treated as missing, never as errors.
func parseReading(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}

	return &v
}

package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"pvsizer/internal/model"
)

// CSVSource reads an hourly PV/load series from a CSV file.
//
// Expected format (extra columns such as import/export are ignored):
//
//	date,pv_diff,load_diff
//	2024-06-01 00:00,0.000,0.412
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) HourlyPVLoad(ctx context.Context, start, end time.Time) ([]model.Sample, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()

	samples, err := ParseHourlyCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	return filterWindow(samples, start, end), nil
}

// ParseHourlyCSV decodes `date,pv_diff,load_diff` rows. Rows with
// unparseable values (e.g. an "unavailable" state) are skipped; a
// malformed header is an error.
func ParseHourlyCSV(r io.Reader) ([]model.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	dateIdx, pvIdx, loadIdx, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var samples []model.Sample
	lineNum := 1 // header was line 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		if len(record) <= dateIdx || len(record) <= pvIdx || len(record) <= loadIdx {
			continue
		}

		ts, err := parseLocalHour(strings.TrimSpace(record[dateIdx]))
		if err != nil {
			continue
		}
		pv, err := strconv.ParseFloat(strings.TrimSpace(record[pvIdx]), 64)
		if err != nil {
			continue
		}
		load, err := strconv.ParseFloat(strings.TrimSpace(record[loadIdx]), 64)
		if err != nil {
			continue
		}

		samples = append(samples, model.Sample{Timestamp: ts, PVKWh: pv, LoadKWh: load})
	}

	return samples, nil
}

func columnIndexes(header []string) (dateIdx, pvIdx, loadIdx int, err error) {
	dateIdx, pvIdx, loadIdx = -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "date":
			dateIdx = i
		case "pv_diff":
			pvIdx = i
		case "load_diff":
			loadIdx = i
		}
	}
	if dateIdx < 0 || pvIdx < 0 || loadIdx < 0 {
		return 0, 0, 0, fmt.Errorf("CSV header must contain date, pv_diff and load_diff columns, got %v", header)
	}
	return dateIdx, pvIdx, loadIdx, nil
}

func parseLocalHour(s string) (time.Time, error) {
	ts, err := time.ParseInLocation(model.TimeLayout, s, time.Local)
	if err == nil {
		return ts, nil
	}
	// Tolerate full ISO timestamps from other exports.
	if iso, isoErr := time.Parse(time.RFC3339, s); isoErr == nil {
		return iso.In(time.Local).Truncate(time.Hour), nil
	}
	return time.Time{}, err
}

// filterWindow keeps samples within [start, end); zero bounds disable the
// corresponding cut.
func filterWindow(samples []model.Sample, start, end time.Time) []model.Sample {
	if start.IsZero() && end.IsZero() {
		return samples
	}
	out := make([]model.Sample, 0, len(samples))
	for _, smp := range samples {
		if !start.IsZero() && smp.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !smp.Timestamp.Before(end) {
			continue
		}
		out = append(out, smp)
	}
	return out
}

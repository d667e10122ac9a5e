package results

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"ga4cli/internal/api"
)

// Row maps field names to values. Dimension values are strings; metric values
// are float64 when they parse as a finite number, otherwise the raw string.
type Row map[string]any

// Normalize flattens a column-oriented report into rows. Values are matched to
// headers by position; values without a header are dropped, and headers
// without a value are simply absent from the row.
func Normalize(table api.ReportTable) []Row {
	rows := make([]Row, 0, len(table.Rows))
	for _, raw := range table.Rows {
		row := make(Row, len(raw.DimensionValues)+len(raw.MetricValues))
		for i, value := range raw.DimensionValues {
			if i < len(table.DimensionHeaders) {
				row[table.DimensionHeaders[i].Name] = value.Value
			}
		}
		for i, value := range raw.MetricValues {
			if i < len(table.MetricHeaders) {
				row[table.MetricHeaders[i].Name] = MetricValue(value.Value)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// MetricValue coerces a raw metric string. Empty strings and placeholders such
// as "(not set)" are kept unchanged.
func MetricValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	number, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return raw
	}
	return number
}

// Report is a normalized report with its columns in header order.
type Report struct {
	Columns []string
	Rows    []Row
}

// NewReport normalizes a report table, keeping dimension columns before metric columns.
func NewReport(table api.ReportTable) *Report {
	names := make([]string, 0, len(table.DimensionHeaders)+len(table.MetricHeaders))
	for _, header := range table.DimensionHeaders {
		names = append(names, header.Name)
	}
	for _, header := range table.MetricHeaders {
		names = append(names, header.Name)
	}

	// A repeated header name maps to a single key in each row
	columns := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	return &Report{Columns: columns, Rows: Normalize(table)}
}

// MarshalJSON encodes the rows as an array of objects with keys in column order.
func (report *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range report.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeOrderedObject(&buf, report.Columns, row); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Batch holds the reports of a batch run by query name, in order of first
// occurrence. Setting an existing name replaces its report.
type Batch struct {
	Names   []string
	Reports map[string]*Report
}

func NewBatch() *Batch {
	return &Batch{Reports: make(map[string]*Report)}
}

func (batch *Batch) Set(name string, report *Report) {
	if _, exists := batch.Reports[name]; !exists {
		batch.Names = append(batch.Names, name)
	}
	batch.Reports[name] = report
}

func (batch *Batch) Len() int {
	return len(batch.Names)
}

// MarshalJSON encodes the batch as an object keyed by query name, in name order.
func (batch *Batch) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range batch.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		report, err := json.Marshal(batch.Reports[name])
		if err != nil {
			return nil, err
		}
		buf.Write(report)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeOrderedObject(buf *bytes.Buffer, columns []string, row Row) error {
	buf.WriteByte('{')
	written := 0
	for _, column := range columns {
		value, ok := row[column]
		if !ok {
			continue
		}
		if written > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(encoded)
		written++
	}
	buf.WriteByte('}')
	return nil
}

package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"hermannm.dev/enumnames"
	"hermannm.dev/wrap"
)

type Format uint8

const (
	FormatTable Format = 1
	FormatCSV   Format = 2
	FormatJSON  Format = 3
)

var formatNames = enumnames.NewMap(map[Format]string{
	FormatTable: "table",
	FormatCSV:   "csv",
	FormatJSON:  "json",
})

func (format Format) IsValid() bool {
	return formatNames.ContainsEnumValue(format)
}

func (format Format) String() string {
	return formatNames.GetNameOrFallback(format, "[INVALID FORMAT]")
}

func (format Format) MarshalJSON() ([]byte, error) {
	return formatNames.MarshalToNameJSON(format)
}

func (format *Format) UnmarshalJSON(bytes []byte) error {
	return formatNames.UnmarshalFromNameJSON(bytes, format)
}

// ParseFormat maps a configured format name to a Format. Unknown names give FormatTable.
func ParseFormat(name string) Format {
	for _, format := range []Format{FormatTable, FormatCSV, FormatJSON} {
		if strings.EqualFold(format.String(), strings.TrimSpace(name)) {
			return format
		}
	}
	return FormatTable
}

const DefaultMaxColumnWidth = 40

// Options control how the Writer renders output.
type Options struct {
	Format         Format
	OutputPath     string // write to this file instead of stdout
	MaxColumnWidth int
}

// Envelope wraps a single report's rows with the parameters that produced them.
type Envelope struct {
	Dimensions []string         `json:"dimensions"`
	Metrics    []string         `json:"metrics"`
	Rows       *Report          `json:"rows"`
	RowCount   int              `json:"rowCount"`
	Metadata   EnvelopeMetadata `json:"metadata"`
}

type EnvelopeMetadata struct {
	DateRange    *DateWindow `json:"dateRange"`
	CompareRange *DateWindow `json:"compareRange"`
	Property     string      `json:"property"`
	Filters      []string    `json:"filters"`
}

type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Writer renders reports as a table, CSV or JSON, to stdout or to a file.
type Writer struct {
	options Options
	stdout  io.Writer
}

func NewWriter(options Options, stdout io.Writer) *Writer {
	if options.Format == 0 {
		options.Format = FormatTable
	}
	if options.MaxColumnWidth <= 0 {
		options.MaxColumnWidth = DefaultMaxColumnWidth
	}
	return &Writer{options: options, stdout: stdout}
}

func (w *Writer) Format() Format {
	return w.options.Format
}

// Report renders one report. Table and CSV output of an empty report print
// emptyMessage instead; JSON output is always an array.
func (w *Writer) Report(report *Report, emptyMessage string) error {
	switch w.options.Format {
	case FormatJSON:
		return w.writeJSON(report)
	case FormatCSV:
		if len(report.Rows) == 0 {
			return w.emit(emptyMessage)
		}
		return w.writeCSV(report)
	default:
		if len(report.Rows) == 0 {
			return w.emit(emptyMessage)
		}
		return w.emit(w.table(report))
	}
}

// ReportWithEnvelope renders like Report, except that JSON output is wrapped
// in an Envelope.
func (w *Writer) ReportWithEnvelope(report *Report, envelope Envelope, emptyMessage string) error {
	if w.options.Format != FormatJSON {
		return w.Report(report, emptyMessage)
	}

	envelope.Rows = report
	envelope.RowCount = len(report.Rows)
	if envelope.Dimensions == nil {
		envelope.Dimensions = []string{}
	}
	if envelope.Metrics == nil {
		envelope.Metrics = []string{}
	}
	if envelope.Metadata.Filters == nil {
		envelope.Metadata.Filters = []string{}
	}
	return w.writeJSON(envelope)
}

// Batch renders every report of a batch, one section per query name.
func (w *Writer) Batch(batch *Batch) error {
	if w.options.Format == FormatJSON {
		return w.writeJSON(batch)
	}

	var buf strings.Builder
	for i, name := range batch.Names {
		if i > 0 {
			buf.WriteString("\n")
		}
		report := batch.Reports[name]

		if w.options.Format == FormatCSV {
			fmt.Fprintf(&buf, "# %s\n", name)
			if len(report.Rows) > 0 {
				text, err := csvText(report)
				if err != nil {
					return err
				}
				buf.WriteString(text)
			}
			continue
		}

		fmt.Fprintf(&buf, "== %s (%d rows) ==\n", name, len(report.Rows))
		if len(report.Rows) == 0 {
			buf.WriteString("No data\n")
		} else {
			buf.WriteString(w.table(report))
			buf.WriteString("\n")
		}
	}
	return w.emit(strings.TrimSuffix(buf.String(), "\n"))
}

// Detail renders a single record. Tables show it as field/value pairs.
func (w *Writer) Detail(columns []string, record Row) error {
	switch w.options.Format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := writeOrderedObject(&buf, columns, record); err != nil {
			return wrap.Error(err, "failed to encode record")
		}
		var indented bytes.Buffer
		if err := json.Indent(&indented, buf.Bytes(), "", "  "); err != nil {
			return wrap.Error(err, "failed to indent record")
		}
		return w.emit(indented.String())
	case FormatCSV:
		return w.writeCSV(&Report{Columns: columns, Rows: []Row{record}})
	default:
		pairs := &Report{Columns: []string{"field", "value"}}
		for _, column := range columns {
			pairs.Rows = append(pairs.Rows, Row{"field": column, "value": record[column]})
		}
		return w.emit(w.table(pairs))
	}
}

func (w *Writer) writeJSON(value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return wrap.Error(err, "failed to encode JSON output")
	}
	return w.emit(string(encoded))
}

func (w *Writer) writeCSV(report *Report) error {
	text, err := csvText(report)
	if err != nil {
		return err
	}
	return w.emit(strings.TrimSuffix(text, "\n"))
}

func csvText(report *Report) (string, error) {
	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	if err := writer.Write(report.Columns); err != nil {
		return "", wrap.Error(err, "failed to write CSV header")
	}
	for _, row := range report.Rows {
		record := make([]string, len(report.Columns))
		for i, column := range report.Columns {
			record[i] = FormatValue(row[column])
		}
		if err := writer.Write(record); err != nil {
			return "", wrap.Error(err, "failed to write CSV row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", wrap.Error(err, "failed to flush CSV output")
	}
	return buf.String(), nil
}

// table draws a boxed table, truncating cells wider than the column limit.
func (w *Writer) table(report *Report) string {
	widths := make([]int, len(report.Columns))
	cells := make([][]string, len(report.Rows))
	for i, column := range report.Columns {
		widths[i] = min(utf8.RuneCountInString(column), w.options.MaxColumnWidth)
	}
	for r, row := range report.Rows {
		cells[r] = make([]string, len(report.Columns))
		for i, column := range report.Columns {
			cell := displayValue(row[column])
			cells[r][i] = cell
			widths[i] = max(widths[i], min(utf8.RuneCountInString(cell), w.options.MaxColumnWidth))
		}
	}

	separatorParts := make([]string, len(widths))
	for i, width := range widths {
		separatorParts[i] = strings.Repeat("-", width+2)
	}
	separator := "+" + strings.Join(separatorParts, "+") + "+"

	line := func(values []string) string {
		parts := make([]string, len(values))
		for i, value := range values {
			parts[i] = padOrTruncate(value, widths[i])
		}
		return "| " + strings.Join(parts, " | ") + " |"
	}

	lines := []string{separator, line(report.Columns), separator}
	for _, row := range cells {
		lines = append(lines, line(row))
	}
	lines = append(lines, separator)
	return strings.Join(lines, "\n")
}

func padOrTruncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		if width > 3 {
			return string(runes[:width-3]) + "..."
		}
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// FormatValue renders a row value as plain text at full precision.
func FormatValue(value any) string {
	switch value := value.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

// displayValue rounds fractional numbers to two decimals for tables.
func displayValue(value any) string {
	if number, ok := value.(float64); ok && number != float64(int64(number)) {
		return strconv.FormatFloat(number, 'f', 2, 64)
	}
	return FormatValue(value)
}

// emit writes the rendered text to the output file if one was given, else to stdout.
func (w *Writer) emit(text string) error {
	if w.options.OutputPath == "" {
		_, err := fmt.Fprintln(w.stdout, text)
		return err
	}

	if err := os.WriteFile(w.options.OutputPath, []byte(text), 0644); err != nil {
		return wrap.Errorf(err, "failed to write output file '%s'", w.options.OutputPath)
	}
	_, err := fmt.Fprintf(w.stdout, "Output written to %s\n", w.options.OutputPath)
	return err
}

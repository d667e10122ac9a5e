package results

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"ga4cli/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(dimensions, metrics []string, rows ...api.Row) api.ReportTable {
	var t api.ReportTable
	for _, name := range dimensions {
		t.DimensionHeaders = append(t.DimensionHeaders, api.DimensionHeader{Name: name})
	}
	for _, name := range metrics {
		t.MetricHeaders = append(t.MetricHeaders, api.MetricHeader{Name: name})
	}
	t.Rows = rows
	return t
}

func row(dimensionValues []string, metricValues []string) api.Row {
	var r api.Row
	for _, value := range dimensionValues {
		r.DimensionValues = append(r.DimensionValues, api.Value{Value: value})
	}
	for _, value := range metricValues {
		r.MetricValues = append(r.MetricValues, api.Value{Value: value})
	}
	return r
}

func TestNormalize(t *testing.T) {
	rows := Normalize(table([]string{"city"}, []string{"sessions"}, row([]string{"Boston"}, []string{"42"})))

	require.Len(t, rows, 1)
	assert.Equal(t, Row{"city": "Boston", "sessions": float64(42)}, rows[0])
}

func TestNormalizeKeepsNonNumericMetrics(t *testing.T) {
	rows := Normalize(table(
		[]string{"city"},
		[]string{"sessions", "bounceRate", "revenue", "ratio"},
		row([]string{"42"}, []string{"", "(not set)", "12.5", "NaN"}),
	))

	require.Len(t, rows, 1)
	assert.Equal(t, Row{
		"city":       "42",
		"sessions":   "",
		"bounceRate": "(not set)",
		"revenue":    12.5,
		"ratio":      "NaN",
	}, rows[0])
}

func TestNormalizeHeaderMismatch(t *testing.T) {
	rows := Normalize(table(
		[]string{"city", "country"},
		[]string{"sessions"},
		row([]string{"Oslo"}, []string{"1", "2"}),
	))

	require.Len(t, rows, 1)
	assert.Equal(t, Row{"city": "Oslo", "sessions": float64(1)}, rows[0])
}

func TestNormalizeNoRows(t *testing.T) {
	rows := Normalize(table([]string{"city"}, []string{"sessions"}))
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestReportJSONKeepsColumnOrder(t *testing.T) {
	report := NewReport(table(
		[]string{"pagePath", "city"},
		[]string{"sessions"},
		row([]string{"/", "Oslo"}, []string{"3"}),
	))

	encoded, err := report.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"pagePath":"/","city":"Oslo","sessions":3}]`, string(encoded))
}

func TestBatchLastWriteWins(t *testing.T) {
	batch := NewBatch()
	batch.Set("b", &Report{Columns: []string{"x"}, Rows: []Row{{"x": "first"}}})
	batch.Set("a", &Report{Columns: []string{"x"}})
	batch.Set("b", &Report{Columns: []string{"x"}, Rows: []Row{{"x": "second"}}})

	assert.Equal(t, []string{"b", "a"}, batch.Names)
	assert.Equal(t, 2, batch.Len())

	encoded, err := batch.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"b":[{"x":"second"}],"a":[]}`, string(encoded))
}

func TestWriterTable(t *testing.T) {
	var out bytes.Buffer
	writer := NewWriter(Options{Format: FormatTable, MaxColumnWidth: 8}, &out)

	report := &Report{
		Columns: []string{"pagePath", "sessions"},
		Rows: []Row{
			{"pagePath": "/a-very-long-path", "sessions": float64(1200)},
			{"pagePath": "/", "sessions": 0.3333},
		},
	}
	require.NoError(t, writer.Report(report, "No data"))

	assert.Equal(t,
		"+----------+----------+\n"+
			"| pagePath | sessions |\n"+
			"+----------+----------+\n"+
			"| /a-ve... | 1200     |\n"+
			"| /        | 0.33     |\n"+
			"+----------+----------+\n",
		out.String(),
	)
}

func TestWriterEmptyReport(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewWriter(Options{}, &out).Report(&Report{Columns: []string{"x"}}, "No pivot data"))
	assert.Equal(t, "No pivot data\n", out.String())

	out.Reset()
	require.NoError(t, NewWriter(Options{Format: FormatJSON}, &out).Report(&Report{Columns: []string{"x"}}, "No pivot data"))
	assert.Equal(t, "[]\n", out.String())
}

func TestWriterCSVEscaping(t *testing.T) {
	var out bytes.Buffer
	writer := NewWriter(Options{Format: FormatCSV}, &out)

	report := &Report{
		Columns: []string{"pageTitle", "sessions"},
		Rows:    []Row{{"pageTitle": `Hello, "world"`, "sessions": 2.5}},
	}
	require.NoError(t, writer.Report(report, ""))

	assert.Equal(t, "pageTitle,sessions\n\"Hello, \"\"world\"\"\",2.5\n", out.String())
}

func TestWriterEnvelope(t *testing.T) {
	var out bytes.Buffer
	writer := NewWriter(Options{Format: FormatJSON}, &out)

	report := &Report{Columns: []string{"city", "sessions"}, Rows: []Row{{"city": "Oslo", "sessions": float64(4)}}}
	err := writer.ReportWithEnvelope(report, Envelope{
		Dimensions: []string{"city"},
		Metrics:    []string{"sessions"},
		Metadata: EnvelopeMetadata{
			DateRange: &DateWindow{Start: "30daysAgo", End: "today"},
			Property:  "properties/1",
		},
	}, "No data")
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"dimensions": ["city"],
		"metrics": ["sessions"],
		"rows": [{"city": "Oslo", "sessions": 4}],
		"rowCount": 1,
		"metadata": {
			"dateRange": {"start": "30daysAgo", "end": "today"},
			"compareRange": null,
			"property": "properties/1",
			"filters": []
		}
	}`, out.String())
}

func TestWriterOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	var out bytes.Buffer
	writer := NewWriter(Options{Format: FormatCSV, OutputPath: path}, &out)

	require.NoError(t, writer.Report(&Report{Columns: []string{"x"}, Rows: []Row{{"x": "1"}}}, ""))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n1", string(written))
	assert.Equal(t, "Output written to "+path+"\n", out.String())
}

func TestWriterBatchTable(t *testing.T) {
	batch := NewBatch()
	batch.Set("empty", &Report{Columns: []string{"x"}})

	var out bytes.Buffer
	require.NoError(t, NewWriter(Options{}, &out).Batch(batch))
	assert.Equal(t, "== empty (0 rows) ==\nNo data\n", out.String())
}

func TestWhere(t *testing.T) {
	report := &Report{
		Columns: []string{"deviceCategory", "country"},
		Rows: []Row{
			{"deviceCategory": "mobile", "country": "Norway"},
			{"deviceCategory": "desktop", "country": "Norway"},
			{"deviceCategory": "mobile", "country": "Sweden"},
		},
	}

	filtered, err := Where(report, `deviceCategory == "mobile" and country != "Sweden"`)
	require.NoError(t, err)
	require.Len(t, filtered.Rows, 1)
	assert.Equal(t, "Norway", filtered.Rows[0]["country"])
	assert.Equal(t, report.Columns, filtered.Columns)

	unchanged, err := Where(report, "")
	require.NoError(t, err)
	assert.Same(t, report, unchanged)

	_, err = Where(report, "deviceCategory ==")
	require.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatCSV, ParseFormat(" csv "))
	assert.Equal(t, FormatTable, ParseFormat("xml"))
}

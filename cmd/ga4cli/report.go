package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ga4cli/internal/query"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
	"hermannm.dev/wrap"
)

func newReportCmd(c *cli) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Run analytics reports",
		Long:  "Run standard, pivot, realtime, cohort, funnel and batched GA4 reports",
	}

	runCmd := &cobra.Command{
		Use:   "run [propertyId]",
		Short: "Run a standard report",
		Long: fmt.Sprintf(`Run a standard GA4 report.

Dimension filters: %s.
Metric filters: %s.
Repeated filters are combined with AND.`, quoteAll(dimensionFilterForms), quoteAll(metricFilterForms)),
		Example: `  ga4cli report run 123 --dimensions city --metrics sessions --limit 10
  ga4cli report run 123 --dimensions pagePath --metrics sessions --filter "pagePath contains /blog/" --filter "deviceCategory == mobile"
  ga4cli report run 123 --metrics sessions --metric-filter "sessions > 100" --order-by sessions
  ga4cli report run 123 --dimensions pagePath --metrics sessions --start 2025-01-01 --end 2025-01-31 --compare-start 2024-12-01 --compare-end 2024-12-31`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.reportRun,
	}
	addQueryFlags(runCmd)
	addWhereFlag(runCmd)

	pivotCmd := &cobra.Command{
		Use:   "pivot [propertyId]",
		Short: "Run a pivot report",
		Long: `Run a pivot report. Each --pivots spec has the form
"fieldNames:dim1,dim2;limit:N;orderBy:metric" and may be repeated.`,
		Example: `  ga4cli report pivot 123 --dimensions country,deviceCategory --metrics sessions --pivots "fieldNames:deviceCategory;limit:3"`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    c.reportPivot,
	}
	addQueryFlags(pivotCmd)
	addWhereFlag(pivotCmd)
	pivotCmd.Flags().StringArray("pivots", nil, "Pivot spec: fieldNames:dim1,dim2;limit:N;orderBy:metric (repeatable)")

	realtimeCmd := &cobra.Command{
		Use:   "realtime [propertyId]",
		Short: "Run a realtime report over the last 30 minutes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.reportRealtime,
	}
	realtimeCmd.Flags().String("dimensions", "", "Comma-separated dimensions")
	realtimeCmd.Flags().String("metrics", "", "Comma-separated metrics")
	realtimeCmd.Flags().String("limit", "", "Row limit")
	addWhereFlag(realtimeCmd)

	cohortCmd := &cobra.Command{
		Use:     "cohort [propertyId]",
		Short:   "Run a cohort analysis",
		Example: `  ga4cli report cohort 123 --date-ranges 2025-01-01:2025-01-07,2025-01-08:2025-01-14 --metrics cohortActiveUsers`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    c.reportCohort,
	}
	cohortCmd.Flags().String("cohort-dimension", query.DefaultCohortDimension, "Cohort dimension")
	cohortCmd.Flags().String("date-ranges", "", "Cohort date ranges as start:end,start:end")
	cohortCmd.Flags().String("dimensions", "", "Comma-separated dimensions")
	cohortCmd.Flags().String("metrics", "", "Comma-separated metrics")

	funnelCmd := &cobra.Command{
		Use:     "funnel [propertyId]",
		Short:   "Run a funnel report",
		Example: `  ga4cli report funnel 123 --steps "visit:session_start,buy:purchase" --dimensions deviceCategory`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    c.reportFunnel,
	}
	funnelCmd.Flags().String("steps", "", "Funnel steps as name:eventName,name:eventName")
	funnelCmd.Flags().String("dimensions", "", "Breakdown dimension (only the first is used)")
	funnelCmd.Flags().String("start", "", "Start date YYYY-MM-DD")
	funnelCmd.Flags().String("end", "", "End date YYYY-MM-DD")

	batchCmd := &cobra.Command{
		Use:   "batch [propertyId]",
		Short: "Run multiple named queries from a JSON file or stdin",
		Long:  batchLongHelp,
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.reportBatch,
	}
	addBatchFlags(batchCmd)
	batchCmd.Flags().Bool("stdin", false, "Read queries from stdin")

	reportCmd.AddCommand(runCmd, pivotCmd, realtimeCmd, cohortCmd, funnelCmd, batchCmd)
	return reportCmd
}

func newBatchCmd(c *cli) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch [propertyId]",
		Short: "Run multiple named report queries from stdin or a JSON file",
		Long:  batchLongHelp + "\n\nReads stdin unless --queries is given.",
		Example: `  echo '[{"name":"top-pages","dimensions":"pagePath","metrics":"sessions","limit":"10"}]' | ga4cli batch 123 --json
  ga4cli batch 123 --queries queries.json --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.batch,
	}
	addBatchFlags(batchCmd)
	return batchCmd
}

const batchLongHelp = `Run multiple named report queries. Input is a JSON array:
  [{"name": "top-pages", "dimensions": "pagePath", "metrics": "sessions", "limit": "10"}]
Each query supports: name, dimensions, metrics, start, end, compareStart,
compareEnd, limit, orderBy, asc, filter (string or array), metricFilter
(string or array). Queries are sent 5 per API call.`

func addQueryFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("dimensions", "", "Comma-separated dimensions (e.g. city,deviceCategory)")
	flags.String("metrics", "", "Comma-separated metrics (e.g. sessions,activeUsers)")
	flags.String("start", "", "Start date YYYY-MM-DD (default: 30daysAgo)")
	flags.String("end", "", "End date YYYY-MM-DD (default: today)")
	flags.String("compare-start", "", "Comparison period start date")
	flags.String("compare-end", "", "Comparison period end date")
	flags.String("limit", "100", "Row limit")
	flags.String("order-by", "", "Sort by metric")
	flags.Bool("asc", false, "Ascending order (default is descending)")
	flags.StringArray("filter", nil, "Dimension filter (repeatable, AND logic)")
	flags.StringArray("metric-filter", nil, "Metric filter (repeatable, AND logic)")
}

// Filter forms listed in 'report run --help'.
var (
	dimensionFilterForms = []string{
		"country == Norway",
		"country != Norway",
		"pagePath contains /blog/",
		"pagePath begins /docs",
		"pagePath ends .html",
		"pagePath matches ^/blog/[0-9]+$",
		"deviceCategory in mobile|tablet",
	}
	metricFilterForms = []string{
		"sessions > 100",
		"sessions >= 100",
		"sessions < 10",
		"sessions <= 10",
		"sessions == 42",
	}
)

// go-bexpr has no ordering operators, so the example sticks to equality.
const whereExample = `country == "Norway" and deviceCategory != "tablet"`

func quoteAll(forms []string) string {
	quoted := make([]string, len(forms))
	for i, form := range forms {
		quoted[i] = strconv.Quote(form)
	}
	return strings.Join(quoted, ", ")
}

func addWhereFlag(cmd *cobra.Command) {
	cmd.Flags().String(
		"where",
		"",
		fmt.Sprintf("Filter returned rows locally with ==, !=, in, contains or matches "+
			"(no numeric ranges), e.g. '%s'", whereExample),
	)
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("queries", "", "JSON file with an array of query objects")
	cmd.Flags().Int("max-per-call", query.MaxBatchRequests, "Queries per batch API call (at most 5)")
}

func queryFromFlags(cmd *cobra.Command) query.Query {
	flags := cmd.Flags()
	dimensions, _ := flags.GetString("dimensions")
	metrics, _ := flags.GetString("metrics")
	start, _ := flags.GetString("start")
	end, _ := flags.GetString("end")
	compareStart, _ := flags.GetString("compare-start")
	compareEnd, _ := flags.GetString("compare-end")
	limit, _ := flags.GetString("limit")
	orderBy, _ := flags.GetString("order-by")
	ascending, _ := flags.GetBool("asc")
	filters, _ := flags.GetStringArray("filter")
	metricFilters, _ := flags.GetStringArray("metric-filter")

	return query.Query{
		Dimensions:   query.SplitFields(dimensions),
		Metrics:      query.SplitFields(metrics),
		Start:        start,
		End:          end,
		CompareStart: compareStart,
		CompareEnd:   compareEnd,
		Limit:        query.NumberText(limit),
		OrderBy:      orderBy,
		Ascending:    ascending,
		Filter:       filters,
		MetricFilter: metricFilters,
	}
}

// envelopeFor describes the parameters of a standard report for JSON output.
func envelopeFor(property string, q query.Query) results.Envelope {
	envelope := results.Envelope{
		Dimensions: []string(q.Dimensions),
		Metrics:    []string(q.Metrics),
		Metadata: results.EnvelopeMetadata{
			DateRange: &results.DateWindow{
				Start: valueOr(q.Start, query.DefaultStartDate),
				End:   valueOr(q.End, query.DefaultEndDate),
			},
			Property: property,
		},
	}
	if q.CompareStart != "" {
		envelope.Metadata.CompareRange = &results.DateWindow{Start: q.CompareStart, End: q.CompareEnd}
	}

	envelope.Metadata.Filters = append(envelope.Metadata.Filters, q.Filter...)
	for _, metricFilter := range q.MetricFilter {
		envelope.Metadata.Filters = append(envelope.Metadata.Filters, "[metric] "+metricFilter)
	}
	return envelope
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func applyWhere(cmd *cobra.Command, report *results.Report) (*results.Report, error) {
	expression, _ := cmd.Flags().GetString("where")
	return results.Where(report, expression)
}

func (c *cli) reportRun(cmd *cobra.Command, args []string) error {
	property, err := c.property(cmd, args)
	if err != nil {
		return err
	}
	q := queryFromFlags(cmd)

	client, _, err := c.dataClient(cmd, false)
	if err != nil {
		return err
	}

	report, err := query.NewExecutor(client).Run(cmd.Context(), property, q)
	if err != nil {
		return err
	}
	if report, err = applyWhere(cmd, report); err != nil {
		return err
	}

	return c.writer(cmd).ReportWithEnvelope(report, envelopeFor(property, q), query.KindStandard.EmptyResultMessage())
}

func (c *cli) reportPivot(cmd *cobra.Command, args []string) error {
	property, err := c.property(cmd, args)
	if err != nil {
		return err
	}
	pivots, _ := cmd.Flags().GetStringArray("pivots")

	request, err := query.BuildPivotRequest(property, query.PivotQuery{Query: queryFromFlags(cmd), Pivots: pivots})
	if err != nil {
		return err
	}

	client, _, err := c.dataClient(cmd, false)
	if err != nil {
		return err
	}
	response, err := client.RunPivotReport(cmd.Context(), request)
	if err != nil {
		return err
	}

	report, err := applyWhere(cmd, results.NewReport(response.ReportTable))
	if err != nil {
		return err
	}
	return c.writer(cmd).Report(report, query.KindPivot.EmptyResultMessage())
}

func (c *cli) reportRealtime(cmd *cobra.Command, args []string) error {
	property, err := c.property(cmd, args)
	if err != nil {
		return err
	}

	dimensions, _ := cmd.Flags().GetString("dimensions")
	metrics, _ := cmd.Flags().GetString("metrics")
	limit, _ := cmd.Flags().GetString("limit")
	request, err := query.BuildRealtimeRequest(property, query.RealtimeQuery{
		Dimensions: query.SplitFields(dimensions),
		Metrics:    query.SplitFields(metrics),
		Limit:      query.NumberText(limit),
	})
	if err != nil {
		return err
	}

	client, _, err := c.dataClient(cmd, false)
	if err != nil {
		return err
	}
	response, err := client.RunRealtimeReport(cmd.Context(), request)
	if err != nil {
		return err
	}

	report, err := applyWhere(cmd, results.NewReport(response.ReportTable))
	if err != nil {
		return err
	}
	return c.writer(cmd).Report(report, query.KindRealtime.EmptyResultMessage())
}

func (c *cli) reportCohort(cmd *cobra.Command, args []string) error {
	property, err := c.property(cmd, args)
	if err != nil {
		return err
	}

	cohortDimension, _ := cmd.Flags().GetString("cohort-dimension")
	dateRanges, _ := cmd.Flags().GetString("date-ranges")
	dimensions, _ := cmd.Flags().GetString("dimensions")
	metrics, _ := cmd.Flags().GetString("metrics")
	request, err := query.BuildCohortRequest(property, query.CohortQuery{
		Dimension:  cohortDimension,
		DateRanges: dateRanges,
		Dimensions: query.SplitFields(dimensions),
		Metrics:    query.SplitFields(metrics),
	})
	if err != nil {
		return err
	}

	client, _, err := c.dataClient(cmd, false)
	if err != nil {
		return err
	}
	response, err := client.RunReport(cmd.Context(), request)
	if err != nil {
		return err
	}
	return c.writer(cmd).Report(results.NewReport(response.ReportTable), query.KindCohort.EmptyResultMessage())
}

func (c *cli) reportFunnel(cmd *cobra.Command, args []string) error {
	property, err := c.property(cmd, args)
	if err != nil {
		return err
	}

	steps, _ := cmd.Flags().GetString("steps")
	dimensions, _ := cmd.Flags().GetString("dimensions")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	request, err := query.BuildFunnelRequest(property, query.FunnelQuery{
		Steps:      steps,
		Dimensions: query.SplitFields(dimensions),
		Start:      start,
		End:        end,
	})
	if err != nil {
		return err
	}

	client, _, err := c.dataClient(cmd, false)
	if err != nil {
		return err
	}
	response, err := client.RunFunnelReport(cmd.Context(), request)
	if err != nil {
		return err
	}
	return c.writer(cmd).Report(results.NewReport(response.FunnelTable), query.KindFunnel.EmptyResultMessage())
}

func (c *cli) reportBatch(cmd *cobra.Command, args []string) error {
	queriesPath, _ := cmd.Flags().GetString("queries")
	fromStdin, _ := cmd.Flags().GetBool("stdin")
	if queriesPath == "" && !fromStdin {
		return wrap.Error(query.ErrMalformedBatchInput, "provide --queries <file> or --stdin")
	}
	return c.runBatch(cmd, args, queriesPath)
}

func (c *cli) batch(cmd *cobra.Command, args []string) error {
	queriesPath, _ := cmd.Flags().GetString("queries")
	return c.runBatch(cmd, args, queriesPath)
}

// runBatch reads queries from queriesPath, or stdin when it is empty. Input is
// validated before any credentials are loaded or calls are made.
func (c *cli) runBatch(cmd *cobra.Command, args []string, queriesPath string) error {
	property, err := c.property(cmd, args)
	if err != nil {
		return err
	}

	var input io.Reader = cmd.InOrStdin()
	if queriesPath != "" {
		file, err := os.Open(queriesPath)
		if err != nil {
			return wrap.Errorf(err, "failed to open queries file '%s'", queriesPath)
		}
		defer file.Close()
		input = file
	}

	queries, err := query.ParseBatch(input)
	if err != nil {
		return err
	}

	client, _, err := c.dataClient(cmd, false)
	if err != nil {
		return err
	}

	maxPerCall, _ := cmd.Flags().GetInt("max-per-call")
	batch, err := query.NewExecutor(client).RunBatch(cmd.Context(), property, queries, maxPerCall)
	if err != nil {
		return err
	}
	return c.writer(cmd).Batch(batch)
}

package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ga4cli/internal/api"
	"ga4cli/internal/filter"
)

// PropertyPath resolves a bare property id to "properties/<id>".
func PropertyPath(id string) string {
	return resourcePath("properties/", id)
}

// AccountPath resolves a bare account id to "accounts/<id>".
func AccountPath(id string) string {
	return resourcePath("accounts/", id)
}

func resourcePath(prefix, id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}

// EpochSeconds converts a YYYY-MM-DD calendar date to seconds since the epoch at
// UTC midnight.
func EpochSeconds(date string) (int64, error) {
	parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
	if err != nil {
		return 0, fmt.Errorf("%w: date must be YYYY-MM-DD, got '%s'", ErrInvalidQuery, date)
	}
	return parsed.Unix(), nil
}

// BuildReportRequest compiles a standard report query. It does no I/O, and
// fails before anything is sent if a filter cannot be parsed.
func BuildReportRequest(target string, q Query) (*api.RunReportRequest, error) {
	property, err := requireProperty(target)
	if err != nil {
		return nil, err
	}

	limit, err := parseLimit(q.Limit)
	if err != nil {
		return nil, err
	}

	request := &api.RunReportRequest{
		Property:   property,
		DateRanges: dateRanges(q.Start, q.End, q.CompareStart, q.CompareEnd),
		Dimensions: dimensions(q.Dimensions),
		Metrics:    metrics(q.Metrics),
		Limit:      limit,
	}

	if q.OrderBy != "" {
		request.OrderBys = []api.OrderBy{metricOrder(q.OrderBy, !q.Ascending)}
	}

	if request.DimensionFilter, request.MetricFilter, err = compileFilters(q.Filter, q.MetricFilter); err != nil {
		return nil, err
	}

	return request, nil
}

// BuildPivotRequest compiles a pivot report query. A pivot without its own
// limit takes the query limit, since the API requires one per pivot.
func BuildPivotRequest(target string, q PivotQuery) (*api.RunPivotReportRequest, error) {
	property, err := requireProperty(target)
	if err != nil {
		return nil, err
	}

	limit, err := parseLimit(q.Limit)
	if err != nil {
		return nil, err
	}

	request := &api.RunPivotReportRequest{
		Property:   property,
		DateRanges: dateRanges(q.Start, q.End, q.CompareStart, q.CompareEnd),
		Dimensions: dimensions(q.Dimensions),
		Metrics:    metrics(q.Metrics),
	}

	for _, spec := range q.Pivots {
		pivot, err := parsePivotSpec(spec)
		if err != nil {
			return nil, err
		}
		if pivot.Limit == 0 {
			pivot.Limit = limit
		}
		request.Pivots = append(request.Pivots, pivot)
	}

	if request.DimensionFilter, request.MetricFilter, err = compileFilters(q.Filter, q.MetricFilter); err != nil {
		return nil, err
	}

	return request, nil
}

// parsePivotSpec reads "fieldNames:a,b;limit:N;orderBy:metric". Unknown keys
// are ignored.
func parsePivotSpec(spec string) (api.Pivot, error) {
	var pivot api.Pivot
	for _, part := range strings.Split(spec, ";") {
		key, value, _ := strings.Cut(part, ":")

		switch strings.TrimSpace(key) {
		case "fieldNames":
			pivot.FieldNames = SplitFields(value)
		case "limit":
			limit, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || limit <= 0 {
				return api.Pivot{}, fmt.Errorf(
					"%w: pivot limit must be a positive integer, got '%s'", ErrInvalidQuery, value,
				)
			}
			pivot.Limit = limit
		case "orderBy":
			pivot.OrderBys = []api.OrderBy{metricOrder(strings.TrimSpace(value), true)}
		}
	}
	return pivot, nil
}

// BuildRealtimeRequest compiles a realtime report query.
func BuildRealtimeRequest(target string, q RealtimeQuery) (*api.RunRealtimeReportRequest, error) {
	property, err := requireProperty(target)
	if err != nil {
		return nil, err
	}

	request := &api.RunRealtimeReportRequest{
		Property:   property,
		Dimensions: dimensions(q.Dimensions),
		Metrics:    metrics(q.Metrics),
	}

	if q.Limit != "" {
		if request.Limit, err = parseLimit(q.Limit); err != nil {
			return nil, err
		}
	}

	return request, nil
}

// BuildCohortRequest compiles a cohort report. Each "start:end" range becomes a
// cohort named cohort_<index>, tracked daily over 5 offset periods.
func BuildCohortRequest(target string, q CohortQuery) (*api.RunReportRequest, error) {
	property, err := requireProperty(target)
	if err != nil {
		return nil, err
	}

	cohortDimension := q.Dimension
	if cohortDimension == "" {
		cohortDimension = DefaultCohortDimension
	}

	spec := &api.CohortSpec{
		CohortsRange: api.CohortsRange{Granularity: "DAILY", EndOffset: 5},
	}
	if q.DateRanges != "" {
		for i, dateRange := range strings.Split(q.DateRanges, ",") {
			start, end, found := strings.Cut(strings.TrimSpace(dateRange), ":")
			if !found {
				return nil, fmt.Errorf(
					"%w: cohort date range must be start:end, got '%s'", ErrInvalidQuery, dateRange,
				)
			}
			spec.Cohorts = append(spec.Cohorts, api.Cohort{
				Name:      fmt.Sprintf("cohort_%d", i),
				Dimension: cohortDimension,
				DateRange: api.DateRange{StartDate: start, EndDate: end},
			})
		}
	}

	return &api.RunReportRequest{
		Property:   property,
		Dimensions: dimensions(q.Dimensions),
		Metrics:    metrics(q.Metrics),
		CohortSpec: spec,
	}, nil
}

// BuildFunnelRequest compiles a funnel report. Each step is an exact match on
// the event name; the general filter grammar does not apply to steps.
func BuildFunnelRequest(target string, q FunnelQuery) (*api.RunFunnelReportRequest, error) {
	property, err := requireProperty(target)
	if err != nil {
		return nil, err
	}

	request := &api.RunFunnelReportRequest{Property: property}

	if q.Steps != "" {
		for _, step := range strings.Split(q.Steps, ",") {
			name, eventName, found := strings.Cut(step, ":")
			if !found {
				return nil, fmt.Errorf("%w: funnel step must be name:eventName, got '%s'", ErrInvalidQuery, step)
			}
			request.Funnel.Steps = append(request.Funnel.Steps, funnelStep(name, eventName))
		}
	}
	if len(request.Funnel.Steps) == 0 {
		return nil, fmt.Errorf("%w: funnel needs at least one step", ErrInvalidQuery)
	}

	// The API applies its own default window when no range is sent
	if q.Start != "" || q.End != "" {
		request.DateRanges = dateRanges(q.Start, q.End, "", "")
	}

	if len(q.Dimensions) > 0 {
		request.FunnelBreakdown = &api.FunnelBreakdown{
			BreakdownDimension: api.Dimension{Name: q.Dimensions[0]},
		}
	}

	return request, nil
}

func funnelStep(name, eventName string) api.FunnelStep {
	return api.FunnelStep{
		Name: name,
		FilterExpression: api.FunnelFilterExpression{
			AndGroup: &api.FunnelFilterExpressionList{
				Expressions: []api.FunnelFilterExpression{{
					FunnelFieldFilter: &api.FunnelFieldFilter{
						FieldName:    FunnelStepField,
						StringFilter: &api.StringFilter{MatchType: "EXACT", Value: eventName},
					},
				}},
			},
		},
	}
}

func requireProperty(target string) (string, error) {
	property := PropertyPath(target)
	if property == "" {
		return "", fmt.Errorf("%w: property is required (pass it as an argument, with --property, or set a default)", ErrInvalidQuery)
	}
	return property, nil
}

// dateRanges gives the primary range, plus a comparison range only when both
// of its ends are given.
func dateRanges(start, end, compareStart, compareEnd string) []api.DateRange {
	if start == "" {
		start = DefaultStartDate
	}
	if end == "" {
		end = DefaultEndDate
	}

	ranges := []api.DateRange{{StartDate: start, EndDate: end}}
	if compareStart != "" && compareEnd != "" {
		ranges = append(ranges, api.DateRange{StartDate: compareStart, EndDate: compareEnd})
	}
	return ranges
}

func parseLimit(limit NumberText) (int64, error) {
	text := strings.TrimSpace(string(limit))
	if text == "" {
		return DefaultLimit, nil
	}

	parsed, err := strconv.ParseInt(text, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer, got '%s'", ErrInvalidQuery, limit)
	}
	return parsed, nil
}

func dimensions(names FieldList) []api.Dimension {
	if len(names) == 0 {
		return nil
	}
	dimensions := make([]api.Dimension, len(names))
	for i, name := range names {
		dimensions[i] = api.Dimension{Name: strings.TrimSpace(name)}
	}
	return dimensions
}

func metrics(names FieldList) []api.Metric {
	if len(names) == 0 {
		return nil
	}
	metrics := make([]api.Metric, len(names))
	for i, name := range names {
		metrics[i] = api.Metric{Name: strings.TrimSpace(name)}
	}
	return metrics
}

func metricOrder(metric string, descending bool) api.OrderBy {
	return api.OrderBy{Desc: descending, Metric: &api.MetricOrderBy{MetricName: metric}}
}

// compileFilters parses every dimension and metric filter expression. An empty
// list leaves the corresponding request field nil, so it is omitted.
func compileFilters(dimensionExprs, metricExprs ExprList) (
	dimensionFilter *api.FilterExpression,
	metricFilter *api.FilterExpression,
	err error,
) {
	dimensionExpression, err := filter.ParseDimensionFilters(dimensionExprs)
	if err != nil {
		return nil, nil, err
	}
	metricExpression, err := filter.ParseMetricFilters(metricExprs)
	if err != nil {
		return nil, nil, err
	}
	return filter.ToAPI(dimensionExpression), filter.ToAPI(metricExpression), nil
}

package api

// Data API request structures. Property is carried in the URL, never in the body.

type RunReportRequest struct {
	Property           string            `json:"-"`
	Dimensions         []Dimension       `json:"dimensions,omitempty"`
	Metrics            []Metric          `json:"metrics,omitempty"`
	DateRanges         []DateRange       `json:"dateRanges,omitempty"`
	DimensionFilter    *FilterExpression `json:"dimensionFilter,omitempty"`
	MetricFilter       *FilterExpression `json:"metricFilter,omitempty"`
	Offset             int64             `json:"offset,omitempty"`
	Limit              int64             `json:"limit,omitempty"`
	MetricAggregations []string          `json:"metricAggregations,omitempty"`
	OrderBys           []OrderBy         `json:"orderBys,omitempty"`
	CohortSpec         *CohortSpec       `json:"cohortSpec,omitempty"`
	KeepEmptyRows      bool              `json:"keepEmptyRows,omitempty"`
}

type RunPivotReportRequest struct {
	Property        string            `json:"-"`
	Dimensions      []Dimension       `json:"dimensions,omitempty"`
	Metrics         []Metric          `json:"metrics,omitempty"`
	DateRanges      []DateRange       `json:"dateRanges,omitempty"`
	DimensionFilter *FilterExpression `json:"dimensionFilter,omitempty"`
	MetricFilter    *FilterExpression `json:"metricFilter,omitempty"`
	Pivots          []Pivot           `json:"pivots,omitempty"`
}

type RunRealtimeReportRequest struct {
	Property   string      `json:"-"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
	Metrics    []Metric    `json:"metrics,omitempty"`
	Limit      int64       `json:"limit,omitempty"`
}

type RunFunnelReportRequest struct {
	Property        string           `json:"-"`
	DateRanges      []DateRange      `json:"dateRanges,omitempty"`
	Funnel          Funnel           `json:"funnel"`
	FunnelBreakdown *FunnelBreakdown `json:"funnelBreakdown,omitempty"`
}

type BatchRunReportsRequest struct {
	Requests []*RunReportRequest `json:"requests"`
}

type Dimension struct {
	Name string `json:"name"`
}

type Metric struct {
	Name string `json:"name"`
}

type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Name      string `json:"name,omitempty"`
}

type FilterExpression struct {
	AndGroup      *FilterExpressionList `json:"andGroup,omitempty"`
	OrGroup       *FilterExpressionList `json:"orGroup,omitempty"`
	NotExpression *FilterExpression     `json:"notExpression,omitempty"`
	Filter        *Filter               `json:"filter,omitempty"`
}

type FilterExpressionList struct {
	Expressions []FilterExpression `json:"expressions"`
}

type Filter struct {
	FieldName     string         `json:"fieldName"`
	StringFilter  *StringFilter  `json:"stringFilter,omitempty"`
	NumericFilter *NumericFilter `json:"numericFilter,omitempty"`
	InListFilter  *InListFilter  `json:"inListFilter,omitempty"`
}

type StringFilter struct {
	MatchType     string `json:"matchType"` // EXACT, CONTAINS, BEGINS_WITH, ENDS_WITH, FULL_REGEXP
	Value         string `json:"value"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
}

type NumericFilter struct {
	Operation string       `json:"operation"` // EQUAL, LESS_THAN, GREATER_THAN, etc.
	Value     NumericValue `json:"value"`
}

type InListFilter struct {
	Values        []string `json:"values"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
}

type NumericValue struct {
	Int64Value  string `json:"int64Value,omitempty"`
	DoubleValue string `json:"doubleValue,omitempty"`
}

type OrderBy struct {
	Desc   bool           `json:"desc,omitempty"`
	Metric *MetricOrderBy `json:"metric,omitempty"`
}

type MetricOrderBy struct {
	MetricName string `json:"metricName"`
}

type Pivot struct {
	FieldNames []string  `json:"fieldNames,omitempty"`
	Limit      int64     `json:"limit,omitempty"`
	OrderBys   []OrderBy `json:"orderBys,omitempty"`
}

type CohortSpec struct {
	Cohorts      []Cohort     `json:"cohorts"`
	CohortsRange CohortsRange `json:"cohortsRange"`
}

type Cohort struct {
	Name      string    `json:"name"`
	Dimension string    `json:"dimension"`
	DateRange DateRange `json:"dateRange"`
}

type CohortsRange struct {
	Granularity string `json:"granularity"` // DAILY, WEEKLY, MONTHLY
	StartOffset int    `json:"startOffset,omitempty"`
	EndOffset   int    `json:"endOffset"`
}

type Funnel struct {
	Steps []FunnelStep `json:"steps"`
}

type FunnelStep struct {
	Name             string                 `json:"name"`
	FilterExpression FunnelFilterExpression `json:"filterExpression"`
}

type FunnelFilterExpression struct {
	AndGroup          *FunnelFilterExpressionList `json:"andGroup,omitempty"`
	FunnelFieldFilter *FunnelFieldFilter          `json:"funnelFieldFilter,omitempty"`
}

type FunnelFilterExpressionList struct {
	Expressions []FunnelFilterExpression `json:"expressions"`
}

type FunnelFieldFilter struct {
	FieldName    string        `json:"fieldName"`
	StringFilter *StringFilter `json:"stringFilter,omitempty"`
}

type FunnelBreakdown struct {
	BreakdownDimension Dimension `json:"breakdownDimension"`
}

// Response structures

// ReportTable is the column-oriented shape shared by every report response:
// headers plus row-major values positionally aligned to them.
type ReportTable struct {
	DimensionHeaders []DimensionHeader `json:"dimensionHeaders"`
	MetricHeaders    []MetricHeader    `json:"metricHeaders"`
	Rows             []Row             `json:"rows"`
}

type RunReportResponse struct {
	ReportTable
	RowCount int              `json:"rowCount"`
	Metadata ResponseMetadata `json:"metadata"`
	Kind     string           `json:"kind"`
}

type RunPivotReportResponse struct {
	ReportTable
	PivotHeaders []PivotHeader    `json:"pivotHeaders"`
	Metadata     ResponseMetadata `json:"metadata"`
}

type RunRealtimeReportResponse struct {
	ReportTable
	RowCount int `json:"rowCount"`
}

type RunFunnelReportResponse struct {
	FunnelTable         ReportTable `json:"funnelTable"`
	FunnelVisualization ReportTable `json:"funnelVisualization"`
}

type BatchRunReportsResponse struct {
	Reports []RunReportResponse `json:"reports"`
}

type PivotHeader struct {
	RowCount int `json:"rowCount"`
}

type DimensionHeader struct {
	Name string `json:"name"`
}

type MetricHeader struct {
	Name string `json:"name"`
	Type string `json:"type"` // TYPE_INTEGER, TYPE_FLOAT, TYPE_SECONDS, TYPE_CURRENCY, etc.
}

type Row struct {
	DimensionValues []Value `json:"dimensionValues"`
	MetricValues    []Value `json:"metricValues"`
}

type Value struct {
	Value string `json:"value"`
}

type ResponseMetadata struct {
	CurrencyCode string `json:"currencyCode"`
	TimeZone     string `json:"timeZone"`
	EmptyReason  string `json:"emptyReason,omitempty"`
}

// Metadata structures

type MetadataResponse struct {
	Name       string              `json:"name"`
	Dimensions []DimensionMetadata `json:"dimensions"`
	Metrics    []MetricMetadata    `json:"metrics"`
}

type DimensionMetadata struct {
	APIName          string `json:"apiName"`
	UIName           string `json:"uiName"`
	Description      string `json:"description"`
	CustomDefinition bool   `json:"customDefinition"`
	Category         string `json:"category"`
}

type MetricMetadata struct {
	APIName          string `json:"apiName"`
	UIName           string `json:"uiName"`
	Description      string `json:"description"`
	Type             string `json:"type"`
	CustomDefinition bool   `json:"customDefinition"`
	Category         string `json:"category"`
}

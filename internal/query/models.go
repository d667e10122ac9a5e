package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hermannm.dev/enumnames"
)

// ErrInvalidQuery is returned when query parameters cannot be compiled into a request.
var ErrInvalidQuery = errors.New("invalid query")

const (
	DefaultStartDate = "30daysAgo"
	DefaultEndDate   = "today"
	DefaultLimit     = 100

	DefaultCohortDimension = "firstSessionDate"
	FunnelStepField        = "eventName"
)

// Query holds the user-supplied parameters of a standard report, from CLI flags
// or from one entry of a batch file.
type Query struct {
	Name         string     `json:"name,omitempty"`
	Dimensions   FieldList  `json:"dimensions,omitempty"`
	Metrics      FieldList  `json:"metrics,omitempty"`
	Start        string     `json:"start,omitempty"`
	End          string     `json:"end,omitempty"`
	CompareStart string     `json:"compareStart,omitempty"`
	CompareEnd   string     `json:"compareEnd,omitempty"`
	Limit        NumberText `json:"limit,omitempty"`
	OrderBy      string     `json:"orderBy,omitempty"`
	Ascending    bool       `json:"ascending,omitempty"`
	Filter       ExprList   `json:"filter,omitempty"`
	MetricFilter ExprList   `json:"metricFilter,omitempty"`
}

// UnmarshalJSON accepts "asc" as an alias of "ascending".
func (q *Query) UnmarshalJSON(data []byte) error {
	type plain Query
	var decoded struct {
		plain
		Asc *bool `json:"asc,omitempty"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	*q = Query(decoded.plain)
	if decoded.Asc != nil && *decoded.Asc {
		q.Ascending = true
	}
	return nil
}

// PivotQuery is a standard query cross-tabulated by one or more pivot specs of
// the form "fieldNames:dim1,dim2;limit:N;orderBy:metric".
type PivotQuery struct {
	Query
	Pivots []string `json:"pivots,omitempty"`
}

// UnmarshalJSON is needed since the embedded Query's decoder would otherwise
// be promoted and drop the pivots.
func (q *PivotQuery) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &q.Query); err != nil {
		return err
	}

	var pivots struct {
		Pivots []string `json:"pivots"`
	}
	if err := json.Unmarshal(data, &pivots); err != nil {
		return err
	}
	q.Pivots = pivots.Pivots
	return nil
}

// RealtimeQuery covers the last 30 minutes of events, so it has no date range.
type RealtimeQuery struct {
	Dimensions FieldList  `json:"dimensions,omitempty"`
	Metrics    FieldList  `json:"metrics,omitempty"`
	Limit      NumberText `json:"limit,omitempty"`
}

// CohortQuery defines cohorts from "start:end" date ranges joined by commas.
type CohortQuery struct {
	Dimension  string    `json:"cohortDimension,omitempty"`
	DateRanges string    `json:"dateRanges,omitempty"`
	Dimensions FieldList `json:"dimensions,omitempty"`
	Metrics    FieldList `json:"metrics,omitempty"`
}

// FunnelQuery defines funnel steps as "name:eventName" pairs joined by commas.
// Only the first dimension is used, as the funnel breakdown.
type FunnelQuery struct {
	Steps      string    `json:"steps,omitempty"`
	Dimensions FieldList `json:"dimensions,omitempty"`
	Start      string    `json:"start,omitempty"`
	End        string    `json:"end,omitempty"`
}

// FieldList is a list of field names, decoded from either a comma-separated
// string or a JSON array. Entries are trimmed but empty entries are kept.
type FieldList []string

func (list *FieldList) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*list = SplitFields(text)
		return nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("expected comma-separated string or array of field names, got %s", data)
	}
	for i, name := range names {
		names[i] = strings.TrimSpace(name)
	}
	*list = names
	return nil
}

// SplitFields splits a comma-separated field list. An empty string gives no fields.
func SplitFields(text string) FieldList {
	if text == "" {
		return nil
	}
	names := strings.Split(text, ",")
	for i, name := range names {
		names[i] = strings.TrimSpace(name)
	}
	return names
}

// ExprList is a list of filter expressions, decoded from either a single string
// or a JSON array of strings. A single string is one expression and never split.
type ExprList []string

func (list *ExprList) UnmarshalJSON(data []byte) error {
	var expr string
	if err := json.Unmarshal(data, &expr); err == nil {
		*list = ExprList{expr}
		return nil
	}

	var exprs []string
	if err := json.Unmarshal(data, &exprs); err != nil {
		return fmt.Errorf("expected filter string or array of filter strings, got %s", data)
	}
	*list = exprs
	return nil
}

// NumberText holds a number as written, decoded from either a JSON number or a
// JSON string. It is validated when the request is built.
type NumberText string

func (number *NumberText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*number = ""
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*number = NumberText(text)
		return nil
	}

	var raw json.Number
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("expected number or numeric string, got %s", data)
	}
	*number = NumberText(raw.String())
	return nil
}

// Kind is the shape of report a command runs.
type Kind uint8

const (
	KindStandard Kind = 1
	KindPivot    Kind = 2
	KindRealtime Kind = 3
	KindCohort   Kind = 4
	KindFunnel   Kind = 5
)

var kindNames = enumnames.NewMap(map[Kind]string{
	KindStandard: "standard",
	KindPivot:    "pivot",
	KindRealtime: "realtime",
	KindCohort:   "cohort",
	KindFunnel:   "funnel",
})

var emptyResultMessages = map[Kind]string{
	KindStandard: "No data for the given parameters",
	KindPivot:    "No pivot data",
	KindRealtime: "No realtime data",
	KindCohort:   "No cohort data",
	KindFunnel:   "No funnel data",
}

func (kind Kind) IsValid() bool {
	return kindNames.ContainsEnumValue(kind)
}

func (kind Kind) String() string {
	return kindNames.GetNameOrFallback(kind, "[INVALID REPORT KIND]")
}

func (kind Kind) MarshalJSON() ([]byte, error) {
	return kindNames.MarshalToNameJSON(kind)
}

func (kind *Kind) UnmarshalJSON(bytes []byte) error {
	return kindNames.UnmarshalFromNameJSON(bytes, kind)
}

// EmptyResultMessage is shown in place of a table when a report has no rows.
func (kind Kind) EmptyResultMessage() string {
	if message, ok := emptyResultMessages[kind]; ok {
		return message
	}
	return "No data"
}

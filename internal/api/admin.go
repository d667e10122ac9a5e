package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hermannm.dev/wrap"
)

const (
	AdminAPIBaseURL      = "https://analyticsadmin.googleapis.com/v1beta"
	AdminAPIAlphaBaseURL = "https://analyticsadmin.googleapis.com/v1alpha"
)

// AdminClient handles the read-only GA4 Admin API operations.
type AdminClient struct {
	caller
	baseURL      string
	alphaBaseURL string
}

// NewAdminClient creates a new GA4 Admin API client. Empty URLs select the
// production endpoints.
func NewAdminClient(auth HTTPClientSource, baseURL, alphaBaseURL string, requestsPerSecond float64) *AdminClient {
	if baseURL == "" {
		baseURL = AdminAPIBaseURL
	}
	if alphaBaseURL == "" {
		alphaBaseURL = AdminAPIAlphaBaseURL
	}
	return &AdminClient{
		caller:       caller{auth: auth, limiter: newLimiter(requestsPerSecond)},
		baseURL:      baseURL,
		alphaBaseURL: alphaBaseURL,
	}
}

type Account struct {
	Name        string `json:"name"`        // "accounts/71671299"
	DisplayName string `json:"displayName"` // "T-Mobile Tuesdays"
	RegionCode  string `json:"regionCode"`
	CreateTime  string `json:"createTime"`
	UpdateTime  string `json:"updateTime"`
	Deleted     bool   `json:"deleted"`
}

type Property struct {
	Name             string `json:"name"` // "properties/328687832"
	DisplayName      string `json:"displayName"`
	Parent           string `json:"parent"`
	TimeZone         string `json:"timeZone"`
	CurrencyCode     string `json:"currencyCode"`
	IndustryCategory string `json:"industryCategory"`
	ServiceLevel     string `json:"serviceLevel"`
	CreateTime       string `json:"createTime"`
	UpdateTime       string `json:"updateTime"`
}

type accountsResponse struct {
	Accounts      []Account `json:"accounts"`
	NextPageToken string    `json:"nextPageToken"`
}

type propertiesResponse struct {
	Properties    []Property `json:"properties"`
	NextPageToken string     `json:"nextPageToken"`
}

// ListAccounts retrieves all accounts accessible by the current credentials,
// following pagination and skipping deleted accounts.
func (c *AdminClient) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	pageToken := ""
	for {
		endpoint := c.baseURL + "/accounts?pageSize=200"
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page accountsResponse
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, wrap.Error(err, "failed to list accounts")
		}
		for _, account := range page.Accounts {
			if !account.Deleted {
				accounts = append(accounts, account)
			}
		}

		if page.NextPageToken == "" {
			return accounts, nil
		}
		pageToken = page.NextPageToken
	}
}

// GetAccount retrieves a single account by resource name.
func (c *AdminClient) GetAccount(ctx context.Context, account string) (*Account, error) {
	var result Account
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, account), nil, &result); err != nil {
		return nil, wrap.Errorf(err, "failed to get account %s", account)
	}
	return &result, nil
}

// ListProperties retrieves the properties under the given account.
func (c *AdminClient) ListProperties(ctx context.Context, account string) ([]Property, error) {
	var properties []Property
	pageToken := ""
	for {
		// The Admin API requires a parent filter when listing properties
		query := url.Values{}
		query.Set("filter", "parent:"+account)
		query.Set("pageSize", "200")
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var page propertiesResponse
		endpoint := c.baseURL + "/properties?" + query.Encode()
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, wrap.Errorf(err, "failed to list properties of %s", account)
		}
		properties = append(properties, page.Properties...)

		if page.NextPageToken == "" {
			return properties, nil
		}
		pageToken = page.NextPageToken
	}
}

// GetProperty retrieves detailed information for a specific property.
func (c *AdminClient) GetProperty(ctx context.Context, property string) (*Property, error) {
	var result Property
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, property), nil, &result); err != nil {
		return nil, wrap.Errorf(err, "failed to get property %s", property)
	}
	return &result, nil
}

// ChangeHistoryQuery narrows a change history search. Times are epoch seconds;
// zero means unbounded.
type ChangeHistoryQuery struct {
	Account            string
	Property           string
	ResourceTypes      []string
	Actions            []string
	ActorEmails        []string
	EarliestChangeTime int64
	LatestChangeTime   int64
	PageSize           int
}

type searchChangeHistoryRequest struct {
	Property           string   `json:"property,omitempty"`
	ResourceType       []string `json:"resourceType,omitempty"`
	Action             []string `json:"action,omitempty"`
	ActorEmail         []string `json:"actorEmail,omitempty"`
	EarliestChangeTime string   `json:"earliestChangeTime,omitempty"`
	LatestChangeTime   string   `json:"latestChangeTime,omitempty"`
	PageSize           int      `json:"pageSize,omitempty"`
}

type ChangeHistoryEvent struct {
	ID              string                `json:"id"`
	ChangeTime      string                `json:"changeTime"`
	ActorType       string                `json:"actorType"`
	UserActorEmail  string                `json:"userActorEmail"`
	ChangesFiltered bool                  `json:"changesFiltered"`
	Changes         []ChangeHistoryChange `json:"changes"`
}

type ChangeHistoryChange struct {
	Resource             string          `json:"resource"`
	Action               string          `json:"action"`
	ResourceBeforeChange json.RawMessage `json:"resourceBeforeChange,omitempty"`
	ResourceAfterChange  json.RawMessage `json:"resourceAfterChange,omitempty"`
}

type searchChangeHistoryResponse struct {
	ChangeHistoryEvents []ChangeHistoryEvent `json:"changeHistoryEvents"`
}

// SearchChangeHistory returns the configuration change events of an account.
func (c *AdminClient) SearchChangeHistory(ctx context.Context, query ChangeHistoryQuery) ([]ChangeHistoryEvent, error) {
	request := searchChangeHistoryRequest{
		Property:           query.Property,
		ResourceType:       query.ResourceTypes,
		Action:             query.Actions,
		ActorEmail:         query.ActorEmails,
		EarliestChangeTime: rfc3339FromEpoch(query.EarliestChangeTime),
		LatestChangeTime:   rfc3339FromEpoch(query.LatestChangeTime),
		PageSize:           query.PageSize,
	}

	var response searchChangeHistoryResponse
	endpoint := fmt.Sprintf("%s/%s:searchChangeHistoryEvents", c.baseURL, query.Account)
	if err := c.do(ctx, http.MethodPost, endpoint, request, &response); err != nil {
		return nil, wrap.Errorf(err, "failed to search change history of %s", query.Account)
	}
	return response.ChangeHistoryEvents, nil
}

func rfc3339FromEpoch(seconds int64) string {
	if seconds == 0 {
		return ""
	}
	return time.Unix(seconds, 0).UTC().Format(time.RFC3339)
}

// AccessReportRequest asks who accessed reporting data of an account or property.
type AccessReportRequest struct {
	Entity     string            `json:"-"`
	Dimensions []AccessDimension `json:"dimensions,omitempty"`
	Metrics    []AccessMetric    `json:"metrics,omitempty"`
	DateRanges []AccessDateRange `json:"dateRanges"`
	Limit      int64             `json:"limit,omitempty"`
}

type AccessDimension struct {
	DimensionName string `json:"dimensionName"`
}

type AccessMetric struct {
	MetricName string `json:"metricName"`
}

type AccessDateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type accessReportResponse struct {
	DimensionHeaders []AccessDimension `json:"dimensionHeaders"`
	MetricHeaders    []AccessMetric    `json:"metricHeaders"`
	Rows             []Row             `json:"rows"`
	RowCount         int               `json:"rowCount"`
}

// NewAccessReportRequest splits comma-separated field lists and applies the
// default window of the last 30 days.
func NewAccessReportRequest(entity, dimensions, metrics, startDate, endDate string, limit int64) *AccessReportRequest {
	if startDate == "" {
		startDate = "30daysAgo"
	}
	if endDate == "" {
		endDate = "today"
	}

	request := &AccessReportRequest{
		Entity:     entity,
		DateRanges: []AccessDateRange{{StartDate: startDate, EndDate: endDate}},
		Limit:      limit,
	}
	for _, name := range splitNames(dimensions) {
		request.Dimensions = append(request.Dimensions, AccessDimension{DimensionName: name})
	}
	for _, name := range splitNames(metrics) {
		request.Metrics = append(request.Metrics, AccessMetric{MetricName: name})
	}
	return request
}

// RunAccessReport runs a data access report and converts it to the shared
// ReportTable shape, so it normalizes like any other report.
func (c *AdminClient) RunAccessReport(ctx context.Context, request *AccessReportRequest) (*ReportTable, error) {
	var response accessReportResponse
	endpoint := fmt.Sprintf("%s/%s:runAccessReport", c.baseURL, request.Entity)
	if err := c.do(ctx, http.MethodPost, endpoint, request, &response); err != nil {
		return nil, wrap.Errorf(err, "failed to run access report for %s", request.Entity)
	}

	table := &ReportTable{Rows: response.Rows}
	for _, header := range response.DimensionHeaders {
		table.DimensionHeaders = append(table.DimensionHeaders, DimensionHeader{Name: header.DimensionName})
	}
	for _, header := range response.MetricHeaders {
		table.MetricHeaders = append(table.MetricHeaders, MetricHeader{Name: header.MetricName})
	}
	return table, nil
}

func splitNames(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

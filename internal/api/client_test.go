package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) > 0 {
			require.NoError(t, json.Unmarshal(body, &recorded.body))
		}
		requests = append(requests, recorded)

		w.Header().Set("Content-Type", "application/json")
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "30")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func newTestDataClient(server *httptest.Server) *DataClient {
	return NewDataClient(
		StaticToken("test-token"),
		WithBaseURLs(server.URL+"/v1beta", server.URL+"/v1alpha"),
		WithRequestsPerSecond(0),
	)
}

func TestRunReport(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{
		"dimensionHeaders": [{"name": "country"}],
		"metricHeaders": [{"name": "sessions", "type": "TYPE_INTEGER"}],
		"rows": [{"dimensionValues": [{"value": "NO"}], "metricValues": [{"value": "42"}]}],
		"rowCount": 1
	}`)
	client := newTestDataClient(server)

	response, err := client.RunReport(context.Background(), &RunReportRequest{
		Property:   "properties/123",
		Dimensions: []Dimension{{Name: "country"}},
		Metrics:    []Metric{{Name: "sessions"}},
		DateRanges: []DateRange{{StartDate: "7daysAgo", EndDate: "today"}},
		Limit:      100,
	})
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	request := (*requests)[0]
	assert.Equal(t, http.MethodPost, request.method)
	assert.Equal(t, "/v1beta/properties/123:runReport", request.path)
	assert.Equal(t, "Bearer test-token", request.auth)
	assert.NotContains(t, request.body, "property")
	assert.EqualValues(t, 100, request.body["limit"])

	assert.Equal(t, 1, response.RowCount)
	require.Len(t, response.Rows, 1)
	assert.Equal(t, "NO", response.Rows[0].DimensionValues[0].Value)
	assert.Equal(t, "sessions", response.MetricHeaders[0].Name)
}

func TestRunFunnelReportUsesAlphaEndpoint(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"funnelTable": {"rows": []}}`)
	client := newTestDataClient(server)

	_, err := client.RunFunnelReport(context.Background(), &RunFunnelReportRequest{Property: "properties/9"})
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	assert.Equal(t, "/v1alpha/properties/9:runFunnelReport", (*requests)[0].path)
}

func TestBatchRunReports(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"reports": [{"rowCount": 1}, {"rowCount": 2}]}`)
	client := newTestDataClient(server)

	response, err := client.BatchRunReports(context.Background(), "properties/1", []*RunReportRequest{
		{Property: "properties/1", Metrics: []Metric{{Name: "sessions"}}},
		{Property: "properties/1", Metrics: []Metric{{Name: "totalUsers"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/properties/1:batchRunReports", (*requests)[0].path)
	sent, ok := (*requests)[0].body["requests"].([]any)
	require.True(t, ok)
	assert.Len(t, sent, 2)

	require.Len(t, response.Reports, 2)
	assert.Equal(t, 2, response.Reports[1].RowCount)
}

func TestAPIErrorDecoding(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantCode   codes.Code
		wantStatus string
		wantMsg    string
		wantRetry  string
	}{
		{
			name:       "invalid argument envelope",
			status:     http.StatusBadRequest,
			body:       `{"error": {"code": 400, "message": "Field sesions is not a valid metric.", "status": "INVALID_ARGUMENT"}}`,
			wantCode:   codes.InvalidArgument,
			wantStatus: "INVALID_ARGUMENT",
			wantMsg:    "Field sesions is not a valid metric.",
		},
		{
			name:       "quota envelope",
			status:     http.StatusTooManyRequests,
			body:       `{"error": {"code": 429, "message": "Exhausted property tokens", "status": "RESOURCE_EXHAUSTED"}}`,
			wantCode:   codes.ResourceExhausted,
			wantStatus: "RESOURCE_EXHAUSTED",
			wantMsg:    "Exhausted property tokens",
			wantRetry:  "30",
		},
		{
			name:   "retry info detail",
			status: http.StatusForbidden,
			body: `{"error": {"code": 403, "message": "quota", "status": "RESOURCE_EXHAUSTED", "details": [
				{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "45s"}
			]}}`,
			wantCode:   codes.ResourceExhausted,
			wantStatus: "RESOURCE_EXHAUSTED",
			wantMsg:    "quota",
			wantRetry:  "45",
		},
		{
			name:     "plain text body",
			status:   http.StatusUnauthorized,
			body:     `unauthorized`,
			wantCode: codes.Unauthenticated,
			wantMsg:  "unauthorized",
		},
		{
			name:     "empty body",
			status:   http.StatusNotFound,
			body:     ``,
			wantCode: codes.NotFound,
			wantMsg:  "404 Not Found",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server, _ := newTestServer(t, testCase.status, testCase.body)
			client := newTestDataClient(server)

			_, err := client.GetMetadata(context.Background(), "properties/1")
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, testCase.status, apiErr.HTTPStatus)
			assert.Equal(t, testCase.wantCode, apiErr.Code)
			assert.Equal(t, testCase.wantStatus, apiErr.Status)
			assert.Equal(t, testCase.wantMsg, apiErr.Message)
			assert.Equal(t, testCase.wantRetry, apiErr.RetryAfter)
		})
	}
}

type memoryMetadataCache struct {
	entries map[string][]byte
	reads   int
}

func (m *memoryMetadataCache) GetCachedMetadata(
	_ context.Context,
	property, cacheType string,
	result any,
) (bool, error) {
	m.reads++
	data, ok := m.entries[property+"/"+cacheType]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, result)
}

func (m *memoryMetadataCache) CacheMetadata(_ context.Context, property, cacheType string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.entries[property+"/"+cacheType] = encoded
	return nil
}

func TestGetMetadataUsesCache(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{
		"name": "properties/1/metadata",
		"dimensions": [{"apiName": "country", "uiName": "Country", "category": "Geography"}],
		"metrics": [{"apiName": "sessions", "uiName": "Sessions", "type": "TYPE_INTEGER"}]
	}`)
	cache := &memoryMetadataCache{entries: map[string][]byte{}}
	client := NewDataClient(
		StaticToken("test-token"),
		WithBaseURLs(server.URL+"/v1beta", server.URL+"/v1alpha"),
		WithMetadataCache(cache),
	)

	first, err := client.GetMetadata(context.Background(), "properties/1")
	require.NoError(t, err)
	second, err := client.GetMetadata(context.Background(), "properties/1")
	require.NoError(t, err)

	assert.Len(t, *requests, 1, "second lookup should be served from cache")
	assert.Equal(t, "/v1beta/properties/1/metadata", (*requests)[0].path)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, cache.reads)
}

func TestMissingTokenIsNotAuthenticated(t *testing.T) {
	client := NewDataClient(StaticToken(""), WithRequestsPerSecond(0))

	_, err := client.RunReport(context.Background(), &RunReportRequest{Property: "properties/1"})
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestNewAuthClientRequiresCredentials(t *testing.T) {
	_, err := NewAuthClient("", "", "1//token")
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = NewAuthClient("id", "secret", "  ")
	require.ErrorIs(t, err, ErrNotAuthenticated)

	client, err := NewAuthClient("id", "secret", " 1//token ")
	require.NoError(t, err)
	assert.Equal(t, "1//token", client.refreshToken)
}

func TestListPropertiesFollowsPagination(t *testing.T) {
	page := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "parent:accounts/7", r.URL.Query().Get("filter"))
		page++
		if page == 1 {
			assert.Empty(t, r.URL.Query().Get("pageToken"))
			_, _ = w.Write([]byte(`{"properties": [{"name": "properties/1"}], "nextPageToken": "next"}`))
			return
		}
		assert.Equal(t, "next", r.URL.Query().Get("pageToken"))
		_, _ = w.Write([]byte(`{"properties": [{"name": "properties/2"}]}`))
	}))
	t.Cleanup(server.Close)

	client := NewAdminClient(StaticToken("test-token"), server.URL, "", 0)
	properties, err := client.ListProperties(context.Background(), "accounts/7")
	require.NoError(t, err)

	require.Len(t, properties, 2)
	assert.Equal(t, "properties/1", properties[0].Name)
	assert.Equal(t, "properties/2", properties[1].Name)
}

func TestSearchChangeHistoryFormatsTimestamps(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{"changeHistoryEvents": [{"id": "e1", "actorType": "USER"}]}`)
	client := NewAdminClient(StaticToken("test-token"), server.URL, "", 0)

	events, err := client.SearchChangeHistory(context.Background(), ChangeHistoryQuery{
		Account:            "accounts/7",
		Actions:            []string{"CREATED"},
		EarliestChangeTime: 1704067200,
		PageSize:           50,
	})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)

	request := (*requests)[0]
	assert.Equal(t, "/accounts/7:searchChangeHistoryEvents", request.path)
	assert.Equal(t, "2024-01-01T00:00:00Z", request.body["earliestChangeTime"])
	assert.NotContains(t, request.body, "latestChangeTime")
}

func TestRunAccessReportConvertsHeaders(t *testing.T) {
	server, requests := newTestServer(t, http.StatusOK, `{
		"dimensionHeaders": [{"dimensionName": "userEmail"}],
		"metricHeaders": [{"metricName": "accessCount"}],
		"rows": [{"dimensionValues": [{"value": "a@b.c"}], "metricValues": [{"value": "3"}]}]
	}`)
	client := NewAdminClient(StaticToken("test-token"), server.URL, "", 0)

	request := NewAccessReportRequest("properties/5", "userEmail", "accessCount", "", "", 10)
	table, err := client.RunAccessReport(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, "/properties/5:runAccessReport", (*requests)[0].path)
	dateRanges := (*requests)[0].body["dateRanges"].([]any)
	assert.Equal(t, "30daysAgo", dateRanges[0].(map[string]any)["startDate"])

	require.Len(t, table.DimensionHeaders, 1)
	assert.Equal(t, "userEmail", table.DimensionHeaders[0].Name)
	assert.Equal(t, "accessCount", table.MetricHeaders[0].Name)
	assert.Len(t, table.Rows, 1)
}

func TestListResourcesFollowsPagination(t *testing.T) {
	page := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/beta/properties/9/dataStreams", r.URL.Path)
		page++
		if page == 1 {
			_, _ = w.Write([]byte(`{"dataStreams": [{"name": "properties/9/dataStreams/1"}], "nextPageToken": "next"}`))
			return
		}
		assert.Equal(t, "next", r.URL.Query().Get("pageToken"))
		_, _ = w.Write([]byte(`{"dataStreams": [{"name": "properties/9/dataStreams/2", "type": "WEB_DATA_STREAM"}]}`))
	}))
	t.Cleanup(server.Close)

	client := NewAdminClient(StaticToken("test-token"), server.URL+"/beta", server.URL+"/alpha", 0)
	streams, err := client.ListResources(context.Background(), "properties/9", "dataStreams")
	require.NoError(t, err)

	require.Len(t, streams, 2)
	assert.Equal(t, "properties/9/dataStreams/1", streams[0]["name"])
	assert.Equal(t, "WEB_DATA_STREAM", streams[1]["type"])
}

func TestAlphaOnlyResourcesUseAlphaEndpoint(t *testing.T) {
	testCases := []struct {
		name     string
		call     func(client *AdminClient) error
		wantPath string
	}{
		{
			name: "beta collection",
			call: func(client *AdminClient) error {
				_, err := client.ListResources(context.Background(), "properties/9", "customDimensions")
				return err
			},
			wantPath: "/beta/properties/9/customDimensions",
		},
		{
			name: "alpha collection",
			call: func(client *AdminClient) error {
				_, err := client.ListResources(context.Background(), "properties/9", "audiences")
				return err
			},
			wantPath: "/alpha/properties/9/audiences",
		},
		{
			name: "alpha settings under a stream",
			call: func(client *AdminClient) error {
				_, err := client.GetResource(context.Background(), "properties/9/dataStreams/3/enhancedMeasurementSettings")
				return err
			},
			wantPath: "/alpha/properties/9/dataStreams/3/enhancedMeasurementSettings",
		},
		{
			name: "beta settings",
			call: func(client *AdminClient) error {
				_, err := client.GetResource(context.Background(), "properties/9/dataRetentionSettings")
				return err
			},
			wantPath: "/beta/properties/9/dataRetentionSettings",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server, requests := newTestServer(t, http.StatusOK, `{}`)
			client := NewAdminClient(StaticToken("test-token"), server.URL+"/beta", server.URL+"/alpha", 0)

			require.NoError(t, testCase.call(client))
			require.Len(t, *requests, 1)
			assert.Equal(t, testCase.wantPath, (*requests)[0].path)
		})
	}
}

func TestGetResourceNotFound(t *testing.T) {
	server, _ := newTestServer(t, http.StatusNotFound, `{"error": {"code": 404, "message": "Stream not found", "status": "NOT_FOUND"}}`)
	client := NewAdminClient(StaticToken("test-token"), server.URL, "", 0)

	_, err := client.GetResource(context.Background(), "properties/9/dataStreams/404")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, codes.NotFound, apiErr.Code)
	assert.Contains(t, err.Error(), "properties/9/dataStreams/404")
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

const (
	DataAPIBaseURL      = "https://analyticsdata.googleapis.com/v1beta"
	DataAPIAlphaBaseURL = "https://analyticsdata.googleapis.com/v1alpha"

	// Default pacing for outgoing calls, well below the per-property concurrency quota
	DefaultRequestsPerSecond = 5.0

	metadataCacheType = "metadata"
)

// MetadataCache stores the dimension/metric catalog of a property between runs.
type MetadataCache interface {
	GetCachedMetadata(ctx context.Context, property, cacheType string, result any) (bool, error)
	CacheMetadata(ctx context.Context, property, cacheType string, data any) error
}

// DataClient calls the GA4 Data API.
type DataClient struct {
	caller
	baseURL      string
	alphaBaseURL string
	cache        MetadataCache
}

type DataClientOption func(*DataClient)

// WithBaseURLs points the client at another endpoint, used by tests.
func WithBaseURLs(baseURL, alphaBaseURL string) DataClientOption {
	return func(c *DataClient) {
		c.baseURL = baseURL
		c.alphaBaseURL = alphaBaseURL
	}
}

// WithMetadataCache makes GetMetadata consult the given cache first.
func WithMetadataCache(cache MetadataCache) DataClientOption {
	return func(c *DataClient) {
		c.cache = cache
	}
}

// WithRequestsPerSecond sets the request pacing. Zero or less disables pacing.
func WithRequestsPerSecond(rps float64) DataClientOption {
	return func(c *DataClient) {
		c.limiter = newLimiter(rps)
	}
}

// NewDataClient creates a new GA4 Data API client.
func NewDataClient(auth HTTPClientSource, opts ...DataClientOption) *DataClient {
	client := &DataClient{
		caller:       caller{auth: auth, limiter: newLimiter(DefaultRequestsPerSecond)},
		baseURL:      DataAPIBaseURL,
		alphaBaseURL: DataAPIAlphaBaseURL,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// RunReport executes a standard (or cohort) report.
func (c *DataClient) RunReport(ctx context.Context, request *RunReportRequest) (*RunReportResponse, error) {
	var response RunReportResponse
	url := fmt.Sprintf("%s/%s:runReport", c.baseURL, request.Property)
	if err := c.do(ctx, http.MethodPost, url, request, &response); err != nil {
		return nil, wrap.Error(err, "runReport failed")
	}
	return &response, nil
}

// RunPivotReport executes a pivot report.
func (c *DataClient) RunPivotReport(
	ctx context.Context,
	request *RunPivotReportRequest,
) (*RunPivotReportResponse, error) {
	var response RunPivotReportResponse
	url := fmt.Sprintf("%s/%s:runPivotReport", c.baseURL, request.Property)
	if err := c.do(ctx, http.MethodPost, url, request, &response); err != nil {
		return nil, wrap.Error(err, "runPivotReport failed")
	}
	return &response, nil
}

// RunRealtimeReport executes a report over the last 30 minutes of events.
func (c *DataClient) RunRealtimeReport(
	ctx context.Context,
	request *RunRealtimeReportRequest,
) (*RunRealtimeReportResponse, error) {
	var response RunRealtimeReportResponse
	url := fmt.Sprintf("%s/%s:runRealtimeReport", c.baseURL, request.Property)
	if err := c.do(ctx, http.MethodPost, url, request, &response); err != nil {
		return nil, wrap.Error(err, "runRealtimeReport failed")
	}
	return &response, nil
}

// RunFunnelReport executes a funnel report. Funnels are only served by v1alpha.
func (c *DataClient) RunFunnelReport(
	ctx context.Context,
	request *RunFunnelReportRequest,
) (*RunFunnelReportResponse, error) {
	var response RunFunnelReportResponse
	url := fmt.Sprintf("%s/%s:runFunnelReport", c.alphaBaseURL, request.Property)
	if err := c.do(ctx, http.MethodPost, url, request, &response); err != nil {
		return nil, wrap.Error(err, "runFunnelReport failed")
	}
	return &response, nil
}

// BatchRunReports sends up to five report requests in one call. Reports come back
// in request order.
func (c *DataClient) BatchRunReports(
	ctx context.Context,
	property string,
	requests []*RunReportRequest,
) (*BatchRunReportsResponse, error) {
	var response BatchRunReportsResponse
	url := fmt.Sprintf("%s/%s:batchRunReports", c.baseURL, property)
	body := BatchRunReportsRequest{Requests: requests}
	if err := c.do(ctx, http.MethodPost, url, body, &response); err != nil {
		return nil, wrap.Error(err, "batchRunReports failed")
	}
	return &response, nil
}

// GetMetadata retrieves all dimensions and metrics available for a property,
// including its custom definitions.
func (c *DataClient) GetMetadata(ctx context.Context, property string) (*MetadataResponse, error) {
	if c.cache != nil {
		var cached MetadataResponse
		found, err := c.cache.GetCachedMetadata(ctx, property, metadataCacheType, &cached)
		if err != nil {
			log.ErrorCause(err, "failed to read metadata cache", slog.String("property", property))
		} else if found {
			return &cached, nil
		}
		log.Debug("metadata cache miss", slog.String("property", property))
	}

	var metadata MetadataResponse
	url := fmt.Sprintf("%s/%s/metadata", c.baseURL, property)
	if err := c.do(ctx, http.MethodGet, url, nil, &metadata); err != nil {
		return nil, wrap.Error(err, "failed to get metadata")
	}

	if c.cache != nil {
		if err := c.cache.CacheMetadata(ctx, property, metadataCacheType, metadata); err != nil {
			log.ErrorCause(err, "failed to cache metadata", slog.String("property", property))
		}
	}

	return &metadata, nil
}

// caller holds what the Data and Admin clients share: credentials and pacing.
type caller struct {
	auth    HTTPClientSource
	limiter *rate.Limiter
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// do sends one JSON request and decodes a 2xx body into out. Any other status
// is returned as *APIError.
func (c *caller) do(ctx context.Context, method string, url string, body any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return wrap.Error(err, "request cancelled while waiting for rate limiter")
		}
	}

	httpClient, err := c.auth.HTTPClient(ctx)
	if err != nil {
		return wrap.Error(err, "failed to get authenticated HTTP client")
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return wrap.Error(err, "failed to marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	var req *http.Request
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return wrap.Error(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return wrap.Errorf(err, "request to %s failed", url)
	}
	defer resp.Body.Close()

	log.Debug(
		"API call",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrap.Error(err, "failed to decode response")
	}
	return nil
}

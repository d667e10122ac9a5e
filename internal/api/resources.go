package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"hermannm.dev/wrap"
)

// Resource is an Admin API object kept as decoded JSON, for the read-only
// configuration views that only display fields.
type Resource map[string]any

// Admin collections and settings that v1beta does not serve.
var alphaOnlyResources = map[string]bool{
	"accessBindings":                 true,
	"adSenseLinks":                   true,
	"attributionSettings":            true,
	"audiences":                      true,
	"bigQueryLinks":                  true,
	"calculatedMetrics":              true,
	"channelGroups":                  true,
	"displayVideo360AdvertiserLinks": true,
	"enhancedMeasurementSettings":    true,
	"googleSignalsSettings":          true,
	"searchAds360Links":              true,
}

// resourceBaseURL picks the API version serving the given resource path.
func (c *AdminClient) resourceBaseURL(path string) string {
	for _, segment := range strings.Split(path, "/") {
		if alphaOnlyResources[segment] {
			return c.alphaBaseURL
		}
	}
	return c.baseURL
}

// ListResources pages through a collection under parent, e.g. parent
// "properties/123" and collection "dataStreams". The list key of each page is
// the collection name.
func (c *AdminClient) ListResources(ctx context.Context, parent, collection string) ([]Resource, error) {
	path := parent + "/" + collection
	endpoint := fmt.Sprintf("%s/%s", c.resourceBaseURL(path), path)

	var resources []Resource
	pageToken := ""
	for {
		query := url.Values{}
		query.Set("pageSize", "200")
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		var page map[string]any
		if err := c.do(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil, &page); err != nil {
			return nil, wrap.Errorf(err, "failed to list %s", path)
		}

		items, _ := page[collection].([]any)
		for _, item := range items {
			if object, ok := item.(map[string]any); ok {
				resources = append(resources, Resource(object))
			}
		}

		next, _ := page["nextPageToken"].(string)
		if next == "" {
			return resources, nil
		}
		pageToken = next
	}
}

// GetResource fetches one resource or settings singleton by its full name,
// e.g. "properties/123/dataRetentionSettings".
func (c *AdminClient) GetResource(ctx context.Context, name string) (Resource, error) {
	var resource Resource
	endpoint := fmt.Sprintf("%s/%s", c.resourceBaseURL(name), name)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resource); err != nil {
		return nil, wrap.Errorf(err, "failed to get %s", name)
	}
	return resource, nil
}

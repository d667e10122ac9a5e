package main

import (
	"encoding/json"
	"strings"
	"testing"

	"ga4cli/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamsListFlattensWebStreamData(t *testing.T) {
	setupCLI(t, map[string]string{
		"GET /v1beta/properties/123/dataStreams": `{"dataStreams": [
			{"name": "properties/123/dataStreams/1", "displayName": "Web", "type": "WEB_DATA_STREAM",
			 "webStreamData": {"measurementId": "G-ABC", "defaultUri": "https://example.com"}},
			{"name": "properties/123/dataStreams/2", "displayName": "iOS", "type": "IOS_APP_DATA_STREAM"}
		]}`,
	})

	code, stdout, stderr := runCLI(t, "", "streams", "list", "123", "--csv")
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,displayName,type,defaultUri", lines[0])
	assert.Equal(t, "properties/123/dataStreams/1,Web,WEB_DATA_STREAM,https://example.com", lines[1])
	assert.Equal(t, "properties/123/dataStreams/2,iOS,IOS_APP_DATA_STREAM,", lines[2])
}

func TestStreamsGetAndEnhancedMeasurement(t *testing.T) {
	fake := setupCLI(t, map[string]string{
		"GET /v1beta/properties/123/dataStreams/1": `{"name": "properties/123/dataStreams/1", "type": "WEB_DATA_STREAM",
			"webStreamData": {"measurementId": "G-ABC"}, "createTime": "2024-05-01T00:00:00Z"}`,
		"GET /v1alpha/properties/123/dataStreams/1/enhancedMeasurementSettings": `{
			"name": "properties/123/dataStreams/1/enhancedMeasurementSettings",
			"streamEnabled": true, "scrollsEnabled": false, "searchQueryParameter": "q,s"}`,
	})

	code, stdout, stderr := runCLI(t, "", "streams", "get", "123", "1", "--json")
	require.Equal(t, 0, code, stderr)

	var stream map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &stream))
	assert.Equal(t, "G-ABC", stream["measurementId"])
	assert.Equal(t, "2024-05-01T00:00:00Z", stream["createTime"])
	assert.Equal(t, "", stream["updateTime"])

	code, stdout, stderr = runCLI(t, "", "streams", "enhanced-measurement", "123", "1", "--json")
	require.Equal(t, 0, code, stderr)

	var settings map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &settings))
	assert.Equal(t, true, settings["streamEnabled"])
	assert.Equal(t, false, settings["scrollsEnabled"])
	assert.Equal(t, "q,s", settings["searchQueryParameter"])

	requests := fake.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "Bearer test-token", requests[1].auth)
}

func TestLinksListEveryKind(t *testing.T) {
	testCases := []struct {
		kind      string
		path      string
		body      string
		wantField string
		wantValue any
	}{
		{"google-ads", "/v1beta/properties/5/googleAdsLinks",
			`{"googleAdsLinks": [{"name": "l1", "customerId": "123-456", "canManageClients": true}]}`,
			"customerId", "123-456"},
		{"firebase", "/v1beta/properties/5/firebaseLinks",
			`{"firebaseLinks": [{"name": "l1", "project": "projects/9"}]}`,
			"project", "projects/9"},
		{"bigquery", "/v1alpha/properties/5/bigQueryLinks",
			`{"bigQueryLinks": [{"name": "l1", "project": "projects/9", "dailyExportEnabled": true}]}`,
			"dailyExportEnabled", true},
		{"dv360", "/v1alpha/properties/5/displayVideo360AdvertiserLinks",
			`{"displayVideo360AdvertiserLinks": [{"name": "l1", "advertiserId": "77", "advertiserDisplayName": "Acme"}]}`,
			"advertiserDisplayName", "Acme"},
		{"search-ads", "/v1alpha/properties/5/searchAds360Links",
			`{"searchAds360Links": [{"name": "l1", "advertiserId": "88", "siteStatsSharingEnabled": false}]}`,
			"siteStatsSharingEnabled", false},
		{"adsense", "/v1alpha/properties/5/adSenseLinks",
			`{"adSenseLinks": [{"name": "l1", "adClientCode": "ca-pub-1"}]}`,
			"adClientCode", "ca-pub-1"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.kind, func(t *testing.T) {
			setupCLI(t, map[string]string{"GET " + testCase.path: testCase.body})

			code, stdout, stderr := runCLI(t, "", "links", testCase.kind, "list", "5", "--json")
			require.Equal(t, 0, code, stderr)

			var rows []map[string]any
			require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
			require.Len(t, rows, 1)
			assert.Equal(t, "l1", rows[0]["name"])
			assert.Equal(t, testCase.wantValue, rows[0][testCase.wantField])
		})
	}
}

func TestLinksListEmpty(t *testing.T) {
	setupCLI(t, map[string]string{
		"GET /v1beta/properties/5/firebaseLinks": `{}`,
	})

	code, stdout, stderr := runCLI(t, "", "links", "firebase", "list", "5")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "No Firebase links found.\n", stdout)
}

func TestSettingsGetUsesDefaultProperty(t *testing.T) {
	fake := setupCLI(t, map[string]string{
		"GET /v1beta/properties/777/dataRetentionSettings": `{"name": "properties/777/dataRetentionSettings",
			"eventDataRetention": "FOURTEEN_MONTHS", "resetUserDataOnNewActivity": true}`,
		"GET /v1alpha/properties/777/googleSignalsSettings": `{"name": "properties/777/googleSignalsSettings",
			"state": "GOOGLE_SIGNALS_ENABLED", "consent": "GOOGLE_SIGNALS_CONSENT_CONSENTED"}`,
	})
	t.Setenv("GA4CLI_PROPERTY", "777")

	code, stdout, stderr := runCLI(t, "", "settings", "data-retention", "get", "--json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"eventDataRetention": "FOURTEEN_MONTHS"`)

	code, stdout, stderr = runCLI(t, "", "settings", "google-signals", "get")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "GOOGLE_SIGNALS_ENABLED")

	requests := fake.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "/v1alpha/properties/777/googleSignalsSettings", requests[1].path)
}

func TestUsersListJoinsRoles(t *testing.T) {
	setupCLI(t, map[string]string{
		"GET /v1alpha/accounts/42/accessBindings": `{"accessBindings": [
			{"name": "accounts/42/accessBindings/b1", "user": "a@example.com",
			 "roles": ["predefinedRoles/viewer", "predefinedRoles/no-cost-data"]}
		]}`,
	})

	code, stdout, stderr := runCLI(t, "", "users", "list-account", "42", "--csv")
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "name,user,roles", lines[0])
	assert.Equal(t, `accounts/42/accessBindings/b1,a@example.com,"predefinedRoles/viewer, predefinedRoles/no-cost-data"`, lines[1])
}

func TestUsersGetPropertyBinding(t *testing.T) {
	setupCLI(t, map[string]string{
		"GET /v1alpha/properties/9/accessBindings/b2": `{"name": "properties/9/accessBindings/b2",
			"user": "b@example.com", "roles": ["predefinedRoles/admin"]}`,
	})

	code, stdout, stderr := runCLI(t, "", "users", "get-property", "9", "b2", "--json")
	require.Equal(t, 0, code, stderr)

	var binding map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &binding))
	assert.Equal(t, "b@example.com", binding["user"])
	assert.Equal(t, "predefinedRoles/admin", binding["roles"])
}

func TestPropertyConfigList(t *testing.T) {
	testCases := []struct {
		group     string
		path      string
		body      string
		wantField string
		wantValue any
	}{
		{"conversions", "/v1beta/properties/3/conversionEvents",
			`{"conversionEvents": [{"name": "c1", "eventName": "purchase", "custom": true}]}`,
			"eventName", "purchase"},
		{"custom-dimensions", "/v1beta/properties/3/customDimensions",
			`{"customDimensions": [{"name": "c1", "parameterName": "plan", "scope": "USER"}]}`,
			"scope", "USER"},
		{"custom-metrics", "/v1beta/properties/3/customMetrics",
			`{"customMetrics": [{"name": "c1", "parameterName": "score", "measurementUnit": "STANDARD"}]}`,
			"measurementUnit", "STANDARD"},
		{"audiences", "/v1alpha/properties/3/audiences",
			`{"audiences": [{"name": "c1", "displayName": "Buyers", "membershipDurationDays": 30}]}`,
			"membershipDurationDays", float64(30)},
		{"key-events", "/v1beta/properties/3/keyEvents",
			`{"keyEvents": [{"name": "c1", "eventName": "sign_up", "countingMethod": "ONCE_PER_EVENT"}]}`,
			"countingMethod", "ONCE_PER_EVENT"},
		{"channel-groups", "/v1alpha/properties/3/channelGroups",
			`{"channelGroups": [{"name": "c1", "displayName": "Default", "systemDefined": true}]}`,
			"systemDefined", true},
		{"calculated-metrics", "/v1alpha/properties/3/calculatedMetrics",
			`{"calculatedMetrics": [{"name": "c1", "formula": "{{sessions}} * 2"}]}`,
			"formula", "{{sessions}} * 2"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.group, func(t *testing.T) {
			setupCLI(t, map[string]string{"GET " + testCase.path: testCase.body})

			code, stdout, stderr := runCLI(t, "", "config", testCase.group, "list", "3", "--json")
			require.Equal(t, 0, code, stderr)

			var rows []map[string]any
			require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
			require.Len(t, rows, 1)
			assert.Equal(t, "c1", rows[0]["name"])
			assert.Equal(t, testCase.wantValue, rows[0][testCase.wantField])
		})
	}
}

func TestPropertyConfigGetKeepsNestedJSON(t *testing.T) {
	setupCLI(t, map[string]string{
		"GET /v1alpha/properties/3/audiences/11": `{"name": "properties/3/audiences/11", "displayName": "Buyers",
			"filterClauses": [{"clauseType": "INCLUDE"}]}`,
	})

	code, stdout, stderr := runCLI(t, "", "config", "audiences", "get", "3", "11", "--json")
	require.Equal(t, 0, code, stderr)

	var audience map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &audience))
	assert.Equal(t, "Buyers", audience["displayName"])
	assert.Equal(t, `[{"clauseType":"INCLUDE"}]`, audience["filterClauses"])
}

func TestKeyEventGetAcceptsFullName(t *testing.T) {
	fake := setupCLI(t, map[string]string{
		"GET /v1beta/properties/3/keyEvents/k1": `{"name": "properties/3/keyEvents/k1", "eventName": "purchase", "deletable": false}`,
	})

	code, stdout, stderr := runCLI(t, "", "config", "key-events", "get", "3", "properties/3/keyEvents/k1", "--json")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"deletable": false`)

	requests := fake.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "/v1beta/properties/3/keyEvents/k1", requests[0].path)
}

func TestAdminResourceNotFoundIsClassified(t *testing.T) {
	setupCLI(t, nil)

	code, _, stderr := runCLI(t, "", "streams", "get", "123", "404")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Requested entity was not found.")
}

func TestResourceCell(t *testing.T) {
	resource := api.Resource{
		"name":   "x",
		"roles":  []any{"a", "b"},
		"nested": map[string]any{"inner": map[string]any{"value": "deep"}},
		"mixed":  []any{"a", float64(1)},
	}

	assert.Equal(t, "deep", lookupField(resource, "nested.inner.value"))
	assert.Nil(t, lookupField(resource, "name.inner"))
	assert.Equal(t, "a, b", resourceCell(resource["roles"]))
	assert.Equal(t, `["a",1]`, resourceCell(resource["mixed"]))
	assert.Equal(t, "", resourceCell(nil))
	assert.Equal(t, []string{"name", "defaultUri"}, columnNames([]string{"name", "webStreamData.defaultUri"}))
}

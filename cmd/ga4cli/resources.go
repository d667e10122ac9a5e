package main

import (
	"encoding/json"
	"strings"

	"ga4cli/internal/api"
	"ga4cli/internal/query"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
)

// resourceView describes how an Admin API collection is shown. Fields are
// JSON paths into the resource, dotted for nested objects; the column is named
// after the last path segment.
type resourceView struct {
	collection string
	fields     []string
	empty      string
}

var (
	streamView = resourceView{
		collection: "dataStreams",
		fields:     []string{"name", "displayName", "type", "webStreamData.defaultUri"},
		empty:      "No data streams found.",
	}
	streamDetailFields = []string{
		"name",
		"displayName",
		"type",
		"webStreamData.measurementId",
		"webStreamData.defaultUri",
		"createTime",
		"updateTime",
	}
	enhancedMeasurementFields = []string{
		"name",
		"streamEnabled",
		"scrollsEnabled",
		"outboundClicksEnabled",
		"siteSearchEnabled",
		"videoEngagementEnabled",
		"fileDownloadsEnabled",
		"pageChangesEnabled",
		"formInteractionsEnabled",
		"searchQueryParameter",
		"uriQueryParameter",
	}

	accessBindingView = resourceView{
		collection: "accessBindings",
		fields:     []string{"name", "user", "roles"},
		empty:      "No users found.",
	}
)

type linkKind struct {
	use   string
	short string
	view  resourceView
}

var linkKinds = []linkKind{
	{"google-ads", "Google Ads links", resourceView{
		collection: "googleAdsLinks",
		fields:     []string{"name", "customerId", "canManageClients", "adsPersonalizationEnabled", "createTime"},
		empty:      "No Google Ads links found.",
	}},
	{"firebase", "Firebase links", resourceView{
		collection: "firebaseLinks",
		fields:     []string{"name", "project", "createTime"},
		empty:      "No Firebase links found.",
	}},
	{"bigquery", "BigQuery links", resourceView{
		collection: "bigQueryLinks",
		fields:     []string{"name", "project", "dailyExportEnabled", "streamingExportEnabled", "freshDailyExportEnabled"},
		empty:      "No BigQuery links found.",
	}},
	{"dv360", "Display & Video 360 advertiser links", resourceView{
		collection: "displayVideo360AdvertiserLinks",
		fields: []string{
			"name",
			"advertiserId",
			"advertiserDisplayName",
			"adsPersonalizationEnabled",
			"campaignDataSharingEnabled",
			"costDataSharingEnabled",
		},
		empty: "No Display & Video 360 links found.",
	}},
	{"search-ads", "Search Ads 360 links", resourceView{
		collection: "searchAds360Links",
		fields: []string{
			"name",
			"advertiserId",
			"advertiserDisplayName",
			"adsPersonalizationEnabled",
			"campaignDataSharingEnabled",
			"costDataSharingEnabled",
			"siteStatsSharingEnabled",
		},
		empty: "No Search Ads 360 links found.",
	}},
	{"adsense", "AdSense links", resourceView{
		collection: "adSenseLinks",
		fields:     []string{"name", "adClientCode"},
		empty:      "No AdSense links found.",
	}},
}

type settingsKind struct {
	use      string
	short    string
	resource string
	fields   []string
}

var settingsKinds = []settingsKind{
	{"data-retention", "Data retention settings", "dataRetentionSettings", []string{
		"name", "eventDataRetention", "resetUserDataOnNewActivity",
	}},
	{"attribution", "Attribution settings", "attributionSettings", []string{
		"name",
		"acquisitionConversionEventLookbackWindow",
		"otherConversionEventLookbackWindow",
		"reportingAttributionModel",
	}},
	{"google-signals", "Google Signals settings", "googleSignalsSettings", []string{
		"name", "state", "consent",
	}},
}

// propertyConfigKind is a property configuration collection shown under
// 'config'. A nil detail means the collection has no get command.
type propertyConfigKind struct {
	use    string
	short  string
	view   resourceView
	detail []string
}

var propertyConfigKinds = []propertyConfigKind{
	{"conversions", "Conversion events", resourceView{
		collection: "conversionEvents",
		fields:     []string{"name", "eventName", "deletable", "custom", "createTime"},
		empty:      "No conversion events found.",
	}, nil},
	{"custom-dimensions", "Custom dimensions", resourceView{
		collection: "customDimensions",
		fields:     []string{"name", "parameterName", "displayName", "description", "scope"},
		empty:      "No custom dimensions found.",
	}, nil},
	{"custom-metrics", "Custom metrics", resourceView{
		collection: "customMetrics",
		fields:     []string{"name", "parameterName", "displayName", "description", "scope", "measurementUnit"},
		empty:      "No custom metrics found.",
	}, nil},
	{"audiences", "Audiences", resourceView{
		collection: "audiences",
		fields:     []string{"name", "displayName", "description", "membershipDurationDays"},
		empty:      "No audiences found.",
	}, []string{"name", "displayName", "description", "membershipDurationDays", "filterClauses"}},
	{"key-events", "Key events", resourceView{
		collection: "keyEvents",
		fields:     []string{"name", "eventName", "countingMethod", "custom", "createTime"},
		empty:      "No key events found.",
	}, []string{"name", "eventName", "countingMethod", "custom", "deletable", "createTime"}},
	{"channel-groups", "Channel groups", resourceView{
		collection: "channelGroups",
		fields:     []string{"name", "displayName", "description", "systemDefined"},
		empty:      "No channel groups found.",
	}, []string{"name", "displayName", "description", "systemDefined", "groupingRule"}},
	{"calculated-metrics", "Calculated metrics", resourceView{
		collection: "calculatedMetrics",
		fields:     []string{"name", "displayName", "description", "calculatedMetricId", "metricUnit", "formula"},
		empty:      "No calculated metrics found.",
	}, []string{
		"name",
		"displayName",
		"description",
		"calculatedMetricId",
		"metricUnit",
		"formula",
		"restrictedMetricType",
		"invalidMetricReference",
	}},
}

func newStreamsCmd(c *cli) *cobra.Command {
	streamsCmd := &cobra.Command{
		Use:   "streams",
		Short: "View data streams",
	}

	listCmd := &cobra.Command{
		Use:   "list [propertyId]",
		Short: "List data streams",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.listPropertyResources(streamView),
	}

	getCmd := &cobra.Command{
		Use:   "get <propertyId> <streamId>",
		Short: "Show data stream details",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showResource(cmd, childName(args[0], "dataStreams", args[1]), streamDetailFields)
		},
	}

	enhancedMeasurementCmd := &cobra.Command{
		Use:   "enhanced-measurement <propertyId> <streamId>",
		Short: "Show enhanced measurement settings of a web stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := childName(args[0], "dataStreams", args[1]) + "/enhancedMeasurementSettings"
			return c.showResource(cmd, name, enhancedMeasurementFields)
		},
	}

	streamsCmd.AddCommand(listCmd, getCmd, enhancedMeasurementCmd)
	return streamsCmd
}

func newLinksCmd(c *cli) *cobra.Command {
	linksCmd := &cobra.Command{
		Use:   "links",
		Short: "View linked products of a property",
	}

	for _, kind := range linkKinds {
		kindCmd := &cobra.Command{
			Use:   kind.use,
			Short: kind.short,
		}
		kindCmd.AddCommand(&cobra.Command{
			Use:   "list [propertyId]",
			Short: "List " + kind.short,
			Args:  cobra.MaximumNArgs(1),
			RunE:  c.listPropertyResources(kind.view),
		})
		linksCmd.AddCommand(kindCmd)
	}
	return linksCmd
}

func newSettingsCmd(c *cli) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "View property settings",
	}

	for _, kind := range settingsKinds {
		kindCmd := &cobra.Command{
			Use:   kind.use,
			Short: kind.short,
		}
		kindCmd.AddCommand(&cobra.Command{
			Use:   "get [propertyId]",
			Short: "Show " + kind.short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				property, err := c.property(cmd, args)
				if err != nil {
					return err
				}
				return c.showResource(cmd, property+"/"+kind.resource, kind.fields)
			},
		})
		settingsCmd.AddCommand(kindCmd)
	}
	return settingsCmd
}

func newUsersCmd(c *cli) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "View user access bindings",
		Long: `View who has access to an account or property. Users are read from access
bindings, which carry the user email and the granted roles.`,
	}

	listAccountCmd := &cobra.Command{
		Use:   "list-account <accountId>",
		Short: "List users of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.listResources(cmd, query.AccountPath(args[0]), accessBindingView)
		},
	}

	listPropertyCmd := &cobra.Command{
		Use:   "list-property [propertyId]",
		Short: "List users of a property",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.listPropertyResources(accessBindingView),
	}

	getAccountCmd := &cobra.Command{
		Use:   "get-account <accountId> <bindingId>",
		Short: "Show one access binding of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := query.AccountPath(args[0]) + "/accessBindings/" + args[1]
			return c.showResource(cmd, name, accessBindingView.fields)
		},
	}

	getPropertyCmd := &cobra.Command{
		Use:   "get-property <propertyId> <bindingId>",
		Short: "Show one access binding of a property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showResource(cmd, childName(args[0], "accessBindings", args[1]), accessBindingView.fields)
		},
	}

	usersCmd.AddCommand(listAccountCmd, listPropertyCmd, getAccountCmd, getPropertyCmd)
	return usersCmd
}

// propertyConfigCmds builds the read-only property configuration groups
// listed under 'config' next to the local settings commands.
func propertyConfigCmds(c *cli) []*cobra.Command {
	var cmds []*cobra.Command
	for _, kind := range propertyConfigKinds {
		kindCmd := &cobra.Command{
			Use:   kind.use,
			Short: kind.short + " of a property",
		}
		kindCmd.AddCommand(&cobra.Command{
			Use:   "list [propertyId]",
			Short: "List " + strings.ToLower(kind.short),
			Args:  cobra.MaximumNArgs(1),
			RunE:  c.listPropertyResources(kind.view),
		})
		if kind.detail != nil {
			kindCmd.AddCommand(&cobra.Command{
				Use:   "get <propertyId> <id>",
				Short: "Show one of the " + strings.ToLower(kind.short),
				Args:  cobra.ExactArgs(2),
				RunE: func(cmd *cobra.Command, args []string) error {
					return c.showResource(cmd, childName(args[0], kind.view.collection, args[1]), kind.detail)
				},
			})
		}
		cmds = append(cmds, kindCmd)
	}
	return cmds
}

func (c *cli) listPropertyResources(view resourceView) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		property, err := c.property(cmd, args)
		if err != nil {
			return err
		}
		return c.listResources(cmd, property, view)
	}
}

func (c *cli) listResources(cmd *cobra.Command, parent string, view resourceView) error {
	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	resources, err := client.ListResources(cmd.Context(), parent, view.collection)
	if err != nil {
		return err
	}

	report := &results.Report{Columns: columnNames(view.fields)}
	for _, resource := range resources {
		report.Rows = append(report.Rows, resourceRow(resource, view.fields))
	}
	return c.writer(cmd).Report(report, view.empty)
}

func (c *cli) showResource(cmd *cobra.Command, name string, fields []string) error {
	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	resource, err := client.GetResource(cmd.Context(), name)
	if err != nil {
		return err
	}
	return c.writer(cmd).Detail(columnNames(fields), resourceRow(resource, fields))
}

// childName builds "properties/<id>/<collection>/<childId>", leaving a child
// that is already a full resource name untouched.
func childName(propertyID, collection, childID string) string {
	if strings.HasPrefix(childID, "properties/") {
		return childID
	}
	return query.PropertyPath(propertyID) + "/" + collection + "/" + childID
}

func columnNames(fields []string) []string {
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field[strings.LastIndex(field, ".")+1:]
	}
	return columns
}

func resourceRow(resource api.Resource, fields []string) results.Row {
	row := make(results.Row, len(fields))
	for _, field := range fields {
		row[field[strings.LastIndex(field, ".")+1:]] = resourceCell(lookupField(resource, field))
	}
	return row
}

func lookupField(resource api.Resource, path string) any {
	var value any = map[string]any(resource)
	for _, key := range strings.Split(path, ".") {
		object, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value = object[key]
	}
	return value
}

// resourceCell flattens a JSON value into a single cell. Lists of strings are
// joined, other nested values are kept as compact JSON.
func resourceCell(value any) any {
	switch value := value.(type) {
	case nil:
		return ""
	case []any:
		items := make([]string, 0, len(value))
		for _, item := range value {
			text, ok := item.(string)
			if !ok {
				return compactJSON(value)
			}
			items = append(items, text)
		}
		return strings.Join(items, ", ")
	case map[string]any:
		return compactJSON(value)
	default:
		return value
	}
}

func compactJSON(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}

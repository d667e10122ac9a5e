package main

import (
	"strings"

	"ga4cli/internal/api"
	"ga4cli/internal/query"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
)

func newAccountsCmd(c *cli) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Browse GA4 accounts",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all accessible accounts",
		Args:  cobra.NoArgs,
		RunE:  c.accountsList,
	}

	getCmd := &cobra.Command{
		Use:   "get <accountId>",
		Short: "Show account details",
		Args:  cobra.ExactArgs(1),
		RunE:  c.accountsGet,
	}

	changeHistoryCmd := &cobra.Command{
		Use:     "change-history <accountId>",
		Short:   "Search configuration change events of an account",
		Example: `  ga4cli accounts change-history 123 --action CREATED,DELETED --start 2025-01-01 --json`,
		Args:    cobra.ExactArgs(1),
		RunE:    c.accountsChangeHistory,
	}
	flags := changeHistoryCmd.Flags()
	flags.String("property-filter", "", "Only show changes to this property")
	flags.String("resource-type", "", "Filter by resource type (comma-separated)")
	flags.String("action", "", "Filter by action (comma-separated: CREATED,UPDATED,DELETED)")
	flags.String("start", "", "Earliest change time YYYY-MM-DD")
	flags.String("end", "", "Latest change time YYYY-MM-DD")
	flags.String("actor", "", "Filter by actor email")
	flags.Int("limit", 50, "Max results")

	accessReportCmd := &cobra.Command{
		Use:   "access-report <accountId>",
		Short: "Run a data access report (who accessed data) for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.accessReport(cmd, query.AccountPath(args[0]))
		},
	}
	addAccessReportFlags(accessReportCmd)

	accountsCmd.AddCommand(listCmd, getCmd, changeHistoryCmd, accessReportCmd)
	return accountsCmd
}

func newPropertiesCmd(c *cli) *cobra.Command {
	propertiesCmd := &cobra.Command{
		Use:   "properties",
		Short: "Browse GA4 properties",
	}

	listCmd := &cobra.Command{
		Use:   "list <accountId>",
		Short: "List the properties of an account",
		Args:  cobra.ExactArgs(1),
		RunE:  c.propertiesList,
	}

	getCmd := &cobra.Command{
		Use:   "get [propertyId]",
		Short: "Show property details",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.propertiesGet,
	}

	accessReportCmd := &cobra.Command{
		Use:   "access-report [propertyId]",
		Short: "Run a data access report (who accessed data) for a property",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			property, err := c.property(cmd, args)
			if err != nil {
				return err
			}
			return c.accessReport(cmd, property)
		},
	}
	addAccessReportFlags(accessReportCmd)

	propertiesCmd.AddCommand(listCmd, getCmd, accessReportCmd)
	return propertiesCmd
}

func addAccessReportFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("dimensions", "", "Comma-separated dimensions (e.g. accessorEmail,accessMechanism)")
	flags.String("metrics", "", "Comma-separated metrics (e.g. accessCount)")
	flags.String("start", "", "Start date YYYY-MM-DD (default: 30daysAgo)")
	flags.String("end", "", "End date YYYY-MM-DD (default: today)")
	flags.Int64("limit", 100, "Row limit")
}

var (
	accountColumns  = []string{"name", "displayName", "regionCode", "createTime", "updateTime"}
	propertyColumns = []string{
		"name",
		"displayName",
		"parent",
		"timeZone",
		"currencyCode",
		"industryCategory",
		"serviceLevel",
		"createTime",
		"updateTime",
	}
	changeColumns = []string{
		"id",
		"changeTime",
		"actorType",
		"userActorEmail",
		"resource",
		"action",
		"resourceBeforeChange",
		"resourceAfterChange",
	}
)

func accountRow(account api.Account) results.Row {
	return results.Row{
		"name":        account.Name,
		"displayName": account.DisplayName,
		"regionCode":  account.RegionCode,
		"createTime":  account.CreateTime,
		"updateTime":  account.UpdateTime,
	}
}

func propertyRow(property api.Property) results.Row {
	return results.Row{
		"name":             property.Name,
		"displayName":      property.DisplayName,
		"parent":           property.Parent,
		"timeZone":         property.TimeZone,
		"currencyCode":     property.CurrencyCode,
		"industryCategory": property.IndustryCategory,
		"serviceLevel":     property.ServiceLevel,
		"createTime":       property.CreateTime,
		"updateTime":       property.UpdateTime,
	}
}

func (c *cli) accountsList(cmd *cobra.Command, args []string) error {
	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	accounts, err := client.ListAccounts(cmd.Context())
	if err != nil {
		return err
	}

	report := &results.Report{Columns: accountColumns}
	for _, account := range accounts {
		report.Rows = append(report.Rows, accountRow(account))
	}
	return c.writer(cmd).Report(report, "No accounts found.")
}

func (c *cli) accountsGet(cmd *cobra.Command, args []string) error {
	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	account, err := client.GetAccount(cmd.Context(), query.AccountPath(args[0]))
	if err != nil {
		return err
	}
	return c.writer(cmd).Detail(accountColumns, accountRow(*account))
}

func (c *cli) accountsChangeHistory(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	propertyFilter, _ := flags.GetString("property-filter")
	resourceTypes, _ := flags.GetString("resource-type")
	actions, _ := flags.GetString("action")
	start, _ := flags.GetString("start")
	end, _ := flags.GetString("end")
	actor, _ := flags.GetString("actor")
	limit, _ := flags.GetInt("limit")

	search := api.ChangeHistoryQuery{
		Account:       query.AccountPath(args[0]),
		Property:      query.PropertyPath(propertyFilter),
		ResourceTypes: splitList(resourceTypes),
		Actions:       splitList(actions),
		PageSize:      limit,
	}
	if actor != "" {
		search.ActorEmails = []string{actor}
	}

	var err error
	if start != "" {
		if search.EarliestChangeTime, err = query.EpochSeconds(start); err != nil {
			return err
		}
	}
	if end != "" {
		if search.LatestChangeTime, err = query.EpochSeconds(end); err != nil {
			return err
		}
	}

	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	events, err := client.SearchChangeHistory(cmd.Context(), search)
	if err != nil {
		return err
	}

	// One row per change; events without changes still get a row.
	report := &results.Report{Columns: changeColumns}
	for _, event := range events {
		eventRow := results.Row{
			"id":             event.ID,
			"changeTime":     event.ChangeTime,
			"actorType":      event.ActorType,
			"userActorEmail": event.UserActorEmail,
		}
		if len(event.Changes) == 0 {
			report.Rows = append(report.Rows, eventRow)
			continue
		}
		for _, change := range event.Changes {
			row := make(results.Row, len(changeColumns))
			for key, value := range eventRow {
				row[key] = value
			}
			row["resource"] = change.Resource
			row["action"] = change.Action
			row["resourceBeforeChange"] = string(change.ResourceBeforeChange)
			row["resourceAfterChange"] = string(change.ResourceAfterChange)
			report.Rows = append(report.Rows, row)
		}
	}
	return c.writer(cmd).Report(report, "No change history events found.")
}

func (c *cli) accessReport(cmd *cobra.Command, entity string) error {
	flags := cmd.Flags()
	dimensions, _ := flags.GetString("dimensions")
	metrics, _ := flags.GetString("metrics")
	start, _ := flags.GetString("start")
	end, _ := flags.GetString("end")
	limit, _ := flags.GetInt64("limit")

	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	table, err := client.RunAccessReport(
		cmd.Context(),
		api.NewAccessReportRequest(entity, dimensions, metrics, start, end, limit),
	)
	if err != nil {
		return err
	}
	return c.writer(cmd).Report(results.NewReport(*table), "No access records found.")
}

func (c *cli) propertiesList(cmd *cobra.Command, args []string) error {
	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	properties, err := client.ListProperties(cmd.Context(), query.AccountPath(args[0]))
	if err != nil {
		return err
	}

	report := &results.Report{Columns: propertyColumns}
	for _, property := range properties {
		report.Rows = append(report.Rows, propertyRow(property))
	}
	return c.writer(cmd).Report(report, "No properties found.")
}

func (c *cli) propertiesGet(cmd *cobra.Command, args []string) error {
	property, err := c.property(cmd, args)
	if err != nil {
		return err
	}

	client, err := c.adminClient(cmd)
	if err != nil {
		return err
	}
	details, err := client.GetProperty(cmd.Context(), property)
	if err != nil {
		return err
	}
	return c.writer(cmd).Detail(propertyColumns, propertyRow(*details))
}

func splitList(list string) []string {
	var items []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

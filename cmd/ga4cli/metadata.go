package main

import (
	"strings"

	"ga4cli/internal/api"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
)

func newMetadataCmd(c *cli) *cobra.Command {
	metadataCmd := &cobra.Command{
		Use:   "metadata",
		Short: "List the dimensions and metrics available on a property",
		Long: `List the dimensions and metrics available on a property, including custom
definitions. Catalogs are cached locally for 24 hours (see 'ga4cli cache').`,
	}

	dimensionsCmd := &cobra.Command{
		Use:   "dimensions [propertyId]",
		Short: "List available dimensions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.metadataDimensions,
	}
	metricsCmd := &cobra.Command{
		Use:   "metrics [propertyId]",
		Short: "List available metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  c.metadataMetrics,
	}
	for _, cmd := range []*cobra.Command{dimensionsCmd, metricsCmd} {
		cmd.Flags().Bool("custom-only", false, "Only show custom definitions")
		cmd.Flags().String("category", "", "Only show fields in this category (case-insensitive)")
	}

	metadataCmd.AddCommand(dimensionsCmd, metricsCmd)
	return metadataCmd
}

func (c *cli) metadata(cmd *cobra.Command, args []string) (*api.MetadataResponse, error) {
	property, err := c.property(cmd, args)
	if err != nil {
		return nil, err
	}

	client, release, err := c.dataClient(cmd, true)
	if err != nil {
		return nil, err
	}
	defer release()

	return client.GetMetadata(cmd.Context(), property)
}

type fieldFilter struct {
	customOnly bool
	category   string
}

func fieldFilterFromFlags(cmd *cobra.Command) fieldFilter {
	customOnly, _ := cmd.Flags().GetBool("custom-only")
	category, _ := cmd.Flags().GetString("category")
	return fieldFilter{customOnly: customOnly, category: category}
}

func (filter fieldFilter) keep(custom bool, category string) bool {
	if filter.customOnly && !custom {
		return false
	}
	return filter.category == "" || strings.EqualFold(filter.category, category)
}

func (c *cli) metadataDimensions(cmd *cobra.Command, args []string) error {
	metadata, err := c.metadata(cmd, args)
	if err != nil {
		return err
	}

	filter := fieldFilterFromFlags(cmd)
	report := &results.Report{Columns: []string{"apiName", "uiName", "category", "custom", "description"}}
	for _, dimension := range metadata.Dimensions {
		if !filter.keep(dimension.CustomDefinition, dimension.Category) {
			continue
		}
		report.Rows = append(report.Rows, results.Row{
			"apiName":     dimension.APIName,
			"uiName":      dimension.UIName,
			"category":    dimension.Category,
			"custom":      dimension.CustomDefinition,
			"description": dimension.Description,
		})
	}
	return c.writer(cmd).Report(report, "No dimensions found.")
}

func (c *cli) metadataMetrics(cmd *cobra.Command, args []string) error {
	metadata, err := c.metadata(cmd, args)
	if err != nil {
		return err
	}

	filter := fieldFilterFromFlags(cmd)
	report := &results.Report{Columns: []string{"apiName", "uiName", "category", "type", "custom", "description"}}
	for _, metric := range metadata.Metrics {
		if !filter.keep(metric.CustomDefinition, metric.Category) {
			continue
		}
		report.Rows = append(report.Rows, results.Row{
			"apiName":     metric.APIName,
			"uiName":      metric.UIName,
			"category":    metric.Category,
			"type":        metric.Type,
			"custom":      metric.CustomDefinition,
			"description": metric.Description,
		})
	}
	return c.writer(cmd).Report(report, "No metrics found.")
}

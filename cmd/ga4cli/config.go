package main

import (
	"errors"
	"fmt"
	"strings"

	"ga4cli/internal/config"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
)

func newConfigCmd(c *cli) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage global configuration and view property configuration",
		Long: `Manage the global configuration in ~/.ga4cli/config.yaml. Every setting can be
overridden per invocation by a GA4CLI_* environment variable or a .env file in
the working directory.

The remaining groups are read-only views of a property's Admin API
configuration: conversion and key events, custom definitions, audiences,
channel groups and calculated metrics.`,
	}

	setCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a configuration value",
		Long: fmt.Sprintf(`Set a configuration value by key, or the OAuth client credentials by flag.

Keys: %s`, strings.Join(config.SettableKeys, ", ")),
		Example: `  ga4cli config set --client-id <id> --client-secret <secret>
  ga4cli config set default_property 123456789
  ga4cli config set output_format json`,
		Args: cobra.RangeArgs(0, 2),
		RunE: c.configSet,
	}
	setCmd.Flags().String("client-id", "", "OAuth client ID")
	setCmd.Flags().String("client-secret", "", "OAuth client secret")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  c.configShow,
	}

	configCmd.AddCommand(setCmd, showCmd)
	configCmd.AddCommand(propertyConfigCmds(c)...)
	return configCmd
}

func (c *cli) configSet(cmd *cobra.Command, args []string) error {
	clientID, _ := cmd.Flags().GetString("client-id")
	clientSecret, _ := cmd.Flags().GetString("client-secret")

	switch {
	case clientID != "" || clientSecret != "":
		if clientID == "" || clientSecret == "" {
			return errors.New("both --client-id and --client-secret are required")
		}
		if err := config.SetClientCredentials(clientID, clientSecret); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "✅ OAuth credentials saved")
		fmt.Fprintln(c.stdout, "🚀 You can now create presets with 'ga4cli preset create <name> --refresh-token <token>'")
		return nil
	case len(args) == 2:
		key, value := args[0], args[1]
		// ParseFormat falls back to table, so compare names to catch typos.
		if key == "output_format" && !strings.EqualFold(results.ParseFormat(value).String(), strings.TrimSpace(value)) {
			return fmt.Errorf("invalid output_format '%s' (expected table, csv or json)", value)
		}
		if err := config.Set(key, value); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "✅ %s updated\n", key)
		return nil
	default:
		return errors.New("usage: ga4cli config set <key> <value>, or ga4cli config set --client-id <id> --client-secret <secret>")
	}
}

func (c *cli) configShow(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	columns := append([]string{"config_file"}, config.SettableKeys...)
	columns = append(columns, "active_preset")

	record := results.Row{"config_file": configPath, "active_preset": c.settings.ActivePreset}
	for _, key := range config.SettableKeys {
		record[key] = c.settings.Get(key)
	}
	return c.writer(cmd).Detail(columns, record)
}

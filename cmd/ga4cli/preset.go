package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ga4cli/internal/api"
	"ga4cli/internal/preset"
	"ga4cli/internal/results"

	"github.com/spf13/cobra"
	"hermannm.dev/wrap"
)

const tokenValidationTimeout = 30 * time.Second

func newPresetCmd(c *cli) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage credential presets",
		Long: `Presets store a refresh token (and optionally a default property) per Google
user, so you can switch between accounts with 'ga4cli preset use <name>'.`,
	}

	createCmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a preset from a refresh token",
		Example: `  ga4cli preset create work --refresh-token 1//0g... --user-email me@example.com --default-property 123456789`,
		Args:    cobra.ExactArgs(1),
		RunE:    c.presetCreate,
	}
	createCmd.Flags().String("refresh-token", "", "OAuth refresh token (required)")
	createCmd.Flags().String("user-email", "", "Email of the token's user")
	createCmd.Flags().String("default-property", "", "Property used when none is given")
	createCmd.Flags().Bool("no-validate", false, "Skip refresh token validation")
	_ = createCmd.MarkFlagRequired("refresh-token")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE:  c.presetList,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  c.presetDelete,
	}
	deleteCmd.Flags().Bool("yes", false, "Skip confirmation")

	useCmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Make a preset the active one",
		Args:  cobra.ExactArgs(1),
		RunE:  c.presetUse,
	}

	presetCmd.AddCommand(createCmd, listCmd, deleteCmd, useCmd)
	return presetCmd
}

func (c *cli) presetCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	refreshToken, _ := cmd.Flags().GetString("refresh-token")
	userEmail, _ := cmd.Flags().GetString("user-email")
	defaultProperty, _ := cmd.Flags().GetString("default-property")
	noValidate, _ := cmd.Flags().GetBool("no-validate")

	if !preset.IsValidPresetName(name) {
		return preset.ErrInvalidName
	}
	exists, err := preset.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: '%s'", preset.ErrAlreadyExists, name)
	}

	if noValidate {
		fmt.Fprintln(c.stdout, "⚠️  Skipping token validation (--no-validate specified)")
	} else {
		if c.settings.ClientID == "" || c.settings.ClientSecret == "" {
			return errors.New("OAuth client not configured: run 'ga4cli config set --client-id <id> --client-secret <secret>' first")
		}

		fmt.Fprintln(c.stdout, "🔍 Validating refresh token...")
		ctx, cancel := context.WithTimeout(cmd.Context(), tokenValidationTimeout)
		defer cancel()
		if err := api.ValidateRefreshToken(ctx, c.settings.ClientID, c.settings.ClientSecret, strings.TrimSpace(refreshToken)); err != nil {
			return err
		}
	}

	created, err := preset.Create(name, refreshToken, userEmail, defaultProperty)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "✅ Preset '%s' created\n", created.Name)
	fmt.Fprintf(c.stdout, "🚀 Activate it with 'ga4cli preset use %s'\n", created.Name)
	return nil
}

func (c *cli) presetList(cmd *cobra.Command, args []string) error {
	presets, err := preset.List()
	if err != nil {
		return err
	}

	report := &results.Report{Columns: []string{"name", "active", "userEmail", "defaultProperty", "createdAt", "lastUsed"}}
	for _, p := range presets {
		report.Rows = append(report.Rows, results.Row{
			"name":            p.Name,
			"active":          p.Name == c.settings.ActivePreset,
			"userEmail":       p.UserEmail,
			"defaultProperty": p.DefaultProperty,
			"createdAt":       p.CreatedAt.Format("2006-01-02 15:04"),
			"lastUsed":        p.LastUsed.Format("2006-01-02 15:04"),
		})
	}
	return c.writer(cmd).Report(report, "No presets found. Create one with 'ga4cli preset create <name> --refresh-token <token>'.")
}

func (c *cli) presetDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if skip, _ := cmd.Flags().GetBool("yes"); !skip {
		fmt.Fprintf(c.stdout, "Delete preset '%s'? [y/N]: ", name)
		answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && answer == "" {
			return wrap.Error(err, "failed to read confirmation")
		}
		if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
			fmt.Fprintln(c.stdout, "Cancelled")
			return nil
		}
	}

	if err := preset.Delete(name); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "🗑️  Preset '%s' deleted\n", name)
	return nil
}

func (c *cli) presetUse(cmd *cobra.Command, args []string) error {
	if err := preset.Use(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "🎯 Active preset: %s\n", args[0])
	return nil
}
